package ffm

import (
	"github.com/tiptoe-pir/tiptoe/pkg/csprng"
)

// UniformFromPRG fills a rows-by-cols matrix over Z_mod with values drawn
// from the deterministic stream of prg. Used by Expand to regenerate A
// identically on client and server from the same SeedA.
func UniformFromPRG[T Elem](prg *csprng.PRG, rows, cols, mod uint64) *Matrix[T] {
	out := New[T](rows, cols, mod)
	for i := range out.data {
		out.data[i] = T(prg.UniformMod(mod))
	}
	return out
}

// UniformFresh fills a rows-by-cols matrix with values drawn from the OS
// CSPRNG (not a deterministic seed), for one-off, non-reproducible
// sampling such as a fresh per-query secret key.
func UniformFresh[T Elem](rows, cols, mod uint64) (*Matrix[T], error) {
	out := New[T](rows, cols, mod)
	for i := range out.data {
		v, err := csprng.UniformModCrypto(mod)
		if err != nil {
			return nil, err
		}
		out.data[i] = T(v)
	}
	return out, nil
}

// Gaussian fills a rows-by-cols matrix with LWE error terms drawn from a
// discrete Gaussian of standard deviation sigma, each reduced mod q.
func Gaussian[T Elem](rows, cols, mod uint64, sigma float64) *Matrix[T] {
	out := New[T](rows, cols, mod)
	for i := range out.data {
		e := csprng.Gaussian(sigma)
		out.data[i] = T(wrapSigned(e, mod))
	}
	return out
}

// Ternary fills a rows-by-cols matrix with coefficients in {-1, 0, 1},
// each reduced mod q, for the ternary secret-key distribution.
func Ternary[T Elem](rows, cols, mod uint64) *Matrix[T] {
	out := New[T](rows, cols, mod)
	for i := range out.data {
		c := csprng.TernaryCoefficient()
		out.data[i] = T(wrapSigned(c, mod))
	}
	return out
}

// wrapSigned reduces a (possibly negative) signed sample into [0, mod).
func wrapSigned(v int64, mod uint64) uint64 {
	m := int64(mod)
	r := v % m
	if r < 0 {
		r += m
	}
	return uint64(r)
}
