// Package csprng centralizes the randomness sources the SimplePIR core
// needs: a deterministic seeded PRG for expanding the public matrix A from
// SeedA, and a cryptographically secure source, seeded from OS entropy, for
// the fresh-per-query secret key and LWE error.
package csprng

import (
	cryptorand "crypto/rand"
	"fmt"
	"math"
	"math/big"
	mathrand "math/rand/v2"

	ddprand "github.com/google/differential-privacy/go/v2/rand"
)

// SeedLen is the width of a SimplePIR seed, per spec.md's "32-byte seed".
const SeedLen = 32

// FreshSeed draws SeedLen bytes of OS entropy. Used both to produce SeedA
// at setup time and to key a fresh PRG for one-off per-query sampling.
func FreshSeed() ([SeedLen]byte, error) {
	var seed [SeedLen]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		return seed, fmt.Errorf("csprng: failed to read OS entropy: %w", err)
	}
	return seed, nil
}

// PRG is a deterministic pseudorandom generator expanded from a fixed seed.
// Two PRGs built from the same seed produce the identical stream, which is
// what lets client and server regenerate A independently (spec.md §4.1's
// expand(seed, rows, cols) contract).
type PRG struct {
	rng *mathrand.ChaCha8
}

// NewPRG keys a ChaCha8-based deterministic generator from seed.
func NewPRG(seed [SeedLen]byte) *PRG {
	return &PRG{rng: mathrand.NewChaCha8(seed)}
}

// Uint64 returns the next 64 bits of deterministic pseudorandom output.
func (p *PRG) Uint64() uint64 {
	return p.rng.Uint64()
}

// UniformMod returns a value drawn uniformly from [0, mod) using rejection
// sampling against the PRG's 64-bit stream, so it is free of modulo bias.
func (p *PRG) UniformMod(mod uint64) uint64 {
	if mod == 0 {
		return 0
	}
	// mod is usually a power of two for SimplePIR (q = 2^k), in which case
	// the mask path below is exact and avoids any rejection loop.
	if mod&(mod-1) == 0 {
		return p.Uint64() & (mod - 1)
	}
	lim := (^uint64(0) / mod) * mod
	for {
		v := p.Uint64()
		if v < lim {
			return v % mod
		}
	}
}

// UniformModCrypto returns a value drawn uniformly from [0, mod) using the
// OS CSPRNG directly (not the deterministic PRG), for fresh per-query
// secrets that must never repeat across queries.
func UniformModCrypto(mod uint64) (uint64, error) {
	if mod == 0 {
		return 0, nil
	}
	v, err := cryptorand.Int(cryptorand.Reader, new(big.Int).SetUint64(mod))
	if err != nil {
		return 0, fmt.Errorf("csprng: failed to read OS entropy: %w", err)
	}
	return v.Uint64(), nil
}

// Gaussian draws one sample from a continuous approximation of the discrete
// Gaussian error distribution with the given standard deviation, rounded to
// the nearest integer (ties away from zero, matching pkg/lwe.Round). It uses
// the differential-privacy library's secure uniform source via a standard
// Box-Muller transform rather than re-deriving a bespoke CSPRNG, the same
// way algorithms/noise draws its geometric-mechanism noise from it.
func Gaussian(sigma float64) int64 {
	u1 := clampOpen(ddprand.Uniform())
	u2 := ddprand.Uniform()
	z := boxMuller(u1, u2) * sigma
	return roundTiesAwayFromZero(z)
}

// TernaryCoefficient draws one coefficient from {-1, 0, 1} with
// probabilities {1/4, 1/2, 1/4}, for the ternary secret-key distribution
// (spec.md §9 Open Question: "ternary reduces computation but tightens the
// error budget").
func TernaryCoefficient() int64 {
	u := ddprand.Uniform()
	if u < 0.5 {
		return 0
	}
	if ddprand.Sign() < 0 {
		return -1
	}
	return 1
}

func clampOpen(u float64) float64 {
	// Box-Muller is undefined at u1 == 0; nudge away from the boundary.
	if u <= 0 {
		return 1e-300
	}
	return u
}

func boxMuller(u1, u2 float64) float64 {
	const twoPi = 6.283185307179586476925286766559
	r := math.Sqrt(-2 * math.Log(u1))
	return r * math.Cos(twoPi*u2)
}

func roundTiesAwayFromZero(x float64) int64 {
	if x >= 0 {
		return int64(math.Floor(x + 0.5))
	}
	return int64(math.Ceil(x - 0.5))
}
