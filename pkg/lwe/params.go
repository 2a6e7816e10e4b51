// Package lwe defines the public LWE parameters shared by the SimplePIR
// engine, the corpus preparation pipeline, and the Tiptoe protocol. Shape
// and packing parameters are centralized here, per spec.md §9's "Dynamic
// matrix shapes → explicit config" design note, rather than living
// implicitly on instance types.
package lwe

import (
	"fmt"
	"math"

	"github.com/tiptoe-pir/tiptoe/pkg/pirerr"
)

// SecretDistribution selects how the client samples its fresh LWE secret.
// spec.md §9 leaves this as an open parameter choice; SPEC_FULL.md resolves
// it into an explicit Params field rather than a compile-time constant.
type SecretDistribution string

const (
	// SecretUniform samples s uniformly over Z_q. Always safe.
	SecretUniform SecretDistribution = "uniform"
	// SecretTernary samples each coordinate of s from {-1, 0, 1}. Cheaper
	// to multiply against, but tightens the error budget.
	SecretTernary SecretDistribution = "ternary"
)

// Params is the public, frozen-per-database scheme configuration described
// in spec.md §3. It is created once per database and carried with every
// artifact (hint, query, answer) rather than implied by an instance type.
type Params struct {
	// N is the LWE dimension, e.g. 1024.
	N uint64
	// Q is the ciphertext modulus. Must be a power of two so that native
	// wraparound arithmetic (rather than Barrett/Montgomery reduction)
	// suffices, per spec.md §4.1.
	Q uint64
	// P is the plaintext modulus. Must divide Q.
	P uint64
	// Sigma is the LWE error standard deviation.
	Sigma float64
	// Rows and Cols are the served database's shape (m_rows, m_cols).
	Rows uint64
	Cols uint64
	// SecretDist selects the client secret-key distribution.
	SecretDist SecretDistribution
}

// Delta is the plaintext scaling factor separating message buckets from
// noise: Delta = floor(Q/P).
func (p Params) Delta() uint64 {
	return p.Q / p.P
}

// Validate enforces spec.md §3's invariants and rejects parameter choices
// whose error budget cannot meet the 2^-40 correctness target for the
// configured Cols (the number of terms summed into the reconstruction
// noise term), surfacing pirerr.InvalidConfig rather than silently
// producing a scheme that fails to decode.
func (p Params) Validate() error {
	if p.N < 512 {
		return pirerr.New(pirerr.KindInvalidConfig, "lwe dimension n=%d is below the minimum of 512", p.N)
	}
	if p.Q == 0 || p.Q&(p.Q-1) != 0 {
		return pirerr.New(pirerr.KindInvalidConfig, "q=%d must be a power of two", p.Q)
	}
	if p.P == 0 || p.Q%p.P != 0 {
		return pirerr.New(pirerr.KindInvalidConfig, "p=%d must divide q=%d", p.P, p.Q)
	}
	if p.Sigma <= 0 {
		return pirerr.New(pirerr.KindInvalidConfig, "sigma=%f must be positive", p.Sigma)
	}
	if p.Rows == 0 || p.Cols == 0 {
		return pirerr.New(pirerr.KindInvalidConfig, "database shape (%d, %d) must be non-zero", p.Rows, p.Cols)
	}
	switch p.SecretDist {
	case SecretUniform, SecretTernary, "":
	default:
		return pirerr.New(pirerr.KindInvalidConfig, "unknown secret distribution %q", p.SecretDist)
	}

	// Correctness window (spec.md §4.2): the aggregated error magnitude
	// Sum_k D[i,k]*e[k] must stay under Delta/2 with probability >= 1 -
	// 2^-40. Each term is bounded in magnitude by (P-1)*|e_k|, and we
	// require a 40-standard-deviation tail bound (Pr[|Z| > 40] is
	// astronomically below 2^-40 for a Gaussian) on the aggregated error's
	// standard deviation sqrt(Cols) * Sigma * (P-1)/2, a conservative
	// proxy for the true, data-dependent worst case.
	delta := float64(p.Delta())
	aggregatedStddev := math.Sqrt(float64(p.Cols)) * p.Sigma * float64(p.P-1) / 2
	if 40*aggregatedStddev >= delta/2 {
		return pirerr.New(pirerr.KindInvalidConfig,
			"error budget exceeded: 40*stddev(%.2f) >= delta/2(%.2f) for n=%d, q=%d, p=%d, sigma=%.3f, cols=%d",
			aggregatedStddev, delta/2, p.N, p.Q, p.P, p.Sigma, p.Cols)
	}
	return nil
}

// ValidateScoreWindow enforces spec.md §4.2's correctness window for the
// embedding inner-product stage, which Validate alone cannot check since it
// has no notion of what a reconstructed value represents. Round reduces the
// reconstructed value mod P, but the embedding stage's reconstructed value
// is a summed (signed) inner-product score, not a single plaintext symbol:
// if P is not larger than twice the maximum score magnitude, distinct
// scores collide mod P and argmaxColumn ranks on the wrapped residue
// instead of the real score, silently returning the wrong row. dim is the
// embedding width and quantP is the per-coordinate quantization modulus
// (corpus.QuantParams.P) the scores were computed under.
func (p Params) ValidateScoreWindow(dim int, quantP uint64) error {
	half := quantP / 2
	maxScore := uint64(dim) * half * half
	if p.P <= 2*maxScore {
		return pirerr.New(pirerr.KindInvalidConfig,
			"plaintext modulus p=%d too small for the embedding inner-product window: dim=%d quant_p=%d produces scores up to +/-%d, which needs p > %d to avoid wraparound",
			p.P, dim, quantP, maxScore, 2*maxScore)
	}
	return nil
}

// SignedScore reinterprets a Round output (a value in [0,P)) as a signed
// residue in (-P/2, P/2]. Round's mod-P output represents a score around
// zero (QuantizeCentered's zero-mean terms summed over the embedding), not
// a single unsigned plaintext symbol, so ranking reconstructed scores
// requires comparing them as signed integers rather than as raw uint64s:
// otherwise a small negative score (e.g. residue P-1, i.e. -1) reads as
// larger than a genuinely high positive score.
func (p Params) SignedScore(v uint64) int64 {
	return toSigned(v, p.P)
}

// Round performs the nearest-integer rounding spec.md §4.2 specifies for
// reconstruction: out = round(noised / Delta) mod P, ties away from zero.
func (p Params) Round(noised uint64) uint64 {
	delta := p.Delta()
	// noised is already reduced mod Q by the caller's subtraction; treat it
	// as a signed residue in (-Q/2, Q/2] so that rounding ties correctly
	// regardless of which side of zero the noise landed on.
	signed := toSigned(noised, p.Q)
	q := float64(signed) / float64(delta)
	var rounded int64
	if q >= 0 {
		rounded = int64(math.Floor(q + 0.5))
	} else {
		rounded = int64(math.Ceil(q - 0.5))
	}
	return uint64(((rounded % int64(p.P)) + int64(p.P))) % p.P
}

func toSigned(v, mod uint64) int64 {
	half := mod / 2
	if v > half {
		return int64(v) - int64(mod)
	}
	return int64(v)
}

// String renders Params for logs and error messages.
func (p Params) String() string {
	return fmt.Sprintf("Params{n=%d, q=%d, p=%d, sigma=%.3f, rows=%d, cols=%d, secret=%s}",
		p.N, p.Q, p.P, p.Sigma, p.Rows, p.Cols, p.SecretDist)
}
