// Package corpus implements the Corpus Preparation Pipeline of spec.md §4.3:
// embedding, clustering, quantization, and the construction of the
// row-aligned embedding and encoding databases that pkg/tiptoe serves PIR
// queries against.
package corpus

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tiptoe-pir/tiptoe/pkg/pirerr"
)

// Embedder maps document text to a real-valued embedding vector, standing in
// for the embedding model spec.md names as an external collaborator and
// explicitly out of scope to implement.
type Embedder interface {
	Embed(text string) ([]float64, error)
}

// EmbedderFunc adapts a plain function to the Embedder interface.
type EmbedderFunc func(text string) ([]float64, error)

func (f EmbedderFunc) Embed(text string) ([]float64, error) { return f(text) }

// Document is a retrievable record: opaque bytes plus the text that was fed
// to the embedder to place it in the corpus (spec.md §3 Document entity).
type Document struct {
	Text  string
	Bytes []byte
}

// magicPrefix marks a genuine (non-padding) row in the encoding database, per
// spec.md §4.3's "client detects them by a reserved magic prefix" invariant.
var magicPrefix = [4]byte{0x7a, 0x1d, 0x4b, 0x9e}

// Pack prepends magicPrefix to b. The caller guarantees len(b) <= recordSize
// - len(magicPrefix); Pack pads the remainder with zeros.
func Pack(b []byte, recordSize int) ([]byte, error) {
	if len(b)+len(magicPrefix) > recordSize {
		return nil, pirerr.New(pirerr.KindInvalidConfig, "document of %d bytes exceeds record size %d", len(b), recordSize)
	}
	out := make([]byte, recordSize)
	copy(out, magicPrefix[:])
	copy(out[len(magicPrefix):], b)
	return out, nil
}

// Unpack strips magicPrefix from a reconstructed record, reporting
// pirerr.DecodeFailure if the prefix is absent — spec.md §4.4's "no match"
// failure semantics, and §4.3's padding-row detection (testable property 5,
// "round-trip packing").
func Unpack(record []byte) ([]byte, error) {
	if len(record) < len(magicPrefix) {
		return nil, pirerr.New(pirerr.KindDecodeFailure, "record shorter than magic prefix")
	}
	for i, b := range magicPrefix {
		if record[i] != b {
			return nil, pirerr.New(pirerr.KindDecodeFailure, "magic prefix absent: no match")
		}
	}
	body := record[len(magicPrefix):]
	// Trailing zero padding is not part of the original bytes; callers that
	// need an exact length should have encoded it themselves (e.g. as a
	// length-prefixed payload before Pack). Here we only strip the prefix.
	return body, nil
}

// PackSymbols packs raw bytes into ceil(len(b)*8 / bitsPerSymbol) symbols in
// Z_q, bitsPerSymbol derived from q so that a quantity p | q elsewhere in
// the scheme still reconstructs these exactly (the encoding DB is carried
// at modulus q directly, since its entries are exact packed data rather
// than LWE-noised values), per spec.md §4.3 step 5.
func PackSymbols(b []byte, q uint64) ([]uint64, error) {
	bitsPerSymbol := bitLenSymbols(q - 1)
	if bitsPerSymbol == 0 || bitsPerSymbol > 63 {
		return nil, pirerr.New(pirerr.KindInvalidConfig, "modulus %d unsuitable for byte packing", q)
	}
	totalBits := len(b) * 8
	numSymbols := (totalBits + bitsPerSymbol - 1) / bitsPerSymbol
	out := make([]uint64, numSymbols)

	var acc uint64
	var accBits int
	sym := 0
	for _, byteVal := range b {
		acc |= uint64(byteVal) << accBits
		accBits += 8
		for accBits >= bitsPerSymbol {
			out[sym] = acc & ((uint64(1) << bitsPerSymbol) - 1)
			sym++
			acc >>= bitsPerSymbol
			accBits -= bitsPerSymbol
		}
	}
	if accBits > 0 && sym < numSymbols {
		out[sym] = acc & ((uint64(1) << bitsPerSymbol) - 1)
	}
	return out, nil
}

// UnpackSymbols inverts PackSymbols, recovering exactly numBytes bytes.
func UnpackSymbols(symbols []uint64, q uint64, numBytes int) ([]byte, error) {
	bitsPerSymbol := bitLenSymbols(q - 1)
	if bitsPerSymbol == 0 || bitsPerSymbol > 63 {
		return nil, pirerr.New(pirerr.KindInvalidConfig, "modulus %d unsuitable for byte packing", q)
	}
	out := make([]byte, numBytes)

	var acc uint64
	var accBits int
	idx := 0
	bytePos := 0
	for idx < len(symbols) && bytePos < numBytes {
		acc |= symbols[idx] << accBits
		accBits += bitsPerSymbol
		idx++
		for accBits >= 8 && bytePos < numBytes {
			out[bytePos] = byte(acc & 0xff)
			bytePos++
			acc >>= 8
			accBits -= 8
		}
	}
	return out, nil
}

func bitLenSymbols(v uint64) int {
	n := 0
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}

// QuantParams are the public affine-transform parameters mapping real
// embedding coordinates into Z_p, shipped to the client per spec.md §4.3
// step 3 ("public and shipped to the client").
type QuantParams struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
	P   uint64  `yaml:"p"`
}

// NewQuantParams fixes the affine range to [-1, 1] -> [0, p), the "fixed
// range" option spec.md §4.3 step 3 offers as an alternative to a
// data-derived global min/max.
func NewQuantParams(p uint64) QuantParams {
	return QuantParams{Min: -1, Max: 1, P: p}
}

// QuantParamsFromData derives Min/Max from the observed embedding matrix,
// the "global min/max" option of spec.md §4.3 step 3.
func QuantParamsFromData(e *mat.Dense, p uint64) QuantParams {
	r, c := e.Dims()
	min, max := math.Inf(1), math.Inf(-1)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := e.At(i, j)
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	if min == max {
		max = min + 1
	}
	return QuantParams{Min: min, Max: max, P: p}
}

// Quantize maps a single real coordinate into [0, p) by the affine transform
// of spec.md §4.3 step 3, clamping out-of-range inputs rather than
// wrapping.
func (q QuantParams) Quantize(v float64) uint64 {
	if v < q.Min {
		v = q.Min
	}
	if v > q.Max {
		v = q.Max
	}
	scaled := (v - q.Min) / (q.Max - q.Min) * float64(q.P-1)
	return uint64(math.Round(scaled))
}

// Dequantize inverts Quantize approximately, for diagnostics and tests.
func (q QuantParams) Dequantize(v uint64) float64 {
	return q.Min + float64(v)/float64(q.P-1)*(q.Max-q.Min)
}

// QuantizeCentered quantizes v the same way Quantize does, then subtracts
// the level Quantize assigns to v=0 and reduces the result into a residue
// mod modulus (which must be a power of two, so the two's-complement
// wraparound of the int64->uint64 conversion is a correct modular
// reduction). The embedding inner-product stage uses this instead of
// Quantize directly: Quantize's raw levels carry a per-coordinate affine
// offset, so Sum_j a_j*q_j over raw levels is biased by Sum_j a_j and
// Sum_j q_j rather than tracking the real dot product a.q. Subtracting the
// same zero-point from both sides of every query cancels that offset,
// leaving a score proportional to a.q up to rounding (spec.md §4.3 step 3's
// latitude on the quantization scheme). For even p the zero-point
// (p-1)/2 is not an integer level and Quantize(0) rounds it up to p/2, so
// centered levels span [-p/2, p/2-1] and carry a half-level bias toward
// negative values.
func (q QuantParams) QuantizeCentered(v float64, modulus uint64) uint64 {
	signed := int64(q.Quantize(v)) - int64(q.Quantize(0))
	return uint64(signed) % modulus
}

// L2Normalize scales every row of e to unit L2 norm in place, spec.md §4.3
// step 1's "optionally L2-normalize rows" — done unconditionally here since
// pkg/tiptoe's cluster routing assumes cosine similarity reduces to a dot
// product against unit vectors.
func L2Normalize(e *mat.Dense) {
	r, c := e.Dims()
	for i := 0; i < r; i++ {
		row := mat.Row(nil, i, e)
		var sumSq float64
		for _, v := range row {
			sumSq += v * v
		}
		norm := math.Sqrt(sumSq)
		if norm == 0 {
			continue
		}
		for j := 0; j < c; j++ {
			e.Set(i, j, row[j]/norm)
		}
	}
}

// StackEmbeddings applies embedder to every document's text and stacks the
// results into an N x d real matrix, per spec.md §4.3 step 1.
func StackEmbeddings(docs []Document, embedder Embedder) (*mat.Dense, error) {
	if len(docs) == 0 {
		return nil, pirerr.New(pirerr.KindInvalidConfig, "cannot build a corpus from zero documents")
	}
	first, err := embedder.Embed(docs[0].Text)
	if err != nil {
		return nil, fmt.Errorf("corpus: embedding document 0: %w", err)
	}
	d := len(first)
	data := make([]float64, len(docs)*d)
	copy(data[:d], first)
	for i := 1; i < len(docs); i++ {
		vec, err := embedder.Embed(docs[i].Text)
		if err != nil {
			return nil, fmt.Errorf("corpus: embedding document %d: %w", i, err)
		}
		if len(vec) != d {
			return nil, pirerr.New(pirerr.KindDimension, "document %d embedding has width %d, want %d", i, len(vec), d)
		}
		copy(data[i*d:(i+1)*d], vec)
	}
	return mat.NewDense(len(docs), d, data), nil
}
