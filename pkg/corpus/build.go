package corpus

import (
	"gonum.org/v1/gonum/mat"

	"github.com/tiptoe-pir/tiptoe/pkg/ffm"
	"github.com/tiptoe-pir/tiptoe/pkg/lwe"
	"github.com/tiptoe-pir/tiptoe/pkg/pirerr"
)

// BuildParams configures one end-to-end corpus build, per spec.md §4.3.
type BuildParams struct {
	KMeans     KMeansParams
	RecordSize int    // R, max document byte length before packing
	Q          uint64 // shared Z_q modulus for both databases
	P          uint64 // shared plaintext modulus
}

// Artifacts bundles everything spec.md §4.3 step 6 says a build must emit:
// the two databases, their shared row layout, the quantization parameters,
// and the cluster centroids.
type Artifacts struct {
	EmbeddingDB      *ffm.Matrix[ffm.Elem64] // (k * m_rows_emb) x d, in Z_q
	EncodingDB       *ffm.Matrix[ffm.Elem64] // (k * m_rows_emb) x R', in Z_q
	Centroids        *mat.Dense              // k x d, real-valued, shipped to client
	Quant            QuantParams
	K                int
	RowsPerCluster   int // m_rows_emb
	SymbolsPerRecord int // R', ceil(log2(p)-bit packing width) per document
	Dim              int // d, embedding dimensionality
}

// symbolsPerRecord computes R' = ceil(R*8 / log2(p)), the number of Z_p
// symbols needed to hold RecordSize bytes plus the magic prefix, per
// spec.md §4.3 step 5.
func symbolsPerRecord(recordSize int, q uint64) int {
	bitsPerSymbol := bitLenSymbols(q - 1)
	if bitsPerSymbol == 0 {
		bitsPerSymbol = 1
	}
	totalBits := recordSize * 8
	return (totalBits + bitsPerSymbol - 1) / bitsPerSymbol
}

// Build runs the full pipeline of spec.md §4.3: embed, cluster, quantize,
// and assemble the row-aligned embedding and encoding databases.
func Build(docs []Document, embedder Embedder, params BuildParams) (*Artifacts, error) {
	if len(docs) == 0 {
		return nil, pirerr.New(pirerr.KindInvalidConfig, "cannot build a corpus from zero documents")
	}

	e, err := StackEmbeddings(docs, embedder)
	if err != nil {
		return nil, err
	}
	L2Normalize(e)

	kmp := params.KMeans
	if kmp.K == 0 {
		kmp.K = DefaultK(len(docs))
	}
	result, err := KMeans(e, kmp)
	if err != nil {
		return nil, err
	}

	quant := NewQuantParams(params.P)

	n, d := e.Dims()
	k := kmp.K

	rowsPerCluster := maxClusterSize(result.Assignment, k)
	if rowsPerCluster == 0 {
		rowsPerCluster = 1
	}

	symbols := symbolsPerRecord(params.RecordSize+len(magicPrefix), params.P)

	embMatrix := ffm.New[ffm.Elem64](uint64(k*rowsPerCluster), uint64(d), params.Q)
	encMatrix := ffm.New[ffm.Elem64](uint64(k*rowsPerCluster), uint64(symbols), params.Q)

	localIdx := make([]int, k)
	for i := 0; i < n; i++ {
		c := result.Assignment[i]
		local := localIdx[c]
		localIdx[c]++
		if local >= rowsPerCluster {
			// Cannot happen when KMeansParams.MaxPerCluster <= rowsPerCluster,
			// but guard rather than silently overwrite another document's row.
			return nil, pirerr.New(pirerr.KindInvalidConfig, "cluster %d overflowed its padded row budget", c)
		}
		globalRow := uint64(c*rowsPerCluster + local)

		row := mat.Row(nil, i, e)
		for j, v := range row {
			embMatrix.Set(globalRow, uint64(j), quant.QuantizeCentered(v, params.Q))
		}

		packed, err := Pack(docs[i].Bytes, params.RecordSize+len(magicPrefix))
		if err != nil {
			return nil, err
		}
		syms, err := PackSymbols(packed, params.P)
		if err != nil {
			return nil, err
		}
		for j, v := range syms {
			encMatrix.Set(globalRow, uint64(j), v)
		}
	}
	// Remaining (padding) rows are left all-zero by ffm.New, which both
	// matrices already default to, satisfying spec.md §4.3's "padding rows
	// have all-zero embeddings and all-zero encoded bytes" invariant.

	return &Artifacts{
		EmbeddingDB:      embMatrix,
		EncodingDB:       encMatrix,
		Centroids:        result.Centroids,
		Quant:            quant,
		K:                k,
		RowsPerCluster:   rowsPerCluster,
		SymbolsPerRecord: symbols,
		Dim:              d,
	}, nil
}

func maxClusterSize(assignment []int, k int) int {
	counts := make([]int, k)
	for _, c := range assignment {
		counts[c]++
	}
	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	return max
}

// MaxEmbeddingScore bounds the magnitude of the inner-product stage's
// reconstructed score after zero-mean quantization (QuantizeCentered):
// each centered level lies in [-floor(quantP/2), ceil(quantP/2)-1], so each
// of the dim coordinates contributes a term bounded by floor(quantP/2)^2 in
// the worst case, and the terms are summed (spec.md §4.2's correctness
// window for the embedding stage).
func MaxEmbeddingScore(dim int, quantP uint64) uint64 {
	half := quantP / 2
	return uint64(dim) * half * half
}

// embeddingScoreModulus picks the smallest power of two strictly greater
// than twice MaxEmbeddingScore, so the reconstructed (signed) score fits
// without wrapping mod P regardless of its sign — the plaintext modulus
// the embedding-stage scheme needs is governed by this score range, not by
// the quantization granularity quantP.
func embeddingScoreModulus(dim int, quantP uint64) uint64 {
	bound := 2*MaxEmbeddingScore(dim, quantP) + 1
	p := uint64(1)
	for p < bound {
		p <<= 1
	}
	return p
}

// EmbeddingParams derives the SimplePIR Params matching the embedding
// database an Artifacts bundle produces, given the LWE dimension n and error stddev
// sigma a deployment chooses. The embedding stage's plaintext modulus is
// sized to the inner-product correctness window (embeddingScoreModulus),
// not the quantization modulus Quant.P the encoding stage's symbol packing
// uses.
func (a *Artifacts) EmbeddingParams(n uint64, sigma float64, secretDist lwe.SecretDistribution) lwe.Params {
	return lwe.Params{
		N:          n,
		Q:          a.EmbeddingDB.Mod(),
		P:          embeddingScoreModulus(a.Dim, a.Quant.P),
		Sigma:      sigma,
		Rows:       a.EmbeddingDB.Rows(),
		Cols:       a.EmbeddingDB.Cols(),
		SecretDist: secretDist,
	}
}

func (a *Artifacts) EncodingParams(n uint64, sigma float64, p uint64, secretDist lwe.SecretDistribution) lwe.Params {
	return lwe.Params{
		N:          n,
		Q:          a.EncodingDB.Mod(),
		P:          p,
		Sigma:      sigma,
		Rows:       a.EncodingDB.Rows(),
		Cols:       a.EncodingDB.Cols(),
		SecretDist: secretDist,
	}
}
