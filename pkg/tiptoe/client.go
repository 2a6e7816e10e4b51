package tiptoe

import (
	"gonum.org/v1/gonum/mat"

	"github.com/tiptoe-pir/tiptoe/pkg/corpus"
	"github.com/tiptoe-pir/tiptoe/pkg/csprng"
	"github.com/tiptoe-pir/tiptoe/pkg/ffm"
	"github.com/tiptoe-pir/tiptoe/pkg/lwe"
	"github.com/tiptoe-pir/tiptoe/pkg/pirerr"
	"github.com/tiptoe-pir/tiptoe/pkg/simplepir"
)

// Client implements the setup and query phases of spec.md §4.4 against the
// two PIR server roles. It holds exactly the state spec.md §4.4 says is
// static between rebuilds and cacheable: Params, SeedA, Hint, Centroids,
// and quantization parameters for both the embedding and encoding
// databases.
type Client struct {
	EmbParams      lwe.Params
	EmbSeedA       [csprng.SeedLen]byte
	EmbHint        *simplepir.Hint // global hint over the full stacked embedding DB
	RowsPerCluster uint64
	K              uint64

	EncParams lwe.Params
	EncSeedA  [csprng.SeedLen]byte
	EncHint   *simplepir.Hint

	Centroids  *mat.Dense
	Quant      corpus.QuantParams
	RecordSize int // R, the original document byte budget before Pack's prefix
	Embedder   corpus.Embedder
}

// EmbeddingAnswerer abstracts the embedding server's network-facing Answer call so
// Client can be driven against either an in-process EmbeddingServer or an
// HTTP client stub, mirroring the teacher's own client/transport split
// (pkg/client talks to internal/server only through an interface).
type EmbeddingAnswerer interface {
	Answer(q *EmbeddingQuery) (*simplepir.Answer, error)
}

// EncodingAnswerer is the analogous abstraction for the encoding server.
type EncodingAnswerer interface {
	Answer(q *simplepir.Query) (*simplepir.Answer, error)
}

// ErrNoMatch is the sentinel Query's error unwraps to (via errors.Is) when
// the retrieved row fails its magic-prefix check, spec.md §4.4's "no match"
// failure semantics — the client does not retry, since the database is
// unchanged.
var ErrNoMatch = pirerr.DecodeFailure

// Query runs the full two-stage protocol of spec.md §4.4 for one user
// query string, returning the matched document's bytes.
func (c *Client) Query(queryText string, emb EmbeddingAnswerer, enc EncodingAnswerer) ([]byte, error) {
	vec, err := c.Embedder.Embed(queryText)
	if err != nil {
		return nil, err
	}
	vec = NormalizeVector(vec)

	cluster := SelectCluster(c.Centroids, vec)

	u := ffm.New[Elem](c.EmbParams.Cols, 1, c.EmbParams.Q)
	for j, v := range vec {
		u.Set(uint64(j), 0, c.Quant.QuantizeCentered(v, c.EmbParams.Q))
	}

	secret1, query1, err := simplepir.NewQueryVector(c.EmbParams, c.EmbSeedA, u)
	if err != nil {
		return nil, err
	}

	ans1, err := emb.Answer(&EmbeddingQuery{Cluster: uint64(cluster), Query: query1})
	if err != nil {
		return nil, err
	}

	hintSub := &simplepir.Hint{H: c.EmbHint.H.GetRows(uint64(cluster)*c.RowsPerCluster, c.RowsPerCluster)}
	scores, err := simplepir.Reconstruct(c.EmbParams, hintSub, secret1, ans1)
	if err != nil {
		return nil, err
	}

	localRow := argmaxColumn(c.EmbParams, scores)
	globalRow := uint64(cluster)*c.RowsPerCluster + localRow

	secret2, query2, err := simplepir.QueryColumn(c.EncParams, c.EncSeedA, globalRow)
	if err != nil {
		return nil, err
	}

	ans2, err := enc.Answer(query2)
	if err != nil {
		return nil, err
	}

	record, err := simplepir.Reconstruct(c.EncParams, c.EncHint, secret2, ans2)
	if err != nil {
		return nil, err
	}

	symbols := make([]uint64, record.Rows())
	for i := uint64(0); i < record.Rows(); i++ {
		symbols[i] = record.Get(i, 0)
	}
	packedLen := c.RecordSize + 4 // magic prefix width
	packed, err := corpus.UnpackSymbols(symbols, c.Quant.P, packedLen)
	if err != nil {
		return nil, err
	}
	return corpus.Unpack(packed)
}

// argmaxColumn picks the row with the highest reconstructed inner-product
// score, interpreting each Round output as the signed residue it actually
// represents (params.SignedScore) rather than as a raw unsigned symbol —
// QuantizeCentered's zero-mean scores can be negative.
func argmaxColumn(params lwe.Params, m *ffm.Matrix[Elem]) uint64 {
	best, bestVal := uint64(0), params.SignedScore(m.Get(0, 0))
	for i := uint64(1); i < m.Rows(); i++ {
		if v := params.SignedScore(m.Get(i, 0)); v > bestVal {
			best, bestVal = i, v
		}
	}
	return best
}
