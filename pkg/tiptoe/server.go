package tiptoe

import (
	"github.com/tiptoe-pir/tiptoe/pkg/corpus"
	"github.com/tiptoe-pir/tiptoe/pkg/csprng"
	"github.com/tiptoe-pir/tiptoe/pkg/lwe"
	"github.com/tiptoe-pir/tiptoe/pkg/pirerr"
	"github.com/tiptoe-pir/tiptoe/pkg/simplepir"
)

// Elem is the matrix element width pkg/tiptoe builds its SimplePIR
// databases from, matching pkg/simplepir's own choice.
type Elem = simplepir.Elem

// EmbeddingQuery is the client-to-embedding-server message of spec.md §4.4
// step 3: a cluster index (revealed in the clear, selecting which block of
// rows the server multiplies against) plus a SimplePIR query encoding the
// quantized query embedding in its plaintext slot.
type EmbeddingQuery struct {
	Cluster uint64
	Query   *simplepir.Query
}

// EmbeddingServer holds the full stacked embedding database
// ((k*m_rows_emb) x d) and one global hint computed once over the whole
// stack; per-query it slices out the rows belonging to the requested
// cluster before running SimplePIR's Answer, since H's rows slice exactly
// the same way D's rows do (H = D*A is computed row-independently).
type EmbeddingServer struct {
	Params         lwe.Params
	DB             *simplepir.Database
	Hint           *simplepir.Hint
	RowsPerCluster uint64
	K              uint64
}

// NewEmbeddingServer builds an EmbeddingServer from build Artifacts and
// freshly sampled scheme parameters.
func NewEmbeddingServer(artifacts *corpus.Artifacts, n uint64, sigma float64, secretDist lwe.SecretDistribution) (*EmbeddingServer, [csprng.SeedLen]byte, error) {
	params := artifacts.EmbeddingParams(n, sigma, secretDist)
	if err := params.Validate(); err != nil {
		return nil, [csprng.SeedLen]byte{}, err
	}
	if err := params.ValidateScoreWindow(artifacts.Dim, artifacts.Quant.P); err != nil {
		return nil, [csprng.SeedLen]byte{}, err
	}
	db, err := simplepir.NewDatabase(params, artifacts.EmbeddingDB)
	if err != nil {
		return nil, [csprng.SeedLen]byte{}, err
	}
	seedA, a, err := simplepir.Setup(params)
	if err != nil {
		return nil, [csprng.SeedLen]byte{}, err
	}
	hint, err := simplepir.ComputeHint(params, db, a)
	if err != nil {
		return nil, [csprng.SeedLen]byte{}, err
	}
	return &EmbeddingServer{
		Params:         params,
		DB:             db,
		Hint:           hint,
		RowsPerCluster: uint64(artifacts.RowsPerCluster),
		K:              uint64(artifacts.K),
	}, seedA, nil
}

// Answer slices out the requested cluster's row block and runs SimplePIR's
// Answer against it.
func (s *EmbeddingServer) Answer(q *EmbeddingQuery) (*simplepir.Answer, error) {
	if q.Cluster >= s.K {
		return nil, pirerr.New(pirerr.KindDimension, "cluster index %d out of range [0,%d)", q.Cluster, s.K)
	}
	start := q.Cluster * s.RowsPerCluster
	subDB, err := s.clusterDatabase(start)
	if err != nil {
		return nil, err
	}
	return simplepir.Answer(subDB, q.Query)
}

// HintForCluster returns the hint rows matching the requested cluster, for
// the client to reconstruct against (spec.md §4.2's H must match the
// Database rows Answer used).
func (s *EmbeddingServer) HintForCluster(cluster uint64) *simplepir.Hint {
	start := cluster * s.RowsPerCluster
	return &simplepir.Hint{H: s.Hint.H.GetRows(start, s.RowsPerCluster)}
}

func (s *EmbeddingServer) clusterDatabase(start uint64) (*simplepir.Database, error) {
	sub := s.DB.D.GetRows(start, s.RowsPerCluster)
	subParams := s.Params
	subParams.Rows = s.RowsPerCluster
	return simplepir.NewDatabase(subParams, sub)
}

// EncodingServer holds the encoding database transposed into SimplePIR's
// column-selection shape: rows = R' (symbols per record), cols = total
// document rows (k*m_rows_emb), so that one one-hot column query over the
// *document* axis returns the whole packed record in a single Answer, per
// spec.md §4.4 step 5's "or equivalently" wide-query form — the same
// packing choice SPEC_FULL.md makes for the embedding stage.
type EncodingServer struct {
	Params lwe.Params
	DB     *simplepir.Database
	Hint   *simplepir.Hint
}

// NewEncodingServer transposes the corpus-build encoding matrix and wires
// it up as a SimplePIR database.
func NewEncodingServer(artifacts *corpus.Artifacts, n uint64, sigma float64, secretDist lwe.SecretDistribution) (*EncodingServer, [csprng.SeedLen]byte, error) {
	transposed := artifacts.EncodingDB.Transpose()
	params := lwe.Params{
		N:          n,
		Q:          transposed.Mod(),
		P:          artifacts.Quant.P,
		Sigma:      sigma,
		Rows:       transposed.Rows(),
		Cols:       transposed.Cols(),
		SecretDist: secretDist,
	}
	if err := params.Validate(); err != nil {
		return nil, [csprng.SeedLen]byte{}, err
	}
	db, err := simplepir.NewDatabase(params, transposed)
	if err != nil {
		return nil, [csprng.SeedLen]byte{}, err
	}
	seedA, a, err := simplepir.Setup(params)
	if err != nil {
		return nil, [csprng.SeedLen]byte{}, err
	}
	hint, err := simplepir.ComputeHint(params, db, a)
	if err != nil {
		return nil, [csprng.SeedLen]byte{}, err
	}
	return &EncodingServer{Params: params, DB: db, Hint: hint}, seedA, nil
}

// Answer runs SimplePIR's Answer directly; the row-hiding column selection
// already lives in the caller-supplied query.
func (s *EncodingServer) Answer(q *simplepir.Query) (*simplepir.Answer, error) {
	return simplepir.Answer(s.DB, q)
}
