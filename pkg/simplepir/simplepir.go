// Package simplepir implements the SimplePIR primitive of spec.md §4.2:
// hint generation, query construction, server answer computation, and
// client reconstruction, built on pkg/ffm's finite-field matrix layer and
// pkg/lwe's parameter record.
package simplepir

import (
	"runtime"
	"sync"

	"github.com/tiptoe-pir/tiptoe/pkg/csprng"
	"github.com/tiptoe-pir/tiptoe/pkg/ffm"
	"github.com/tiptoe-pir/tiptoe/pkg/lwe"
	"github.com/tiptoe-pir/tiptoe/pkg/pirerr"
)

// Elem is the matrix element width used throughout the engine. spec.md
// §9 allows either u32 or u64 entries; SimplePIR as wired here always uses
// the wider type, since corpora large enough to need PIR tend to need the
// extra headroom, and pkg/ffm's generic Matrix makes switching cheap if a
// caller ever needs Elem32 instead.
type Elem = ffm.Elem64

// Database is the server-held D in Z_p^{m_rows x m_cols}, represented with
// a modulus of q so it composes directly with A and q_vec in matmuls.
type Database struct {
	Params lwe.Params
	D      *ffm.Matrix[Elem]
}

// NewDatabase wraps a caller-supplied Z_p matrix as a Database, validating
// its shape against params.
func NewDatabase(params lwe.Params, d *ffm.Matrix[Elem]) (*Database, error) {
	if d.Rows() != params.Rows || d.Cols() != params.Cols {
		return nil, pirerr.New(pirerr.KindDimension, "database shape %dx%d does not match params %dx%d",
			d.Rows(), d.Cols(), params.Rows, params.Cols)
	}
	return &Database{Params: params, D: d}, nil
}

// Hint is the client-side preprocessed H = D*A, computed once per database.
type Hint struct {
	H *ffm.Matrix[Elem]
}

// Secret is the client's per-query LWE secret, discarded after
// reconstruction. It is not exported outside this package's return values
// to discourage accidental reuse across queries.
type Secret struct {
	s *ffm.Matrix[Elem]
}

// Query is the client-to-server message: a vector in Z_q^{m_cols}.
type Query struct {
	Vec *ffm.Matrix[Elem]
}

// Answer is the server-to-client message: a vector in Z_q^{m_rows}.
type Answer struct {
	Vec *ffm.Matrix[Elem]
}

// Setup samples SeedA and expands the public matrix A in Z_q^{m_cols x n},
// per spec.md §4.2.
func Setup(params lwe.Params) ([csprng.SeedLen]byte, *ffm.Matrix[Elem], error) {
	if err := params.Validate(); err != nil {
		return [csprng.SeedLen]byte{}, nil, err
	}
	seedA, err := csprng.FreshSeed()
	if err != nil {
		return seedA, nil, pirerr.Wrap(pirerr.KindTransport, err, "failed to sample seedA")
	}
	a := ffm.Expand[Elem](seedA, params.Cols, params.N, params.Q)
	return seedA, a, nil
}

// ComputeHint computes H = D*A once per database. Its dimensions are
// m_rows x n.
func ComputeHint(params lwe.Params, db *Database, a *ffm.Matrix[Elem]) (*Hint, error) {
	if db.D.Cols() != a.Rows() {
		return nil, pirerr.New(pirerr.KindDimension, "D cols (%d) != A rows (%d)", db.D.Cols(), a.Rows())
	}
	h, err := ffm.Mul(db.D, a)
	if err != nil {
		return nil, err
	}
	return &Hint{H: h}, nil
}

// OneHot builds the column selector u with u[index] = 1 and all other
// entries 0, the standard single-row-retrieval selector.
func OneHot(params lwe.Params, index uint64) (*ffm.Matrix[Elem], error) {
	if index >= params.Cols {
		return nil, pirerr.New(pirerr.KindDimension, "column index %d out of range [0,%d)", index, params.Cols)
	}
	u := ffm.New[Elem](params.Cols, 1, params.Q)
	u.Set(index, 0, 1)
	return u, nil
}

// sampleSecret draws a fresh client secret per params.SecretDist.
func sampleSecret(params lwe.Params) (*ffm.Matrix[Elem], error) {
	switch params.SecretDist {
	case lwe.SecretTernary:
		return ffm.Ternary[Elem](params.N, 1, params.Q), nil
	default:
		return ffm.UniformFresh[Elem](params.N, 1, params.Q)
	}
}

// NewQueryVector builds a SimplePIR query encoding an arbitrary plaintext
// vector u in Z_p^{m_cols} (not necessarily one-hot) into the selector
// slot: q_vec = A*s + e + Delta*u. This generalization over a bare
// one-hot selector is what lets pkg/tiptoe's inner-product PIR encode a
// whole quantized query embedding in a single SimplePIR query, per
// SPEC_FULL.md §3.2.
func NewQueryVector(params lwe.Params, seedA [csprng.SeedLen]byte, u *ffm.Matrix[Elem]) (*Secret, *Query, error) {
	if u.Rows() != params.Cols || u.Cols() != 1 {
		return nil, nil, pirerr.New(pirerr.KindDimension, "selector shape %dx%d, want %dx1", u.Rows(), u.Cols(), params.Cols)
	}

	a := ffm.Expand[Elem](seedA, params.Cols, params.N, params.Q)

	s, err := sampleSecret(params)
	if err != nil {
		return nil, nil, pirerr.Wrap(pirerr.KindTransport, err, "failed to sample secret")
	}

	query, err := ffm.Mul(a, s)
	if err != nil {
		return nil, nil, err
	}
	e := ffm.Gaussian[Elem](params.Cols, 1, params.Q, params.Sigma)
	if err := query.Add(e); err != nil {
		return nil, nil, err
	}

	scaledU := u.Copy()
	scaledU.MulConst(params.Delta())
	if err := query.Add(scaledU); err != nil {
		return nil, nil, err
	}

	return &Secret{s: s}, &Query{Vec: query}, nil
}

// QueryColumn builds a SimplePIR query selecting column index (the
// single-column, one-hot case spec.md §4.2 names directly).
func QueryColumn(params lwe.Params, seedA [csprng.SeedLen]byte, index uint64) (*Secret, *Query, error) {
	u, err := OneHot(params, index)
	if err != nil {
		return nil, nil, err
	}
	return NewQueryVector(params, seedA, u)
}

// rowShards splits [0, rows) into up to GOMAXPROCS contiguous ranges for
// parallel answer computation, per spec.md §9's "D*q_vec is embarrassingly
// parallel over rows" design note.
func rowShards(rows uint64) [][2]uint64 {
	if rows == 0 {
		return nil
	}
	workers := uint64(runtime.GOMAXPROCS(0))
	if workers == 0 {
		workers = 1
	}
	if workers > rows {
		workers = rows
	}
	shardSize := (rows + workers - 1) / workers
	var shards [][2]uint64
	for start := uint64(0); start < rows; start += shardSize {
		end := start + shardSize
		if end > rows {
			end = rows
		}
		shards = append(shards, [2]uint64{start, end})
	}
	return shards
}

// Answer computes a_vec = D*q_vec mod q, sharding the row range across a
// worker pool and combining the results.
func Answer(db *Database, q *Query) (*Answer, error) {
	if db.D.Cols() != q.Vec.Rows() {
		return nil, pirerr.New(pirerr.KindDimension, "D cols (%d) != query rows (%d)", db.D.Cols(), q.Vec.Rows())
	}

	shards := rowShards(db.D.Rows())
	out := ffm.New[Elem](db.D.Rows(), 1, db.Params.Q)

	var wg sync.WaitGroup
	errs := make([]error, len(shards))
	for i, shard := range shards {
		wg.Add(1)
		go func(i int, start, end uint64) {
			defer wg.Done()
			sub := db.D.GetRows(start, end-start)
			res, err := ffm.Mul(sub, q.Vec)
			if err != nil {
				errs[i] = err
				return
			}
			for r := uint64(0); r < res.Rows(); r++ {
				out.Set(start+r, 0, res.Get(r, 0))
			}
		}(i, shard[0], shard[1])
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return &Answer{Vec: out}, nil
}

// Reconstruct recovers the plaintext column Z_p^{m_rows} that the server's
// answer encodes, per spec.md §4.2: r = a_vec - H*s, out[i] =
// round(r[i]/Delta) mod p. It never panics on adversarial input; a
// dimension mismatch between the hint and the answer is reported as a
// typed pirerr.Dimension error, and a silent decode failure (missing magic
// prefix) is the caller's responsibility to detect, per spec.md §4.2's
// "Failures" note.
func Reconstruct(params lwe.Params, h *Hint, secret *Secret, ans *Answer) (*ffm.Matrix[Elem], error) {
	if h.H.Rows() != ans.Vec.Rows() {
		return nil, pirerr.New(pirerr.KindDimension, "hint rows (%d) != answer rows (%d)", h.H.Rows(), ans.Vec.Rows())
	}
	if h.H.Cols() != secret.s.Rows() {
		return nil, pirerr.New(pirerr.KindDimension, "hint cols (%d) != secret rows (%d)", h.H.Cols(), secret.s.Rows())
	}

	interm, err := ffm.Mul(h.H, secret.s)
	if err != nil {
		return nil, err
	}

	r := ans.Vec.Copy()
	if err := r.Sub(interm); err != nil {
		return nil, err
	}

	out := ffm.New[Elem](r.Rows(), 1, params.P)
	for i := uint64(0); i < r.Rows(); i++ {
		out.Set(i, 0, params.Round(r.Get(i, 0)))
	}
	return out, nil
}
