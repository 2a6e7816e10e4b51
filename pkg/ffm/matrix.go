// Package ffm implements the finite-field matrix layer: dense matrices over
// Z_q with seeded uniform sampling, Gaussian sampling, matmul, mat-vec,
// transpose, and elementwise operations. It generalizes the teacher's
// Matrix[T Elem] generic design (previously backed by cgo Elem32/Elem64
// types) to pure-Go fixed-width integers, per spec.md §9's design note that
// a systems implementation should use u64 entries with widened
// accumulators rather than arbitrary-precision arithmetic.
package ffm

import (
	"math/bits"
	"reflect"

	"github.com/tiptoe-pir/tiptoe/pkg/pirerr"
)

// Elem32 and Elem64 are the two supported matrix element widths.
type (
	Elem32 = uint32
	Elem64 = uint64
)

// Elem constrains Matrix to the fixed-width unsigned integer types the
// engine supports.
type Elem interface {
	Elem32 | Elem64
}

// Matrix is a dense, row-major matrix over Z_mod.
type Matrix[T Elem] struct {
	rows uint64
	cols uint64
	mod  uint64
	data []T
}

// New allocates a zeroed rows-by-cols matrix over Z_mod.
func New[T Elem](rows, cols, mod uint64) *Matrix[T] {
	return &Matrix[T]{rows: rows, cols: cols, mod: mod, data: make([]T, rows*cols)}
}

// Zeros is an alias for New, matching the teacher's naming.
func Zeros[T Elem](rows, cols, mod uint64) *Matrix[T] {
	return New[T](rows, cols, mod)
}

func (m *Matrix[T]) Rows() uint64 { return m.rows }
func (m *Matrix[T]) Cols() uint64 { return m.cols }
func (m *Matrix[T]) Mod() uint64  { return m.mod }

// Get returns the value at (i, j) as a uint64.
func (m *Matrix[T]) Get(i, j uint64) uint64 {
	return uint64(m.data[i*m.cols+j])
}

// Set assigns val (reduced mod m.mod) at (i, j).
func (m *Matrix[T]) Set(i, j uint64, val uint64) {
	m.data[i*m.cols+j] = T(val % m.mod)
}

// Copy returns a deep copy.
func (m *Matrix[T]) Copy() *Matrix[T] {
	out := &Matrix[T]{rows: m.rows, cols: m.cols, mod: m.mod, data: make([]T, len(m.data))}
	copy(out.data, m.data)
	return out
}

// Equals reports whether two matrices have identical shape and contents.
func (m *Matrix[T]) Equals(n *Matrix[T]) bool {
	if m.rows != n.rows || m.cols != n.cols {
		return false
	}
	return reflect.DeepEqual(m.data, n.data)
}

// checkDims reports a pirerr.Dimension error if the two matrices cannot be
// combined elementwise.
func (m *Matrix[T]) checkDims(n *Matrix[T]) error {
	if m.rows != n.rows || m.cols != n.cols {
		return pirerr.New(pirerr.KindDimension, "shape mismatch: %dx%d vs %dx%d", m.rows, m.cols, n.rows, n.cols)
	}
	return nil
}

// Add sets m := m + n (mod q), elementwise.
func (m *Matrix[T]) Add(n *Matrix[T]) error {
	if err := m.checkDims(n); err != nil {
		return err
	}
	for i := range m.data {
		m.data[i] = T(addMod(uint64(m.data[i]), uint64(n.data[i]), m.mod))
	}
	return nil
}

// Sub sets m := m - n (mod q), elementwise.
func (m *Matrix[T]) Sub(n *Matrix[T]) error {
	if err := m.checkDims(n); err != nil {
		return err
	}
	for i := range m.data {
		m.data[i] = T(subMod(uint64(m.data[i]), uint64(n.data[i]), m.mod))
	}
	return nil
}

// MulConst sets m := c*m (mod q), elementwise.
func (m *Matrix[T]) MulConst(c uint64) {
	for i := range m.data {
		m.data[i] = T(mulMod(uint64(m.data[i]), c, m.mod))
	}
}

// Transpose returns the transpose of m.
func (m *Matrix[T]) Transpose() *Matrix[T] {
	out := New[T](m.cols, m.rows, m.mod)
	for i := uint64(0); i < m.rows; i++ {
		for j := uint64(0); j < m.cols; j++ {
			out.Set(j, i, m.Get(i, j))
		}
	}
	return out
}

// Concat appends n's rows to m's, in place, requiring equal column counts.
func (m *Matrix[T]) Concat(n *Matrix[T]) error {
	if m.cols != n.cols {
		return pirerr.New(pirerr.KindDimension, "column mismatch: %d vs %d", m.cols, n.cols)
	}
	m.rows += n.rows
	m.data = append(m.data, n.data...)
	return nil
}

// AppendZeros appends n all-zero rows in place.
func (m *Matrix[T]) AppendZeros(n uint64) {
	m.data = append(m.data, make([]T, n*m.cols)...)
	m.rows += n
}

// GetRows returns a view-free deep copy of [offset, offset+num) rows.
func (m *Matrix[T]) GetRows(offset, num uint64) *Matrix[T] {
	out := New[T](num, m.cols, m.mod)
	copy(out.data, m.data[offset*m.cols:(offset+num)*m.cols])
	return out
}

// Mul computes C = A*B mod q. Each inner-product accumulation is reduced
// modulo q at every term (see mulMod/addMod) rather than widened into a
// single 128-bit accumulator and reduced once, which keeps the
// implementation branch-free across both Elem32 and Elem64 without
// depending on a wider native integer type.
func Mul[T Elem](a, b *Matrix[T]) (*Matrix[T], error) {
	if a.cols != b.rows {
		return nil, pirerr.New(pirerr.KindDimension, "matmul shape mismatch: %dx%d * %dx%d", a.rows, a.cols, b.rows, b.cols)
	}
	if a.mod != b.mod {
		return nil, pirerr.New(pirerr.KindDimension, "modulus mismatch: %d vs %d", a.mod, b.mod)
	}
	out := New[T](a.rows, b.cols, a.mod)
	mod := a.mod
	for i := uint64(0); i < a.rows; i++ {
		for k := uint64(0); k < a.cols; k++ {
			aik := uint64(a.data[i*a.cols+k])
			if aik == 0 {
				continue
			}
			rowB := b.data[k*b.cols : k*b.cols+b.cols]
			rowOut := out.data[i*out.cols : i*out.cols+out.cols]
			for j := uint64(0); j < b.cols; j++ {
				rowOut[j] = T(addMod(uint64(rowOut[j]), mulMod(aik, uint64(rowB[j]), mod), mod))
			}
		}
	}
	return out, nil
}

// MulVec computes A*v mod q for a column vector v (an Nx1 matrix).
func MulVec[T Elem](a, v *Matrix[T]) (*Matrix[T], error) {
	return Mul(a, v)
}

// addMod returns (a+b) mod m for a, b < m. The wraparound check handles the
// rare case where a+b overflows uint64 before the mod-m excess is removed.
func addMod(a, b, m uint64) uint64 {
	s := a + b
	if s < a || s >= m {
		s -= m
	}
	return s
}

// subMod returns (a-b) mod m for a, b < m.
func subMod(a, b, m uint64) uint64 {
	if a >= b {
		return a - b
	}
	return m - (b - a)
}

// mulMod returns a*b mod m without overflowing uint64, widening to a
// 128-bit intermediate via math/bits when m exceeds 2^32 (spec.md §9's
// "u128 accumulators ... falling back to Montgomery multiplication for
// prime q" design note; here the fallback is a plain widened reduction,
// sufficient because Params.Validate requires q to be a power of two).
func mulMod(a, b, m uint64) uint64 {
	a %= m
	b %= m
	if m <= 1<<32 {
		return (a * b) % m
	}
	hi, lo := bits.Mul64(a, b)
	if hi == 0 {
		return lo % m
	}
	_, rem := bits.Div64(hi%m, lo, m)
	return rem
}
