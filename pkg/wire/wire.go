// Package wire implements the binary wire encoding of spec.md §6: vectors
// and matrices are length-prefixed by (rows, cols) as 32-bit unsigned
// big-endian, followed by row-major data encoded as fixed-width unsigned
// little-endian integers.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/tiptoe-pir/tiptoe/pkg/ffm"
	"github.com/tiptoe-pir/tiptoe/pkg/pirerr"
)

// ElemSize reports the on-wire width in bytes of one Z_q element for the
// given modulus: 4 bytes if it fits in 32 bits, else 8.
func ElemSize(mod uint64) int {
	if mod <= 1<<32 {
		return 4
	}
	return 8
}

// WriteMatrix encodes m per spec.md §6's wire format: 32-bit big-endian
// rows, 32-bit big-endian cols, then row-major little-endian elements each
// ElemSize(m.Mod()) bytes wide.
func WriteMatrix[T ffm.Elem](w io.Writer, m *ffm.Matrix[T]) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(m.Rows()))
	binary.BigEndian.PutUint32(header[4:8], uint32(m.Cols()))
	if _, err := w.Write(header[:]); err != nil {
		return pirerr.Wrap(pirerr.KindTransport, err, "writing matrix header")
	}

	elemSize := ElemSize(m.Mod())
	buf := make([]byte, m.Rows()*m.Cols()*uint64(elemSize))
	offset := 0
	for i := uint64(0); i < m.Rows(); i++ {
		for j := uint64(0); j < m.Cols(); j++ {
			v := m.Get(i, j)
			if elemSize == 4 {
				binary.LittleEndian.PutUint32(buf[offset:offset+4], uint32(v))
			} else {
				binary.LittleEndian.PutUint64(buf[offset:offset+8], v)
			}
			offset += elemSize
		}
	}
	if _, err := w.Write(buf); err != nil {
		return pirerr.Wrap(pirerr.KindTransport, err, "writing matrix body")
	}
	return nil
}

// ReadMatrix decodes a matrix written by WriteMatrix, given the modulus the
// caller expects (servers and clients agree on this out of band via
// /params, per spec.md §6).
func ReadMatrix[T ffm.Elem](r io.Reader, mod uint64) (*ffm.Matrix[T], error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, pirerr.Wrap(pirerr.KindTransport, err, "reading matrix header")
	}
	rows := uint64(binary.BigEndian.Uint32(header[0:4]))
	cols := uint64(binary.BigEndian.Uint32(header[4:8]))

	elemSize := ElemSize(mod)
	buf := make([]byte, rows*cols*uint64(elemSize))
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, pirerr.Wrap(pirerr.KindTransport, err, "reading matrix body")
	}

	m := ffm.New[T](rows, cols, mod)
	offset := 0
	for i := uint64(0); i < rows; i++ {
		for j := uint64(0); j < cols; j++ {
			var v uint64
			if elemSize == 4 {
				v = uint64(binary.LittleEndian.Uint32(buf[offset : offset+4]))
			} else {
				v = binary.LittleEndian.Uint64(buf[offset : offset+8])
			}
			m.Set(i, j, v)
			offset += elemSize
		}
	}
	return m, nil
}
