package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/tiptoe-pir/tiptoe/pkg/ffm"
)

// EncodeMatrixBytes wraps WriteMatrix for at-rest storage (internal/snapshot's
// bbolt buckets), prefixing the modulus so DecodeMatrixBytes is self-describing
// without an out-of-band /params fetch — unlike the network wire format,
// which assumes client and server already agree on Params.
func EncodeMatrixBytes[T ffm.Elem](m *ffm.Matrix[T]) ([]byte, error) {
	var buf bytes.Buffer
	var modHeader [8]byte
	binary.BigEndian.PutUint64(modHeader[:], m.Mod())
	if _, err := buf.Write(modHeader[:]); err != nil {
		return nil, fmt.Errorf("wire: writing modulus header: %w", err)
	}
	if err := WriteMatrix(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeMatrixBytes inverts EncodeMatrixBytes.
func DecodeMatrixBytes[T ffm.Elem](data []byte) (*ffm.Matrix[T], error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("wire: matrix blob too short for modulus header")
	}
	mod := binary.BigEndian.Uint64(data[:8])
	return ReadMatrix[T](bytes.NewReader(data[8:]), mod)
}

// DecodeCentroids unmarshals a gonum mat.Dense previously persisted via its
// own MarshalBinary.
func DecodeCentroids(data []byte) (*mat.Dense, error) {
	var d mat.Dense
	if err := d.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("wire: decoding centroids: %w", err)
	}
	return &d, nil
}
