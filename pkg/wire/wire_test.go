package wire

import (
	"bytes"
	"testing"

	"github.com/tiptoe-pir/tiptoe/pkg/csprng"
	"github.com/tiptoe-pir/tiptoe/pkg/ffm"
	"github.com/tiptoe-pir/tiptoe/pkg/lwe"
)

func TestMatrixRoundTripSmallModulus(t *testing.T) {
	mod := uint64(1 << 16)
	m := ffm.New[ffm.Elem64](3, 4, mod)
	val := uint64(0)
	for i := uint64(0); i < 3; i++ {
		for j := uint64(0); j < 4; j++ {
			m.Set(i, j, val%mod)
			val += 7
		}
	}

	var buf bytes.Buffer
	if err := WriteMatrix(&buf, m); err != nil {
		t.Fatalf("WriteMatrix: %v", err)
	}

	out, err := ReadMatrix[ffm.Elem64](&buf, mod)
	if err != nil {
		t.Fatalf("ReadMatrix: %v", err)
	}
	if !m.Equals(out) {
		t.Fatal("round-trip mismatch for small-modulus matrix")
	}
}

func TestMatrixRoundTripWideModulus(t *testing.T) {
	mod := uint64(1) << 40
	m := ffm.New[ffm.Elem64](2, 2, mod)
	m.Set(0, 0, 1)
	m.Set(0, 1, mod-1)
	m.Set(1, 0, 12345678901)
	m.Set(1, 1, 0)

	var buf bytes.Buffer
	if err := WriteMatrix(&buf, m); err != nil {
		t.Fatalf("WriteMatrix: %v", err)
	}
	if ElemSize(mod) != 8 {
		t.Fatalf("ElemSize(%d) = %d, want 8", mod, ElemSize(mod))
	}

	out, err := ReadMatrix[ffm.Elem64](&buf, mod)
	if err != nil {
		t.Fatalf("ReadMatrix: %v", err)
	}
	if !m.Equals(out) {
		t.Fatal("round-trip mismatch for wide-modulus matrix")
	}
}

func TestParamsRoundTrip(t *testing.T) {
	params := lwe.Params{
		N:          1024,
		Q:          1 << 32,
		P:          256,
		Sigma:      6.4,
		Rows:       1024,
		Cols:       1024,
		SecretDist: lwe.SecretUniform,
	}
	seedA, err := csprng.FreshSeed()
	if err != nil {
		t.Fatalf("FreshSeed: %v", err)
	}

	pj := EncodeParams(params, seedA)
	gotParams, gotSeed, err := DecodeParams(pj)
	if err != nil {
		t.Fatalf("DecodeParams: %v", err)
	}

	if gotParams.N != params.N || gotParams.Q != params.Q || gotParams.P != params.P ||
		gotParams.Rows != params.Rows || gotParams.Cols != params.Cols {
		t.Fatalf("decoded params mismatch: got %+v, want %+v", gotParams, params)
	}
	if gotSeed != seedA {
		t.Fatal("decoded seedA mismatch")
	}
}
