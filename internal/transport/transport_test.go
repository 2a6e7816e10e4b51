package transport

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/tiptoe-pir/tiptoe/pkg/ffm"
	"github.com/tiptoe-pir/tiptoe/pkg/lwe"
	"github.com/tiptoe-pir/tiptoe/pkg/pirerr"
	"github.com/tiptoe-pir/tiptoe/pkg/simplepir"
	"github.com/tiptoe-pir/tiptoe/pkg/tiptoe"
)

func TestStatusForMapsKinds(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{pirerr.New(pirerr.KindDimension, "x"), http.StatusBadRequest},
		{pirerr.New(pirerr.KindDecodeFailure, "x"), http.StatusBadRequest},
		{pirerr.New(pirerr.KindInvalidConfig, "x"), http.StatusBadRequest},
		{pirerr.New(pirerr.KindParameterMismatch, "x"), http.StatusConflict},
		{pirerr.New(pirerr.KindTransport, "x"), http.StatusServiceUnavailable},
		{bytes.ErrTooLarge, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := StatusFor(c.err); got != c.want {
			t.Errorf("StatusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestEmbeddingQueryRoundTrip(t *testing.T) {
	params := lwe.Params{N: 512, Q: 1 << 16, P: 16, Sigma: 3.2, Rows: 4, Cols: 4, SecretDist: lwe.SecretUniform}
	vec := ffm.New[ffm.Elem64](params.Cols, 1, params.Q)
	vec.Set(2, 0, 7)
	q := &tiptoe.EmbeddingQuery{Cluster: 3, Query: &simplepir.Query{Vec: vec}}

	var buf bytes.Buffer
	if err := WriteEmbeddingQuery(&buf, q); err != nil {
		t.Fatalf("WriteEmbeddingQuery: %v", err)
	}

	got, err := ReadEmbeddingQuery(&buf, params)
	if err != nil {
		t.Fatalf("ReadEmbeddingQuery: %v", err)
	}
	if got.Cluster != 3 {
		t.Fatalf("got cluster %d, want 3", got.Cluster)
	}
	if !got.Query.Vec.Equals(vec) {
		t.Fatal("decoded query vector does not match original")
	}
}
