package tiptoe

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/tiptoe-pir/tiptoe/pkg/corpus"
	"github.com/tiptoe-pir/tiptoe/pkg/lwe"
)

func newCentroids(rows [][]float64) *mat.Dense {
	k := len(rows)
	d := len(rows[0])
	data := make([]float64, 0, k*d)
	for _, r := range rows {
		data = append(data, r...)
	}
	return mat.NewDense(k, d, data)
}

// fixedEmbedder maps a small fixed vocabulary of query/document strings to
// hand-placed 2D points, so the test has an obvious ground-truth clustering
// and nearest-neighbor answer without depending on a real embedding model.
type fixedEmbedder map[string][]float64

func (f fixedEmbedder) Embed(text string) ([]float64, error) {
	if v, ok := f[text]; ok {
		out := make([]float64, len(v))
		copy(out, v)
		return out, nil
	}
	return []float64{0, 0}, nil
}

func TestTwoStageRetrievalEndToEnd(t *testing.T) {
	vocab := fixedEmbedder{
		"doc-a":        {1, 0},
		"doc-b":        {0.9, 0.1},
		"doc-c":        {-1, 0},
		"doc-d":        {-0.9, -0.1},
		"query-near-a": {1, 0.05},
		"query-near-c": {-1, -0.05},
	}

	docs := []corpus.Document{
		{Text: "doc-a", Bytes: []byte("alpha")},
		{Text: "doc-b", Bytes: []byte("bravo")},
		{Text: "doc-c", Bytes: []byte("charlie")},
		{Text: "doc-d", Bytes: []byte("delta")},
	}

	artifacts, err := corpus.Build(docs, vocab, corpus.BuildParams{
		KMeans:     corpus.KMeansParams{K: 2, Seed: 1},
		RecordSize: 8,
		Q:          1 << 32,
		P:          16,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	embServer, embSeedA, err := NewEmbeddingServer(artifacts, 512, 6.4, lwe.SecretUniform)
	if err != nil {
		t.Fatalf("NewEmbeddingServer: %v", err)
	}
	encServer, encSeedA, err := NewEncodingServer(artifacts, 512, 6.4, lwe.SecretUniform)
	if err != nil {
		t.Fatalf("NewEncodingServer: %v", err)
	}

	client := &Client{
		EmbParams:      embServer.Params,
		EmbSeedA:       embSeedA,
		EmbHint:        embServer.Hint,
		RowsPerCluster: embServer.RowsPerCluster,
		K:              embServer.K,
		EncParams:      encServer.Params,
		EncSeedA:       encSeedA,
		EncHint:        encServer.Hint,
		Centroids:      artifacts.Centroids,
		Quant:          artifacts.Quant,
		RecordSize:     8,
		Embedder:       vocab,
	}

	got, err := client.Query("query-near-a", embServer, encServer)
	if err != nil {
		t.Fatalf("Query(query-near-a): %v", err)
	}
	want := "alpha"
	if string(got[:len(want)]) != want {
		t.Fatalf("Query(query-near-a) = %q, want prefix %q", got, want)
	}

	got2, err := client.Query("query-near-c", embServer, encServer)
	if err != nil {
		t.Fatalf("Query(query-near-c): %v", err)
	}
	want2 := "charlie"
	if string(got2[:len(want2)]) != want2 {
		t.Fatalf("Query(query-near-c) = %q, want prefix %q", got2, want2)
	}
}

func TestSelectClusterTieBreaksLowestIndex(t *testing.T) {
	centroids := newCentroids([][]float64{{1, 0}, {1, 0}, {0, 1}})
	got := SelectCluster(centroids, []float64{1, 0})
	if got != 0 {
		t.Fatalf("SelectCluster tie = %d, want 0 (lowest index)", got)
	}
}

func TestSelectClusterZeroVectorPicksClusterZero(t *testing.T) {
	centroids := newCentroids([][]float64{{0.5, 0.5}, {-0.5, 0.5}, {0, -1}})
	got := SelectCluster(centroids, []float64{0, 0})
	if got != 0 {
		t.Fatalf("SelectCluster(zero vector) = %d, want 0", got)
	}
}
