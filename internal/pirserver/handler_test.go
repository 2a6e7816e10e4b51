package pirserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/go-hclog"

	"github.com/tiptoe-pir/tiptoe/internal/snapshot"
	"github.com/tiptoe-pir/tiptoe/internal/transport"
	"github.com/tiptoe-pir/tiptoe/pkg/corpus"
	"github.com/tiptoe-pir/tiptoe/pkg/lwe"
	"github.com/tiptoe-pir/tiptoe/pkg/tiptoe"
	"github.com/tiptoe-pir/tiptoe/pkg/wire"
)

type gridEmbedder map[string][]float64

func (g gridEmbedder) Embed(text string) ([]float64, error) { return g[text], nil }

func testArtifacts(t *testing.T) (*corpus.Artifacts, []corpus.Document) {
	t.Helper()
	docs := []corpus.Document{
		{Text: "a", Bytes: []byte("alpha")},
		{Text: "b", Bytes: []byte("bravo")},
	}
	embedder := gridEmbedder{"a": {1, 0}, "b": {0, 1}}
	artifacts, err := corpus.Build(docs, embedder, corpus.BuildParams{
		KMeans:     corpus.KMeansParams{K: 1, Seed: 1},
		RecordSize: 16,
		Q:          1 << 32,
		P:          16,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return artifacts, docs
}

// TestEndToEndOverHTTP spins up real embedding-server and encoding-server
// HTTP handlers via httptest, drives them with internal/transport's HTTP
// client stubs, and runs pkg/tiptoe.Client.Query against them — the
// network-bound counterpart of pkg/tiptoe's in-process end-to-end test.
func TestEndToEndOverHTTP(t *testing.T) {
	artifacts, docs := testArtifacts(t)

	logger := hclog.NewNullLogger()

	embServer, embSeedA, err := tiptoe.NewEmbeddingServer(artifacts, 512, 6.4, lwe.SecretUniform)
	if err != nil {
		t.Fatalf("NewEmbeddingServer: %v", err)
	}
	store := snapshot.NewStore()
	store.Commit(&snapshot.Generation{Artifacts: artifacts, Documents: docs})
	embHandler := &EmbeddingHandler{Server: embServer, Store: store, SeedA: func() [32]byte { return embSeedA }, Log: logger}
	embSrv := httptest.NewServer(embHandler.Mux())
	defer embSrv.Close()

	encServer, encSeedA, err := tiptoe.NewEncodingServer(artifacts, 512, 6.4, lwe.SecretUniform)
	if err != nil {
		t.Fatalf("NewEncodingServer: %v", err)
	}
	encHandler := &EncodingHandler{Server: encServer, SeedA: func() [32]byte { return encSeedA }, Log: logger}
	encSrv := httptest.NewServer(encHandler.Mux())
	defer encSrv.Close()

	embParams, embSeedAGot, embHint, err := transport.FetchEmbeddingSetup(embSrv.URL, http.DefaultClient)
	if err != nil {
		t.Fatalf("FetchEmbeddingSetup: %v", err)
	}
	encParams, encSeedAGot, encHint, err := transport.FetchEncodingSetup(encSrv.URL, http.DefaultClient)
	if err != nil {
		t.Fatalf("FetchEncodingSetup: %v", err)
	}
	cj, err := transport.FetchCentroids(embSrv.URL, http.DefaultClient)
	if err != nil {
		t.Fatalf("FetchCentroids: %v", err)
	}

	centroids, quant, rowsPerCluster := wire.DecodeCentroidsJSON(cj)

	client := &tiptoe.Client{
		EmbParams:      embParams,
		EmbSeedA:       embSeedAGot,
		EmbHint:        embHint,
		RowsPerCluster: uint64(rowsPerCluster),
		K:              uint64(cj.K),
		EncParams:      encParams,
		EncSeedA:       encSeedAGot,
		EncHint:        encHint,
		Centroids:      centroids,
		Quant:          quant,
		RecordSize:     16,
		Embedder:       gridEmbedder{"query-a": {1, 0}},
	}

	embClient := &transport.EmbeddingClient{BaseURL: embSrv.URL, HTTP: http.DefaultClient, Params: embParams}
	encClient := &transport.EncodingClient{BaseURL: encSrv.URL, HTTP: http.DefaultClient, Params: encParams}

	result, err := client.Query("query-a", embClient, encClient)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if string(result[:5]) != "alpha" {
		t.Fatalf("got %q, want prefix %q", result, "alpha")
	}
}
