package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/tiptoe-pir/tiptoe/pkg/corpus"
)

type constEmbedder struct{ vecs [][]float64 }

func (c constEmbedder) Embed(text string) ([]float64, error) {
	idx := 0
	switch text {
	case "doc-1":
		idx = 0
	case "doc-2":
		idx = 1
	}
	return c.vecs[idx], nil
}

func buildTestArtifacts(t *testing.T) (*corpus.Artifacts, []corpus.Document) {
	t.Helper()
	docs := []corpus.Document{
		{Text: "doc-1", Bytes: []byte("hello")},
		{Text: "doc-2", Bytes: []byte("world")},
	}
	embedder := constEmbedder{vecs: [][]float64{{1, 0}, {0, 1}}}
	artifacts, err := corpus.Build(docs, embedder, corpus.BuildParams{
		KMeans:     corpus.KMeansParams{K: 1, Seed: 1},
		RecordSize: 8,
		Q:          1 << 16,
		P:          16,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return artifacts, docs
}

func TestPersistRestoreRoundTrip(t *testing.T) {
	artifacts, docs := buildTestArtifacts(t)
	path := filepath.Join(t.TempDir(), "gen1.bbolt")

	gen, err := Persist(path, artifacts, docs)
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if gen.Path != path {
		t.Fatalf("Generation.Path = %q, want %q", gen.Path, path)
	}

	restored, err := Restore(path)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}

	if !restored.Artifacts.EmbeddingDB.Equals(artifacts.EmbeddingDB) {
		t.Fatal("restored embedding DB does not match original")
	}
	if !restored.Artifacts.EncodingDB.Equals(artifacts.EncodingDB) {
		t.Fatal("restored encoding DB does not match original")
	}
	if restored.Artifacts.K != artifacts.K {
		t.Fatalf("restored K = %d, want %d", restored.Artifacts.K, artifacts.K)
	}
	if restored.Artifacts.RowsPerCluster != artifacts.RowsPerCluster {
		t.Fatalf("restored RowsPerCluster = %d, want %d", restored.Artifacts.RowsPerCluster, artifacts.RowsPerCluster)
	}
	if len(restored.Documents) != len(docs) {
		t.Fatalf("restored %d documents, want %d", len(restored.Documents), len(docs))
	}

	cr, cc := restored.Artifacts.Centroids.Dims()
	or, oc := artifacts.Centroids.Dims()
	if cr != or || cc != oc {
		t.Fatalf("restored centroid shape %dx%d != original %dx%d", cr, cc, or, oc)
	}
}

func TestStoreAtomicSwap(t *testing.T) {
	artifacts1, docs1 := buildTestArtifacts(t)
	gen1 := &Generation{Artifacts: artifacts1, Documents: docs1, Path: "gen1"}

	store := NewStore()
	if store.Load() != nil {
		t.Fatal("new Store should have no current generation")
	}

	store.Commit(gen1)
	loaded := store.Load()
	if loaded != gen1 {
		t.Fatal("Load did not return the committed generation")
	}

	artifacts2, docs2 := buildTestArtifacts(t)
	gen2 := &Generation{Artifacts: artifacts2, Documents: docs2, Path: "gen2"}
	store.Commit(gen2)

	if store.Load() != gen2 {
		t.Fatal("Load did not return the newly committed generation after swap")
	}
	// gen1 itself is untouched — a reader holding it from before the swap
	// would still see consistent data.
	if gen1.Path != "gen1" {
		t.Fatal("prior generation was mutated by a later commit")
	}
}
