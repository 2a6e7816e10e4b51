package buildconfig

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
documents:
  - text: doc-1
    bytes_base64: aGVsbG8=
    embedding: [1, 0]
  - text: doc-2
    bytes_base64: d29ybGQ=
    embedding: [0, 1]
kmeans:
  k: 1
  seed: 7
record_size: 32
q: 65536
p: 16
snapshot_path: ./out.bbolt
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0644); err != nil {
		t.Fatalf("writing sample config: %v", err)
	}
	return path
}

func TestLoadConfigValid(t *testing.T) {
	cfg, err := LoadConfig(writeSample(t))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Documents) != 2 {
		t.Fatalf("got %d documents, want 2", len(cfg.Documents))
	}
	if cfg.KMeans.K != 1 || cfg.KMeans.Seed != 7 {
		t.Fatalf("kmeans config not parsed: %+v", cfg.KMeans)
	}
}

func TestValidateRejectsMismatchedEmbeddingDims(t *testing.T) {
	cfg := &Config{
		Documents: []DocumentSpec{
			{Text: "a", BytesBase64: "aGVsbG8=", Embedding: []float64{1, 0}},
			{Text: "b", BytesBase64: "d29ybGQ=", Embedding: []float64{1, 0, 0}},
		},
		RecordSize:   16,
		Q:            1 << 16,
		P:            16,
		SnapshotPath: "out.bbolt",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for mismatched embedding dimensions")
	}
}

func TestValidateRejectsNonPowerOfTwoQ(t *testing.T) {
	cfg := &Config{
		Documents: []DocumentSpec{
			{Text: "a", BytesBase64: "aGVsbG8=", Embedding: []float64{1, 0}},
		},
		RecordSize:   16,
		Q:            100,
		P:            16,
		SnapshotPath: "out.bbolt",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for non-power-of-two q")
	}
}

func TestDecodeBuildsEmbedderFromInlineVectors(t *testing.T) {
	cfg, err := LoadConfig(writeSample(t))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	docs, embedder, err := cfg.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(docs[0].Bytes) != "hello" || string(docs[1].Bytes) != "world" {
		t.Fatalf("unexpected document bytes: %q, %q", docs[0].Bytes, docs[1].Bytes)
	}
	vec, err := embedder.Embed("doc-1")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 || vec[0] != 1 || vec[1] != 0 {
		t.Fatalf("got embedding %v, want [1 0]", vec)
	}
	if _, err := embedder.Embed("unknown"); err == nil {
		t.Fatal("expected an error for an unconfigured document text")
	}
}
