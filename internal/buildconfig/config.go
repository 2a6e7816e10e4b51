// Package buildconfig defines the YAML configuration cmd/build-corpus
// reads to drive an offline corpus-ingest run, following the teacher's
// algorithms/common.LoadConfig/SaveConfig/Validate pattern (gopkg.in/yaml.v3
// over a struct with an explicit Validate method) rather than ad hoc flags,
// since spec.md §6 treats config loading as an outer-surface concern wired
// through an interface to the core.
package buildconfig

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tiptoe-pir/tiptoe/pkg/corpus"
)

// DocumentSpec is one corpus record: its source text (embedded via the
// DocumentSpec's Embedding field, since build-corpus has no live access to
// an embedding model per spec.md's explicit out-of-scope boundary) and the
// opaque payload bytes the encoding stage will serve back.
type DocumentSpec struct {
	Text        string    `yaml:"text"`
	BytesBase64 string    `yaml:"bytes_base64"`
	Embedding   []float64 `yaml:"embedding"`
}

// KMeansSpec mirrors corpus.KMeansParams in YAML-friendly form; zero values
// fall back to corpus.DefaultK and the package's other defaults.
type KMeansSpec struct {
	K             int     `yaml:"k"`
	MaxIter       int     `yaml:"max_iter"`
	Tau           float64 `yaml:"tau"`
	Seed          uint64  `yaml:"seed"`
	MaxPerCluster int     `yaml:"max_per_cluster"`
}

// Config is the full shape of a build-corpus YAML file.
type Config struct {
	Documents    []DocumentSpec `yaml:"documents"`
	KMeans       KMeansSpec     `yaml:"kmeans"`
	RecordSize   int            `yaml:"record_size"`
	Q            uint64         `yaml:"q"`
	P            uint64         `yaml:"p"`
	SnapshotPath string         `yaml:"snapshot_path"`
}

// LoadConfig reads and validates a build-corpus YAML file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes a Config back to YAML, for tooling that generates a
// starter config to hand-edit.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the structural invariants build-corpus depends on before
// it starts spending CPU on k-means.
func (c *Config) Validate() error {
	if len(c.Documents) == 0 {
		return fmt.Errorf("documents must not be empty")
	}
	dim := -1
	for i, d := range c.Documents {
		if d.Text == "" {
			return fmt.Errorf("documents[%d]: text must not be empty", i)
		}
		if len(d.Embedding) == 0 {
			return fmt.Errorf("documents[%d]: embedding must not be empty", i)
		}
		if dim == -1 {
			dim = len(d.Embedding)
		} else if len(d.Embedding) != dim {
			return fmt.Errorf("documents[%d]: embedding dimension %d, want %d", i, len(d.Embedding), dim)
		}
	}
	if c.RecordSize <= 0 {
		return fmt.Errorf("record_size must be positive")
	}
	if c.Q == 0 || c.Q&(c.Q-1) != 0 {
		return fmt.Errorf("q=%d must be a power of two", c.Q)
	}
	if c.P == 0 {
		return fmt.Errorf("p must be positive")
	}
	if c.SnapshotPath == "" {
		return fmt.Errorf("snapshot_path must not be empty")
	}
	return nil
}

// Decode turns the config's document specs into corpus.Documents plus a
// corpus.Embedder backed by the specs' inline Embedding vectors, so
// corpus.Build never needs a live model at ingest time.
func (c *Config) Decode() ([]corpus.Document, corpus.Embedder, error) {
	docs := make([]corpus.Document, len(c.Documents))
	vecs := make(map[string][]float64, len(c.Documents))
	for i, d := range c.Documents {
		raw, err := base64.StdEncoding.DecodeString(d.BytesBase64)
		if err != nil {
			return nil, nil, fmt.Errorf("documents[%d]: decoding bytes_base64: %w", i, err)
		}
		docs[i] = corpus.Document{Text: d.Text, Bytes: raw}
		vecs[d.Text] = d.Embedding
	}
	embedder := corpus.EmbedderFunc(func(text string) ([]float64, error) {
		v, ok := vecs[text]
		if !ok {
			return nil, fmt.Errorf("no embedding configured for document text %q", text)
		}
		return v, nil
	})
	return docs, embedder, nil
}
