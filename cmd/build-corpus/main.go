// Command build-corpus runs the offline ingest pipeline of spec.md §4.3
// end to end: reads a YAML config naming documents and their precomputed
// embeddings, clusters and quantizes them, and persists the resulting
// Generation to a bbolt snapshot the two PIR server binaries load at
// startup. It is the rebuild-on-refresh half of spec.md §5's refresh
// model; there is no live-update path by design.
package main

import (
	"flag"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/tiptoe-pir/tiptoe/internal/buildconfig"
	"github.com/tiptoe-pir/tiptoe/internal/snapshot"
	"github.com/tiptoe-pir/tiptoe/pkg/corpus"
)

var configPath = flag.String("config", "corpus.yaml", "path to a build-corpus YAML config")

func main() {
	flag.Parse()
	log := hclog.New(&hclog.LoggerOptions{Name: "build-corpus", Level: hclog.Info})

	cfg, err := buildconfig.LoadConfig(*configPath)
	if err != nil {
		log.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	docs, embedder, err := cfg.Decode()
	if err != nil {
		log.Error("failed to decode config documents", "error", err)
		os.Exit(1)
	}
	log.Info("loaded documents", "count", len(docs))

	kmeansParams := corpus.KMeansParams{
		K:             cfg.KMeans.K,
		MaxIter:       cfg.KMeans.MaxIter,
		Tau:           cfg.KMeans.Tau,
		Seed:          cfg.KMeans.Seed,
		MaxPerCluster: cfg.KMeans.MaxPerCluster,
	}
	if kmeansParams.K == 0 {
		kmeansParams.K = corpus.DefaultK(len(docs))
	}

	artifacts, err := corpus.Build(docs, embedder, corpus.BuildParams{
		KMeans:     kmeansParams,
		RecordSize: cfg.RecordSize,
		Q:          cfg.Q,
		P:          cfg.P,
	})
	if err != nil {
		log.Error("corpus build failed", "error", err)
		os.Exit(1)
	}
	log.Info("corpus built", "clusters", artifacts.K, "rows_per_cluster", artifacts.RowsPerCluster, "dim", artifacts.Dim)

	if _, err := snapshot.Persist(cfg.SnapshotPath, artifacts, docs); err != nil {
		log.Error("failed to persist snapshot", "path", cfg.SnapshotPath, "error", err)
		os.Exit(1)
	}
	log.Info("snapshot written", "path", cfg.SnapshotPath)
}
