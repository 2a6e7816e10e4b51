// Package snapshot persists one generation of served corpus artifacts to an
// embedded bbolt file and exposes an atomic-pointer-swap Store so that
// refresh (spec.md §5: "builds a new immutable snapshot off to the side and
// atomically swaps the pointer; readers complete using the prior snapshot")
// never blocks an in-flight query. It is grounded in the teacher's
// internal/store FSM Snapshot/Restore pair, adapted from Raft log
// compaction to corpus-refresh snapshotting: Persist plays the role of
// FSMSnapshot.Persist, Restore the role of FSM.Restore.
package snapshot

import (
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/tiptoe-pir/tiptoe/pkg/corpus"
	"github.com/tiptoe-pir/tiptoe/pkg/ffm"
	"github.com/tiptoe-pir/tiptoe/pkg/wire"
)

var (
	bucketMeta      = []byte("meta")
	bucketEmbedding = []byte("embedding_db")
	bucketEncoding  = []byte("encoding_db")
	bucketCentroids = []byte("centroids")
	bucketDocuments = []byte("documents")
)

// meta mirrors the scalar fields of corpus.Artifacts that aren't matrices,
// so a Generation can be fully reconstructed from its bbolt file alone —
// spec.md §6's "reproducible from a refresh invocation" persisted-state
// requirement.
type meta struct {
	QuantMin         float64 `json:"quant_min"`
	QuantMax         float64 `json:"quant_max"`
	QuantP           uint64  `json:"quant_p"`
	K                int     `json:"k"`
	RowsPerCluster   int     `json:"rows_per_cluster"`
	SymbolsPerRecord int     `json:"symbols_per_record"`
	Dim              int     `json:"dim"`
}

// Generation is one immutable, fully-loaded snapshot of the served corpus:
// the embedding/encoding databases, centroids, and quantization parameters
// pkg/tiptoe's servers need, plus the raw documents kept for audit/rebuild.
type Generation struct {
	Artifacts *corpus.Artifacts
	Documents []corpus.Document
	Path      string
}

// Persist writes a Generation's artifacts and documents to a new bbolt file
// at path, the "build a new immutable snapshot off to the side" half of
// spec.md §5's refresh model.
func Persist(path string, artifacts *corpus.Artifacts, docs []corpus.Document) (*Generation, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: opening %s: %w", path, err)
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		m := meta{
			QuantMin:         artifacts.Quant.Min,
			QuantMax:         artifacts.Quant.Max,
			QuantP:           artifacts.Quant.P,
			K:                artifacts.K,
			RowsPerCluster:   artifacts.RowsPerCluster,
			SymbolsPerRecord: artifacts.SymbolsPerRecord,
			Dim:              artifacts.Dim,
		}
		metaBytes, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encoding meta: %w", err)
		}
		if err := putBucket(tx, bucketMeta, "meta", metaBytes); err != nil {
			return err
		}

		embBytes, err := wire.EncodeMatrixBytes(artifacts.EmbeddingDB)
		if err != nil {
			return fmt.Errorf("encoding embedding db: %w", err)
		}
		if err := putBucket(tx, bucketEmbedding, "db", embBytes); err != nil {
			return err
		}

		encBytes, err := wire.EncodeMatrixBytes(artifacts.EncodingDB)
		if err != nil {
			return fmt.Errorf("encoding encoding db: %w", err)
		}
		if err := putBucket(tx, bucketEncoding, "db", encBytes); err != nil {
			return err
		}

		centroidBytes, err := artifacts.Centroids.MarshalBinary()
		if err != nil {
			return fmt.Errorf("encoding centroids: %w", err)
		}
		if err := putBucket(tx, bucketCentroids, "centroids", centroidBytes); err != nil {
			return err
		}

		docBucket, err := tx.CreateBucketIfNotExists(bucketDocuments)
		if err != nil {
			return fmt.Errorf("creating documents bucket: %w", err)
		}
		for i, d := range docs {
			encoded, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("encoding document %d: %w", i, err)
			}
			if err := docBucket.Put(itob(i), encoded); err != nil {
				return fmt.Errorf("writing document %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Generation{Artifacts: artifacts, Documents: docs, Path: path}, nil
}

// Restore reconstructs a Generation from a bbolt file written by Persist,
// without needing the original embedding model or k-means run — the
// FSM.Restore half of the teacher's pattern.
func Restore(path string) (*Generation, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: opening %s: %w", path, err)
	}
	defer db.Close()

	var artifacts corpus.Artifacts
	var docs []corpus.Document

	err = db.View(func(tx *bolt.Tx) error {
		var m meta
		if err := getBucketJSON(tx, bucketMeta, "meta", &m); err != nil {
			return err
		}
		artifacts.Quant = corpus.QuantParams{Min: m.QuantMin, Max: m.QuantMax, P: m.QuantP}
		artifacts.K = m.K
		artifacts.RowsPerCluster = m.RowsPerCluster
		artifacts.SymbolsPerRecord = m.SymbolsPerRecord
		artifacts.Dim = m.Dim

		embBytes, err := getBucketBytes(tx, bucketEmbedding, "db")
		if err != nil {
			return err
		}
		embMatrix, err := wire.DecodeMatrixBytes[ffm.Elem64](embBytes)
		if err != nil {
			return fmt.Errorf("decoding embedding db: %w", err)
		}
		artifacts.EmbeddingDB = embMatrix

		encBytes, err := getBucketBytes(tx, bucketEncoding, "db")
		if err != nil {
			return err
		}
		encMatrix, err := wire.DecodeMatrixBytes[ffm.Elem64](encBytes)
		if err != nil {
			return fmt.Errorf("decoding encoding db: %w", err)
		}
		artifacts.EncodingDB = encMatrix

		centroidBytes, err := getBucketBytes(tx, bucketCentroids, "centroids")
		if err != nil {
			return err
		}
		centroids, err := wire.DecodeCentroids(centroidBytes)
		if err != nil {
			return fmt.Errorf("decoding centroids: %w", err)
		}
		artifacts.Centroids = centroids

		docBucket := tx.Bucket(bucketDocuments)
		if docBucket == nil {
			return fmt.Errorf("documents bucket missing from %s", path)
		}
		return docBucket.ForEach(func(k, v []byte) error {
			var d corpus.Document
			if err := json.Unmarshal(v, &d); err != nil {
				return fmt.Errorf("decoding document: %w", err)
			}
			docs = append(docs, d)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return &Generation{Artifacts: &artifacts, Documents: docs, Path: path}, nil
}

func putBucket(tx *bolt.Tx, bucket []byte, key string, value []byte) error {
	b, err := tx.CreateBucketIfNotExists(bucket)
	if err != nil {
		return fmt.Errorf("creating bucket %s: %w", bucket, err)
	}
	return b.Put([]byte(key), value)
}

func getBucketBytes(tx *bolt.Tx, bucket []byte, key string) ([]byte, error) {
	b := tx.Bucket(bucket)
	if b == nil {
		return nil, fmt.Errorf("bucket %s missing", bucket)
	}
	v := b.Get([]byte(key))
	if v == nil {
		return nil, fmt.Errorf("key %s missing from bucket %s", key, bucket)
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func getBucketJSON(tx *bolt.Tx, bucket []byte, key string, dst any) error {
	v, err := getBucketBytes(tx, bucket, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(v, dst)
}

func itob(i int) []byte {
	return []byte(fmt.Sprintf("%08d", i))
}
