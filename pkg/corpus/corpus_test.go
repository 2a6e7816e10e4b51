package corpus

import (
	"fmt"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	body := []byte("hello, tiptoe")
	recordSize := 64

	packed, err := Pack(body, recordSize)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(packed) != recordSize {
		t.Fatalf("packed length = %d, want %d", len(packed), recordSize)
	}

	out, err := Unpack(packed)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	got := out[:len(body)]
	if string(got) != string(body) {
		t.Fatalf("round-trip mismatch: got %q, want %q", got, body)
	}
}

func TestUnpackPaddingRowHasNoMagic(t *testing.T) {
	padding := make([]byte, 64)
	if _, err := Unpack(padding); err == nil {
		t.Fatal("expected decode failure on all-zero padding row")
	}
}

func TestPackTooLong(t *testing.T) {
	body := make([]byte, 100)
	if _, err := Pack(body, 64); err == nil {
		t.Fatal("expected error packing oversized document")
	}
}

func TestPackSymbolsRoundTrip(t *testing.T) {
	body := []byte("the quick brown fox jumps over the lazy dog")
	q := uint64(1 << 16)

	symbols, err := PackSymbols(body, q)
	if err != nil {
		t.Fatalf("PackSymbols: %v", err)
	}
	out, err := UnpackSymbols(symbols, q, len(body))
	if err != nil {
		t.Fatalf("UnpackSymbols: %v", err)
	}
	if string(out) != string(body) {
		t.Fatalf("round-trip mismatch: got %q, want %q", out, body)
	}
}

func TestQuantizeDequantizeApproximate(t *testing.T) {
	q := NewQuantParams(1 << 16)
	for _, v := range []float64{-1, -0.5, 0, 0.25, 1} {
		sym := q.Quantize(v)
		back := q.Dequantize(sym)
		if diff := back - v; diff > 1e-3 || diff < -1e-3 {
			t.Fatalf("quantize(%v) -> dequantize = %v, diff too large", v, back)
		}
	}
}

func TestQuantizeClampsOutOfRange(t *testing.T) {
	q := NewQuantParams(256)
	if got := q.Quantize(-5); got != 0 {
		t.Fatalf("Quantize(-5) = %d, want 0", got)
	}
	if got := q.Quantize(5); got != 255 {
		t.Fatalf("Quantize(5) = %d, want 255", got)
	}
}

func TestL2Normalize(t *testing.T) {
	e := mat.NewDense(2, 3, []float64{3, 4, 0, 0, 0, 5})
	L2Normalize(e)
	for i := 0; i < 2; i++ {
		row := mat.Row(nil, i, e)
		var sumSq float64
		for _, v := range row {
			sumSq += v * v
		}
		if diff := sumSq - 1.0; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("row %d not unit norm: sum of squares = %v", i, sumSq)
		}
	}
}

// gridEmbedder places documents on a 2D grid so k-means has an obvious
// ground-truth clustering to recover.
type gridEmbedder struct{}

func (gridEmbedder) Embed(text string) ([]float64, error) {
	var x, y float64
	fmt.Sscanf(text, "%f,%f", &x, &y)
	return []float64{x, y}, nil
}

func TestKMeansClusterCoverage(t *testing.T) {
	docs := []Document{
		{Text: "0,0"}, {Text: "0.1,0.1"}, {Text: "0,0.1"},
		{Text: "10,10"}, {Text: "10.1,10.1"}, {Text: "10,10.1"},
	}
	e, err := StackEmbeddings(docs, gridEmbedder{})
	if err != nil {
		t.Fatalf("StackEmbeddings: %v", err)
	}

	result, err := KMeans(e, KMeansParams{K: 2, Seed: 42})
	if err != nil {
		t.Fatalf("KMeans: %v", err)
	}

	// testable property 6: cluster coverage is a partition of {0..N-1}.
	seen := make(map[int]bool)
	for _, c := range result.Assignment {
		if c < 0 || c >= 2 {
			t.Fatalf("assignment out of range: %d", c)
		}
		seen[c] = true
	}
	if len(result.Assignment) != len(docs) {
		t.Fatalf("assignment length = %d, want %d", len(result.Assignment), len(docs))
	}

	// The two obvious clusters should not be merged.
	first := result.Assignment[0]
	for i := 1; i < 3; i++ {
		if result.Assignment[i] != first {
			t.Fatalf("document %d not clustered with its near neighbors", i)
		}
	}
	second := result.Assignment[3]
	if second == first {
		t.Fatal("the two well-separated groups were assigned the same cluster")
	}
	for i := 4; i < 6; i++ {
		if result.Assignment[i] != second {
			t.Fatalf("document %d not clustered with its near neighbors", i)
		}
	}
}

func TestCapClustersRespectsCapacity(t *testing.T) {
	docs := make([]Document, 20)
	for i := range docs {
		docs[i] = Document{Text: fmt.Sprintf("%f,%f", float64(i)*0.01, float64(i)*0.01)}
	}
	e, err := StackEmbeddings(docs, gridEmbedder{})
	if err != nil {
		t.Fatalf("StackEmbeddings: %v", err)
	}

	result, err := KMeans(e, KMeansParams{K: 2, Seed: 7, MaxPerCluster: 12})
	if err != nil {
		t.Fatalf("KMeans: %v", err)
	}

	counts := make(map[int]int)
	for _, c := range result.Assignment {
		counts[c]++
	}
	for c, n := range counts {
		if n > 12 {
			t.Fatalf("cluster %d has %d members, exceeding cap of 12", c, n)
		}
	}
}

func TestBuildProducesRowAlignedDatabases(t *testing.T) {
	docs := []Document{
		{Text: "0,0", Bytes: []byte("doc-a")},
		{Text: "0.1,0.1", Bytes: []byte("doc-b")},
		{Text: "10,10", Bytes: []byte("doc-c")},
		{Text: "10.1,10.1", Bytes: []byte("doc-d")},
	}

	artifacts, err := Build(docs, gridEmbedder{}, BuildParams{
		KMeans:     KMeansParams{K: 2, Seed: 1},
		RecordSize: 16,
		Q:          1 << 16,
		P:          1 << 16,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if artifacts.EmbeddingDB.Rows() != artifacts.EncodingDB.Rows() {
		t.Fatalf("embedding rows %d != encoding rows %d", artifacts.EmbeddingDB.Rows(), artifacts.EncodingDB.Rows())
	}
	if artifacts.EmbeddingDB.Rows() != uint64(artifacts.K*artifacts.RowsPerCluster) {
		t.Fatalf("row count %d != k*rowsPerCluster %d", artifacts.EmbeddingDB.Rows(), artifacts.K*artifacts.RowsPerCluster)
	}
}
