// Command tiptoe-client is an interactive REPL driving the two-stage
// retrieval protocol of spec.md §4.4 against a running embedding-server
// and encoding-server pair. Since the embedding model itself is out of
// scope (spec.md's explicit external-collaborator boundary), each query
// line supplies its own precomputed embedding rather than raw text.
// Texture echoes the teacher's cmd/test-client: emoji-prefixed status
// lines and a final summary.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/tiptoe-pir/tiptoe/internal/transport"
	"github.com/tiptoe-pir/tiptoe/pkg/corpus"
	"github.com/tiptoe-pir/tiptoe/pkg/tiptoe"
	"github.com/tiptoe-pir/tiptoe/pkg/wire"
)

var (
	embeddingAddr = flag.String("embedding-addr", "http://127.0.0.1:8081", "embedding-server base URL")
	encodingAddr  = flag.String("encoding-addr", "http://127.0.0.1:8082", "encoding-server base URL")
	// recordSize is not carried by /params or /centroids, so nothing catches
	// a mismatch with build-corpus's record_size; it silently mis-slices the
	// unpacked record body in UnpackSymbols instead of erroring.
	recordSize = flag.Int("record-size", 256, "deployment's configured document record size in bytes, matching build-corpus's record_size")
)

func main() {
	flag.Parse()

	fmt.Printf("🔌 Fetching scheme parameters from %s and %s...\n", *embeddingAddr, *encodingAddr)

	httpClient := http.DefaultClient
	embParams, embSeedA, embHint, err := transport.FetchEmbeddingSetup(*embeddingAddr, httpClient)
	if err != nil {
		color.Red("❌ failed to fetch embedding-server setup: %v", err)
		os.Exit(1)
	}
	encParams, encSeedA, encHint, err := transport.FetchEncodingSetup(*encodingAddr, httpClient)
	if err != nil {
		color.Red("❌ failed to fetch encoding-server setup: %v", err)
		os.Exit(1)
	}
	cj, err := transport.FetchCentroids(*embeddingAddr, httpClient)
	if err != nil {
		color.Red("❌ failed to fetch centroids: %v", err)
		os.Exit(1)
	}
	centroids, quant, rowsPerCluster := wire.DecodeCentroidsJSON(cj)
	color.Green("✅ ready: %d clusters, %d dims, rows/cluster=%d\n\n", cj.K, cj.D, rowsPerCluster)

	embClient := &transport.EmbeddingClient{BaseURL: *embeddingAddr, HTTP: httpClient, Params: embParams}
	encClient := &transport.EncodingClient{BaseURL: *encodingAddr, HTTP: httpClient, Params: encParams}

	fmt.Println("📋 Enter queries as `label: v1,v2,v3,...` (comma-separated embedding), blank line to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	queried, matched := 0, 0
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		label, vec, err := parseQueryLine(line)
		if err != nil {
			color.Red("❌ %v", err)
			continue
		}
		queried++

		client := &tiptoe.Client{
			EmbParams:      embParams,
			EmbSeedA:       embSeedA,
			EmbHint:        embHint,
			RowsPerCluster: uint64(rowsPerCluster),
			K:              uint64(cj.K),
			EncParams:      encParams,
			EncSeedA:       encSeedA,
			EncHint:        encHint,
			Centroids:      centroids,
			Quant:          quant,
			RecordSize:     *recordSize,
			Embedder:       corpus.EmbedderFunc(func(string) ([]float64, error) { return vec, nil }),
		}

		fmt.Printf("📤 querying %q (dim=%d)...\n", label, len(vec))
		result, err := client.Query(label, embClient, encClient)
		if err != nil {
			color.Yellow("🔍 no match: %v\n", err)
			continue
		}
		matched++
		color.Cyan("📦 %s\n", result)
	}

	fmt.Println("\n━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Summary: %d queried, %d matched, %d no-match\n", queried, matched, queried-matched)
}

func parseQueryLine(line string) (string, []float64, error) {
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("expected `label: v1,v2,...`, got %q", line)
	}
	label := strings.TrimSpace(parts[0])
	fields := strings.Split(parts[1], ",")
	vec := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("parsing embedding component %d: %w", i, err)
		}
		vec[i] = v
	}
	return label, vec, nil
}
