// Command encoding-server serves the row-retrieval PIR stage of spec.md
// §4.4 over HTTP: GET /params, GET /hint, POST /answer, GET /health,
// reading its corpus generation from the same bbolt snapshot
// cmd/build-corpus produces. Shape follows the teacher's
// cmd/silhouette-server: flag-parsed CLI, structured logging, graceful
// os/signal shutdown.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/tiptoe-pir/tiptoe/internal/pirserver"
	"github.com/tiptoe-pir/tiptoe/internal/snapshot"
	"github.com/tiptoe-pir/tiptoe/pkg/csprng"
	"github.com/tiptoe-pir/tiptoe/pkg/lwe"
	"github.com/tiptoe-pir/tiptoe/pkg/tiptoe"
)

var (
	listenAddr   = flag.String("listen-addr", "127.0.0.1:8082", "address to serve the encoding-PIR HTTP API on")
	snapshotPath = flag.String("snapshot", "./data/corpus.bbolt", "path to a bbolt snapshot written by build-corpus")
	lweN         = flag.Uint64("lwe-n", 2048, "LWE dimension for the encoding-stage scheme")
	sigma        = flag.Float64("sigma", 6.4, "LWE error standard deviation")
	secretDist   = flag.String("secret-dist", string(lwe.SecretUniform), "client secret distribution: uniform or ternary")
)

func main() {
	flag.Parse()
	log := hclog.New(&hclog.LoggerOptions{Name: "encoding-server", Level: hclog.Info})

	gen, err := snapshot.Restore(*snapshotPath)
	if err != nil {
		log.Error("failed to restore snapshot", "path", *snapshotPath, "error", err)
		os.Exit(1)
	}

	server, seedA, err := tiptoe.NewEncodingServer(gen.Artifacts, *lweN, *sigma, lwe.SecretDistribution(*secretDist))
	if err != nil {
		log.Error("failed to build encoding server", "error", err)
		os.Exit(1)
	}
	log.Info("encoding server ready", "params", server.Params.String())

	seed := seedA
	handler := &pirserver.EncodingHandler{
		Server: server,
		SeedA:  func() [csprng.SeedLen]byte { return seed },
		Log:    log,
	}

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: handler.Mux(),
	}

	go func() {
		log.Info("listening", "addr", *listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
