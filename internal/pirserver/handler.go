// Package pirserver wires pkg/tiptoe's EmbeddingServer and EncodingServer
// onto the net/http surface spec.md §6 names: GET /params, GET /hint, GET
// /centroids (embedding only), POST /answer, GET /health. It plays the
// transport-adapter role the teacher's internal/server plays for its gRPC
// CoordinationService, minus the consensus plumbing spec.md's Non-goals
// rule out (no multi-server PIR, no live updates).
package pirserver

import (
	"encoding/json"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/tiptoe-pir/tiptoe/internal/snapshot"
	"github.com/tiptoe-pir/tiptoe/internal/transport"
	"github.com/tiptoe-pir/tiptoe/pkg/simplepir"
	"github.com/tiptoe-pir/tiptoe/pkg/tiptoe"
	"github.com/tiptoe-pir/tiptoe/pkg/wire"
)

// EmbeddingHandler serves an EmbeddingServer over HTTP.
type EmbeddingHandler struct {
	Server *tiptoe.EmbeddingServer
	Store  *snapshot.Store
	SeedA  func() [32]byte
	Log    hclog.Logger
}

// Mux builds the net/http.ServeMux spec.md §6's embedding-server endpoints
// live on.
func (h *EmbeddingHandler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/params", h.handleParams)
	mux.HandleFunc("/hint", h.handleHint)
	mux.HandleFunc("/centroids", h.handleCentroids)
	mux.HandleFunc("/answer", h.handleAnswer)
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

func (h *EmbeddingHandler) handleParams(w http.ResponseWriter, r *http.Request) {
	pj := wire.EncodeParams(h.Server.Params, h.SeedA())
	writeJSON(w, pj)
}

func (h *EmbeddingHandler) handleHint(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	if err := wire.WriteMatrix(w, h.Server.Hint.H); err != nil {
		h.Log.Error("writing hint", "error", err)
	}
}

func (h *EmbeddingHandler) handleCentroids(w http.ResponseWriter, r *http.Request) {
	gen := h.Store.Load()
	if gen == nil {
		http.Error(w, "no generation loaded yet", http.StatusServiceUnavailable)
		return
	}
	cj := wire.EncodeCentroidsJSON(gen.Artifacts.Centroids, gen.Artifacts.Quant, gen.Artifacts.RowsPerCluster)
	writeJSON(w, cj)
}

func (h *EmbeddingHandler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q, err := transport.ReadEmbeddingQuery(r.Body, h.Server.Params)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	ans, err := h.Server.Answer(q)
	if err != nil {
		h.Log.Warn("answer rejected", "error", err)
		transport.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if err := wire.WriteMatrix(w, ans.Vec); err != nil {
		h.Log.Error("writing answer", "error", err)
	}
}

func (h *EmbeddingHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// EncodingHandler serves an EncodingServer over HTTP; identical shape to
// EmbeddingHandler minus /centroids and the cluster-indexed query header.
type EncodingHandler struct {
	Server *tiptoe.EncodingServer
	SeedA  func() [32]byte
	Log    hclog.Logger
}

func (h *EncodingHandler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/params", h.handleParams)
	mux.HandleFunc("/hint", h.handleHint)
	mux.HandleFunc("/answer", h.handleAnswer)
	mux.HandleFunc("/health", h.handleHealth)
	return mux
}

func (h *EncodingHandler) handleParams(w http.ResponseWriter, r *http.Request) {
	pj := wire.EncodeParams(h.Server.Params, h.SeedA())
	writeJSON(w, pj)
}

func (h *EncodingHandler) handleHint(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/octet-stream")
	if err := wire.WriteMatrix(w, h.Server.Hint.H); err != nil {
		h.Log.Error("writing hint", "error", err)
	}
}

func (h *EncodingHandler) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	vec, err := wire.ReadMatrix[tiptoe.Elem](r.Body, h.Server.Params.Q)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	ans, err := h.Server.Answer(&simplepir.Query{Vec: vec})
	if err != nil {
		h.Log.Warn("answer rejected", "error", err)
		transport.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if err := wire.WriteMatrix(w, ans.Vec); err != nil {
		h.Log.Error("writing answer", "error", err)
	}
}

func (h *EncodingHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
