package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/verdantlabs/contentforge/internal/batch"
	"github.com/verdantlabs/contentforge/internal/content"
	"github.com/verdantlabs/contentforge/internal/orchestrate"
	"github.com/verdantlabs/contentforge/internal/router"
)

// Server exposes the in-process generation core over a JSON HTTP API. The
// core itself is transport-agnostic; this is just one wrapper around it.
type Server struct {
	orch  *orchestrate.Orchestrator
	coord *batch.Coordinator
	rt    *router.Router
	mux   *http.ServeMux
}

// New creates a new Server.
func New(orch *orchestrate.Orchestrator, coord *batch.Coordinator, rt *router.Router) *Server {
	s := &Server{orch: orch, coord: coord, rt: rt, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/generate", s.handleGenerate)
	s.mux.HandleFunc("/api/batches", s.handleBatches)
	s.mux.HandleFunc("/api/batches/", s.handleBatch)
	s.mux.HandleFunc("/api/providers", s.handleProviders)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req content.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decoding request: %v", err))
		return
	}

	result, err := s.orch.Generate(r.Context(), &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

type batchRequest struct {
	Requests       []*content.Request `json:"requests"`
	MaxConcurrency int                `json:"max_concurrency"`
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var br batchRequest
	if err := json.NewDecoder(r.Body).Decode(&br); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decoding batch: %v", err))
		return
	}

	snap, err := s.coord.Submit(br.Requests, br.MaxConcurrency)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":     snap.ID,
		"status": snap.Status,
	})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/batches/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 2 && parts[1] == "cancel" {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := s.coord.Cancel(id); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, ok := s.coord.Snapshot(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no such job: %s", id))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.rt.Profiles())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Serve starts the HTTP server on the given port.
func Serve(orch *orchestrate.Orchestrator, coord *batch.Coordinator, rt *router.Router, port int) error {
	srv := New(orch, coord, rt)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	logrus.Infof("server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
