// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/openbiomed/litrag/internal/catalog"
	"github.com/openbiomed/litrag/internal/common"
	"github.com/openbiomed/litrag/internal/retriever"
)

type Server struct {
	router  chi.Router
	engine  *retriever.Engine
	catalog *catalog.Store
}

// NewServer wires the retrieval engine and catalog behind the HTTP
// surface. The catalog may be nil; paper listings then fall back to
// chunk payloads.
func NewServer(engine *retriever.Engine, cat *catalog.Store) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		engine:  engine,
		catalog: cat,
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/papers/save", s.handleSavePapers)
		r.Get("/papers", s.handleListPapers)
		r.Get("/metadata", s.handleListMetadata)
		r.Post("/search", s.handleSearch)
		r.Get("/stats", s.handleStats)
		r.Delete("/clear", s.handleClear)
		r.Get("/logs", s.handleLogs)
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": common.LogEntries()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
