// Package api serves document upload, analysis and questions over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/clausewatch/internal/model"
	"github.com/ppiankov/clausewatch/internal/pipeline"
	"github.com/ppiankov/clausewatch/internal/store"
)

// Server is the HTTP API server for clausewatch.
type Server struct {
	router   chi.Router
	pipeline *pipeline.Pipeline
	store    *store.Store
	log      *slog.Logger
	cfg      model.ServerConfig
}

// NewServer creates and configures the HTTP server.
func NewServer(p *pipeline.Pipeline, st *store.Store, log *slog.Logger, cfg model.ServerConfig) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		pipeline: p,
		store:    st,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(CORS(s.cfg.AllowedOrigins))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/patterns", s.handlePatterns)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/upload", s.handleUpload)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/ask", s.handleAsk)
		r.Delete("/documents/{docID}", s.handleDeleteDocument)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"assistant": s.pipeline.Assistant().Enabled(),
	})
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"patterns": s.pipeline.Registry().Definitions()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
