// Package api provides the circuitlens REST and WebSocket API server.
package api

import (
	"net/http"
	"time"

	"github.com/circuitlens/circuitlens/core/engine"
	"github.com/circuitlens/circuitlens/internal/logging"
	"github.com/circuitlens/circuitlens/internal/store"
)

// Config holds server settings.
type Config struct {
	Addr string
}

// Server serves the analysis API. The history store is optional; without it
// the history endpoint reports an empty list and reports are not persisted.
type Server struct {
	engine  *engine.Engine
	store   *store.Store
	started time.Time
}

// New builds a Server around an engine and an optional store.
func New(e *engine.Engine, st *store.Store) *Server {
	return &Server{engine: e, store: st, started: time.Now()}
}

// Handler returns the routed handler with request-id and logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/v1/detect", s.handleDetect)
	mux.HandleFunc("/api/v1/languages", s.handleLanguages)
	mux.HandleFunc("/api/v1/health", s.handleHealth)
	mux.HandleFunc("/api/v1/history", s.handleHistory)
	mux.HandleFunc("/api/v1/ws/analyze", s.handleWebSocket)
	return logging.CombinedMiddleware(mux)
}

// Start runs the server until it fails.
func (s *Server) Start(cfg Config) error {
	logging.ServerStartup(cfg.Addr, "languages", s.engine.Languages())
	return http.ListenAndServe(cfg.Addr, s.Handler())
}
