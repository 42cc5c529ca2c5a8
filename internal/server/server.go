// Package server provides the local HTTP API for kensa.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kensa/internal/config"
	"github.com/hyperjump/kensa/internal/search"
	"github.com/hyperjump/kensa/internal/storage"
	"go.uber.org/zap"
)

// maxResults caps the limit a client may request.
const maxResults = 100

// Server is the HTTP server for the kensa API.
type Server struct {
	config  *config.Config
	history storage.HistoryStore
	logger  *zap.Logger
	server  *http.Server

	mu        sync.RWMutex
	retriever *search.Retriever
}

// NewServer creates a server. retriever may be nil until an index exists; history may be nil
// when review history is disabled.
func NewServer(cfg *config.Config, retriever *search.Retriever, history storage.HistoryStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		config:    cfg,
		retriever: retriever,
		history:   history,
		logger:    logger,
	}
}

// SetRetriever swaps the retriever, e.g. after the watcher rebuilt the index.
func (s *Server) SetRetriever(r *search.Retriever) {
	s.mu.Lock()
	s.retriever = r
	s.mu.Unlock()
}

func (s *Server) currentRetriever() *search.Retriever {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.retriever
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/retrieve", s.handleRetrieve)
		r.Post("/search", s.handleSearch)
		r.Get("/history", s.handleHistoryList)
		r.Get("/history/{id}", s.handleHistoryGet)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// requestLogger logs each request through zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
