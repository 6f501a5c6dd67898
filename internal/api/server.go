// Package api exposes the status and metrics HTTP surface for a crawl run.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/okechukwu95dev/pitchindex/internal/crawl"
	"github.com/okechukwu95dev/pitchindex/internal/metrics"
)

// StatusSource supplies the live crawl report served at /status.
type StatusSource interface {
	Report() crawl.StatusReport
}

// Server is the read-only observability endpoint running beside the crawl.
type Server struct {
	router chi.Router
	source StatusSource
	logger *zap.Logger
	srv    *http.Server
}

// NewServer constructs a Server with middleware and routes.
func NewServer(source StatusSource, port int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{source: source, logger: logger}

	r := chi.NewRouter()
	r.Use(s.loggingMiddleware)
	r.Get("/healthz", s.healthz)
	r.Get("/status", s.status)
	r.Handle("/metrics", metrics.Handler())
	s.router = r

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the router for use in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background until Shutdown.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("status server stopped", zap.Error(err))
		}
	}()
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.source.Report())
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("dur", time.Since(start)),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
