// Package server exposes the triage pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pivottriage/internal/baseline"
	inputfile "pivottriage/internal/input/file"
	"pivottriage/internal/logger"
	"pivottriage/internal/pipeline"
	"pivottriage/pkg/models"
)

// Config controls the listener.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

// Server serves analyze, baseline, health and metrics endpoints.
type Server struct {
	cfg      Config
	pipeline *pipeline.Pipeline
	baseline baseline.Config
	gatherer prometheus.Gatherer
	writer   pipeline.OutcomeWriter
}

// New creates a server. gatherer and writer may be nil.
func New(cfg Config, p *pipeline.Pipeline, b baseline.Config, gatherer prometheus.Gatherer, writer pipeline.OutcomeWriter) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 32 << 20
	}
	return &Server{cfg: cfg, pipeline: p, baseline: b, gatherer: gatherer, writer: writer}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/baseline", s.handleBaseline)
	})
	return r
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Infof("Server stopped")
	return nil
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	events, stats, ok := s.decodeEvents(w, r)
	if !ok {
		return
	}

	out := s.pipeline.Run(events, stats)
	if s.writer != nil {
		if err := s.writer.WriteOutcome(out); err != nil {
			logger.Errorf("Failed to write outcome: %v", err)
		}
	}

	status := http.StatusOK
	if out.Status == models.StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, out)
}

func (s *Server) handleBaseline(w http.ResponseWriter, r *http.Request) {
	events, _, ok := s.decodeEvents(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, baseline.Measure(events, s.baseline))
}

func (s *Server) decodeEvents(w http.ResponseWriter, r *http.Request) ([]models.RawEvent, models.IngestStats, bool) {
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	events, stats, err := inputfile.DecodeJSONArray(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return nil, stats, false
	}
	return events, stats, true
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debugf("%s %s status=%d bytes=%d elapsed=%s request_id=%s",
			r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start), middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
