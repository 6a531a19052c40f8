package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/semaphore"

	"abtester/internal"
	"abtester/internal/batch"
	"abtester/internal/decision"
	"abtester/internal/errors"
	"abtester/internal/profiling"
	"abtester/internal/report"
)

// maxBodyBytes caps request bodies, uploads included
const maxBodyBytes = 32 << 20

// Config holds API server settings
type Config struct {
	Port string
	// Workers bounds batch parallelism and in-flight evaluations
	Workers         int
	ShutdownTimeout time.Duration
}

// Server exposes the decision engine over HTTP
type Server struct {
	router   *chi.Mux
	config   Config
	engine   *decision.Engine
	runner   *batch.Runner
	profiler *profiling.DataProfiler
	renderer *report.Renderer
	inflight *semaphore.Weighted
	logger   *internal.Logger
}

// NewServer wires the routes over the given engine
func NewServer(config Config, engine *decision.Engine, logger *internal.Logger) *Server {
	if config.Workers < 1 {
		config.Workers = batch.DefaultWorkers
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   config,
		engine:   engine,
		runner:   batch.NewRunner(engine, config.Workers, logger),
		profiler: profiling.NewDataProfiler(logger),
		renderer: report.NewRenderer(),
		inflight: semaphore.NewWeighted(int64(config.Workers)),
		logger:   logger,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/evaluate", s.handleEvaluate)
		r.Post("/evaluate/upload", s.handleEvaluateUpload)
		r.Post("/batch", s.handleBatch)
		r.Post("/describe", s.handleDescribe)
	})
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[API] listening on :%s", s.config.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("[API] shutting down")
	return srv.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		internal.DefaultLogger.Warn("[API] failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("[API] %v", err)
	}
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: errors.GetCode(err), Message: err.Error()}})
}
