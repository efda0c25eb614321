// Package server exposes validation and solving over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/piwi3910/RoomPlan/internal/cache"
	"github.com/piwi3910/RoomPlan/internal/engine"
	"github.com/piwi3910/RoomPlan/internal/model"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 4 << 20

// Server routes API requests to a solver.
type Server struct {
	solver    *engine.Solver
	defaults  model.SolverConfig
	results   *cache.Results
	templates []model.InstanceTemplate
	logger    *zap.Logger
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaults sets the objective and budget used when a request leaves
// them out.
func WithDefaults(cfg model.SolverConfig) Option {
	return func(s *Server) { s.defaults = cfg }
}

// WithResults enables the result cache.
func WithResults(r *cache.Results) Option {
	return func(s *Server) {
		if r != nil {
			s.results = r
		}
	}
}

// WithTemplates sets the catalog served by GET /v1/templates.
func WithTemplates(t []model.InstanceTemplate) Option {
	return func(s *Server) { s.templates = t }
}

// New builds the router.
func New(solver *engine.Solver, opts ...Option) *Server {
	s := &Server{
		solver:    solver,
		defaults:  model.DefaultAppConfig().Solver,
		results:   cache.NewResults(nil, 0),
		templates: model.BuiltinTemplates(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Post("/solve", s.handleSolve)
		r.Get("/templates", s.handleTemplates)
		r.Get("/objectives", s.handleObjectives)
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
