// Package http exposes the reconciler over a small JSON API together with
// health, readiness and Prometheus endpoints.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	applog "hhsfinance/internal/log"
	"hhsfinance/internal/metrics"
	"hhsfinance/internal/services"
	"hhsfinance/internal/storage"
)

const maxBackupBytes = 32 << 20

// Deps are the collaborators of the HTTP server.
type Deps struct {
	Reconciler *services.Reconciler
	Store      storage.Store
	Metrics    *metrics.Metrics
	Logger     *applog.Logger
	// Headers defaults to DefaultHeadersConfig.
	Headers *HeadersConfig
	// PostsPerMinute limits POST requests per client. Default 60.
	PostsPerMinute int
}

type Server struct {
	http.Server
	rec         *services.Reconciler
	store       storage.Store
	metrics     *metrics.Metrics
	logger      *applog.Logger
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	headers := DefaultHeadersConfig()
	if deps.Headers != nil {
		headers = *deps.Headers
	}

	s := &Server{
		rec:         deps.Reconciler,
		store:       deps.Store,
		metrics:     deps.Metrics,
		logger:      logger.WithComponent(applog.ComponentHTTP),
		rateLimiter: newRateLimiter(deps.PostsPerMinute),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(applog.AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(headers))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/summary", s.handleSummary)
		r.Get("/backup", s.handleBackup)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimiter.middleware)
			r.Post("/restore", s.handleRestore)
			r.Post("/sync/push", s.handlePush)
			r.Post("/sync/pull", s.handlePull)
			r.Post("/connectivity", s.handleConnectivity)
		})
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64KB
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
