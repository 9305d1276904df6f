// internal/httpserver/server.go
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/hajimi/internal/config"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver/deps"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver/mw"
	"github.com/MrSnakeDoc/hajimi/internal/httpserver/routes"
	"github.com/MrSnakeDoc/hajimi/internal/logger"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	http    *http.Server
	logger  logger.Logger
	started time.Time
}

// NewRouter builds the router: global middlewares and every registered route.
func NewRouter(d deps.Deps, timeout time.Duration) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := chi.NewRouter()

	r.Use(middleware.GetHead)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(mw.Log(d.Logger))

	routes.RegisterAll(r, d)
	return r
}

// New builds the HTTP server. The mutating routes share one rate limiter.
func New(cfg *config.Config, loggerClient logger.Logger, d deps.Deps) *Server {
	if d.RateLimit == nil && cfg.RateLimitBurst > 0 {
		d.RateLimit = mw.RateLimit(mw.RateLimitConfig{
			Burst:             cfg.RateLimitBurst,
			RefillPerIPPerMin: cfg.RateLimitPerMinute,
			MaxEntries:        10_000,
			TrustProxy:        cfg.TrustProxy,
		})
	}

	s := &http.Server{
		Addr:              cfg.ListenPort,
		Handler:           NewRouter(d, cfg.HTTPTimeout),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.HTTPTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return &Server{
		http:    s,
		logger:  loggerClient,
		started: d.StartTime,
	}
}

// Start runs the HTTP server (blocks until error or shutdown).
func (s *Server) Start() error {
	s.logger.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the server with the provided context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down...")
	return s.http.Shutdown(ctx)
}
