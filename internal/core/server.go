// Package core provides the API chassis for the Agendly billing service.
// It creates a chi router and enforces cross-cutting concerns -- recovery,
// request identity, logging, authentication, and rate limiting -- before
// requests reach domain-specific handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"agendly/internal/config"
)

// RateLimitStore abstracts the backing store for rate limiting.
// The production implementation is security.SlidingWindowStore.
type RateLimitStore interface {
	// IncrementAndCheck atomically records a request for the key and
	// checks it against the limit within the window.
	IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
}

// RateLimitResult contains the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Pinger reports backing-store connectivity for the health endpoint.
// *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server encapsulates the chassis dependencies for the billing API,
// allowing injection during testing and distinct configuration per
// environment.
type Server struct {
	Config         *config.Config
	Logger         *slog.Logger
	Validator      *Validator
	RateLimitStore RateLimitStore
	DB             Pinger

	// V1RouteRegistrars are invoked by MountRoutes to attach domain
	// handler routes under /v1.
	V1RouteRegistrars []V1RouteRegistrar

	router *chi.Mux
}

// NewServer initializes the chassis and prepares the server for route
// mounting. The caller mounts routes after construction; this separation
// lets tests customize route registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	if closer, ok := s.DB.(interface{ Close() }); ok {
		closer.Close()
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
