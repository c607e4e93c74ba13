package core

import (
	"github.com/go-chi/chi/v5"
)

// V1RouteRegistrar registers a group of domain routes under /v1. Handler
// packages provide registrars and main.go wires them in, which keeps core
// free of handler imports.
type V1RouteRegistrar func(r chi.Router)

// MountRoutes defines the top-level routing hierarchy: the global
// middleware chain, the /v1 API group, and the public health check.
//
// Authentication and rate limiting are applied per-group by the
// registrars rather than globally, because the payment provider posts
// webhooks without a bearer token.
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestID)
	s.router.Use(RequestLogger(s.Logger))

	s.router.Route("/v1", func(r chi.Router) {
		for _, registrar := range s.V1RouteRegistrars {
			registrar(r)
		}
	})

	s.router.Get("/health", s.HandleHealth)
}
