package core

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds the database ping so a wedged pool cannot hang
// the load balancer's probe.
const healthCheckTimeout = 2 * time.Second

// componentStatus represents the health state of a single subsystem.
type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthResponse is the JSON response body for the health check endpoint.
type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth reports service liveness plus database connectivity.
// Returns 200 when the database responds to a ping within the deadline,
// 503 otherwise. The endpoint is public and mounted at GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		// No database wired (tests): report liveness only.
		JSON(w, r, http.StatusOK, healthResponse{Status: "healthy"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := s.DB.Ping(ctx); err != nil {
		JSON(w, r, http.StatusServiceUnavailable, healthResponse{
			Status: "unhealthy",
			Components: map[string]componentStatus{
				"database": {Status: "unhealthy", Message: err.Error()},
			},
		})
		return
	}

	JSON(w, r, http.StatusOK, healthResponse{
		Status: "healthy",
		Components: map[string]componentStatus{
			"database": {Status: "healthy"},
		},
	})
}
