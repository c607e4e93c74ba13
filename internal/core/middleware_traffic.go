package core

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"agendly/internal/types"
)

// Rate limit defaults for authenticated billing routes. Billing traffic is
// low-volume by nature; this mainly throttles scripted abuse.
const (
	defaultRateLimitWindow = time.Minute
	defaultRateLimitMax    = 60
)

// RateLimit throttles authenticated requests per user via the configured
// RateLimitStore.
//
// If no store is configured (e.g. during tests) or no Actor is in the
// context, the middleware passes through. On store errors it fails open:
// a limiter outage must not block all billing traffic.
//
// On every response the middleware sets X-RateLimit-Limit,
// X-RateLimit-Remaining, and X-RateLimit-Reset; on a denial it also sets
// Retry-After.
func (s *Server) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.RateLimitStore == nil {
			next.ServeHTTP(w, r)
			return
		}

		actor, ok := types.GetActor(r.Context())
		if !ok || actor.UserID == "" {
			next.ServeHTTP(w, r)
			return
		}

		result, err := s.RateLimitStore.IncrementAndCheck(
			r.Context(),
			actor.UserID,
			defaultRateLimitMax,
			defaultRateLimitWindow,
		)
		if err != nil {
			s.Logger.Error("rate limit store error",
				slog.String("user_id", actor.UserID),
				slog.String("error", err.Error()),
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(defaultRateLimitMax))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			s.Logger.Warn("rate limit exceeded",
				slog.String("user_id", actor.UserID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)

			retryAfter := int(time.Until(result.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

			Error(w, r, types.NewAppError(types.ErrCodeRateLimit,
				"rate limit exceeded, please retry after the reset time", nil))
			return
		}

		next.ServeHTTP(w, r)
	})
}
