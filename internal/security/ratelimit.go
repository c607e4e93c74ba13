// Package security provides the request-throttling primitives for the
// Agendly billing service.
package security

import (
	"context"
	"sync"
	"time"

	"agendly/internal/core"
)

// SlidingWindowStore is an in-memory keyed rate limiter. Each key maps to an
// ordered sequence of request timestamps; entries older than the window are
// pruned lazily on every check, so state is explicit and self-expiring
// rather than global and implicit.
//
// Safe for concurrent use.
type SlidingWindowStore struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	now     func() time.Time
}

// NewSlidingWindowStore creates an empty SlidingWindowStore.
func NewSlidingWindowStore() *SlidingWindowStore {
	return &SlidingWindowStore{
		entries: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// IncrementAndCheck records one request for the key and reports whether the
// key stays within limit requests per window. The request is counted even
// when denied, so a client hammering the endpoint keeps its window full.
func (s *SlidingWindowStore) IncrementAndCheck(ctx context.Context, key string, limit int, window time.Duration) (core.RateLimitResult, error) {
	now := s.now()
	cutoff := now.Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	stamps := s.entries[key]

	// Lazy prune: drop everything that slid out of the window.
	kept := stamps[:0]
	for _, t := range stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	kept = append(kept, now)
	s.entries[key] = kept

	allowed := len(kept) <= limit
	remaining := limit - len(kept)
	if remaining < 0 {
		remaining = 0
	}

	return core.RateLimitResult{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   kept[0].Add(window),
	}, nil
}

// Purge removes keys whose every entry has expired. Intended for an
// occasional housekeeping call; correctness never depends on it because
// pruning also happens on each check.
func (s *SlidingWindowStore) Purge(window time.Duration) {
	cutoff := s.now().Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, stamps := range s.entries {
		live := false
		for _, t := range stamps {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(s.entries, key)
		}
	}
}
