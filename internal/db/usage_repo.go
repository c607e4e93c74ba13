package db

import (
	"context"
	"time"

	"agendly/internal/types"
)

// UsageRepo provides the read-only count queries over the collaborator
// tables owned by the product's CRUD layer. It implements
// billing.UsageCounter.
//
// These queries are intentionally separated from the repository pattern for
// owned tables: they are point-in-time aggregations that serve entitlement
// resolution and nothing else, and they must never be cached across
// resolutions.
type UsageRepo struct {
	db DBTX
}

// NewUsageRepo creates a UsageRepo backed by the given database connection.
func NewUsageRepo(db DBTX) *UsageRepo {
	return &UsageRepo{db: db}
}

// count runs a single scalar COUNT query.
func (u *UsageRepo) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := u.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to count usage", err)
	}
	return n, nil
}

// CountAppointments counts appointments created in [from, to) for the user.
// The resolver passes the current calendar month.
func (u *UsageRepo) CountAppointments(ctx context.Context, userID string, from, to time.Time) (int, error) {
	return u.count(ctx,
		`SELECT COUNT(*)
		 FROM appointments
		 WHERE user_id = $1
		   AND created_at >= $2
		   AND created_at < $3`,
		userID, from, to,
	)
}

// CountServices counts the user's currently defined services.
func (u *UsageRepo) CountServices(ctx context.Context, userID string) (int, error) {
	return u.count(ctx,
		`SELECT COUNT(*) FROM services WHERE user_id = $1`,
		userID,
	)
}

// CountEmployees counts the user's employee records.
func (u *UsageRepo) CountEmployees(ctx context.Context, userID string) (int, error) {
	return u.count(ctx,
		`SELECT COUNT(*) FROM employees WHERE user_id = $1`,
		userID,
	)
}

// CountBioLinks counts the user's bio-page links.
func (u *UsageRepo) CountBioLinks(ctx context.Context, userID string) (int, error) {
	return u.count(ctx,
		`SELECT COUNT(*) FROM bio_links WHERE user_id = $1`,
		userID,
	)
}

// CountTestimonials counts the user's published testimonials.
func (u *UsageRepo) CountTestimonials(ctx context.Context, userID string) (int, error) {
	return u.count(ctx,
		`SELECT COUNT(*) FROM testimonials WHERE user_id = $1`,
		userID,
	)
}
