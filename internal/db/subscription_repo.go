package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"agendly/internal/types"
)

// SubscriptionRepo owns the subscriptions table: one row per user, mutated
// exclusively through Apply.
//
// Key invariants:
//   - Apply is a single atomic conditional write (upsert guarded by
//     last_event_at), so concurrent webhook deliveries for the same user
//     cannot lose an update.
//   - Rows are never deleted here; cancellation is a status value.
type SubscriptionRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewSubscriptionRepo creates a SubscriptionRepo backed by the given
// database connection (pool or transaction).
func NewSubscriptionRepo(db DBTX, logger *slog.Logger) *SubscriptionRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionRepo{db: db, logger: logger}
}

// Apply upserts the subscription record keyed by user identity.
//
// The ordering guard lives in the ON CONFLICT clause: the update fires only
// when the stored last_event_at is not newer than the incoming one. Older
// events fall through with zero rows affected and are reported as
// (false, nil) so the caller can log the drop and still acknowledge the
// event. Equal timestamps re-apply, which keeps duplicate deliveries of the
// same event idempotent.
func (r *SubscriptionRepo) Apply(ctx context.Context, sub *types.Subscription) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO subscriptions
		     (user_id, plan, status, current_period_start, current_period_end, last_event_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id) DO UPDATE
		 SET plan = EXCLUDED.plan,
		     status = EXCLUDED.status,
		     current_period_start = EXCLUDED.current_period_start,
		     current_period_end = EXCLUDED.current_period_end,
		     last_event_at = EXCLUDED.last_event_at,
		     updated_at = EXCLUDED.updated_at
		 WHERE subscriptions.last_event_at <= EXCLUDED.last_event_at`,
		sub.UserID,
		sub.Plan,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.LastEventAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to apply subscription event", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetByUserID returns the subscription for the given user, or (nil, nil)
// when the user has never completed a payment. Absence is the normal state
// of every free account, not an error.
func (r *SubscriptionRepo) GetByUserID(ctx context.Context, userID string) (*types.Subscription, error) {
	var sub types.Subscription
	err := r.db.QueryRow(ctx,
		`SELECT user_id, plan, status, current_period_start, current_period_end, last_event_at, updated_at
		 FROM subscriptions
		 WHERE user_id = $1`,
		userID,
	).Scan(
		&sub.UserID,
		&sub.Plan,
		&sub.Status,
		&sub.CurrentPeriodStart,
		&sub.CurrentPeriodEnd,
		&sub.LastEventAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load subscription", err)
	}

	return &sub, nil
}
