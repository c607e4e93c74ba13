package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"agendly/internal/types"
)

// PaymentIntentRepo owns the payment_intents table: one row per initiated
// transaction, keyed by the correlation token. The reconciler treats this
// record as the authoritative "what was purchased" signal.
type PaymentIntentRepo struct {
	db DBTX
}

// NewPaymentIntentRepo creates a PaymentIntentRepo backed by the given
// database connection (pool or transaction).
func NewPaymentIntentRepo(db DBTX) *PaymentIntentRepo {
	return &PaymentIntentRepo{db: db}
}

// Create persists a new payment intent. Tokens embed a strictly increasing
// timestamp, so collisions indicate a programming error and surface as a
// database error rather than being silently absorbed.
func (r *PaymentIntentRepo) Create(ctx context.Context, intent *types.PaymentIntent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO payment_intents
		     (token, user_id, plan, period_months, expected_cents, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		intent.Token,
		intent.UserID,
		intent.Plan,
		intent.PeriodMonths,
		intent.ExpectedCents,
		intent.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create payment intent", err)
	}
	return nil
}

// GetByToken returns the intent for the given correlation token, or
// (nil, nil) when no intent was recorded.
func (r *PaymentIntentRepo) GetByToken(ctx context.Context, token string) (*types.PaymentIntent, error) {
	var intent types.PaymentIntent
	err := r.db.QueryRow(ctx,
		`SELECT token, user_id, plan, period_months, expected_cents, created_at
		 FROM payment_intents
		 WHERE token = $1`,
		token,
	).Scan(
		&intent.Token,
		&intent.UserID,
		&intent.Plan,
		&intent.PeriodMonths,
		&intent.ExpectedCents,
		&intent.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load payment intent", err)
	}

	return &intent, nil
}
