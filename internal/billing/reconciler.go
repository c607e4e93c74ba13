package billing

import (
	"context"
	"log/slog"
	"time"

	"agendly/internal/types"
)

// periodDayLength fixes a billing month at 30 days. Period arithmetic is
// deliberately not calendar-accurate; the paid window is always
// periodMonths * 30 days from the applied event.
const periodDayLength = 30 * 24 * time.Hour

// amountToleranceCents is the rounding tolerance for the paid-amount
// consistency check. Provider amounts arrive as decimal reais and may lose a
// centavo in conversion.
const amountToleranceCents = 5

// Outcome describes how the reconciler disposed of an event. Every outcome
// other than an error is durably settled and must be acknowledged to the
// provider as success.
type Outcome string

const (
	// OutcomeApplied means the subscription record was mutated.
	OutcomeApplied Outcome = "applied"
	// OutcomeDropped means the event was stale and durably discarded.
	OutcomeDropped Outcome = "dropped"
	// OutcomeNoOp means the event carries no state transition (pending).
	OutcomeNoOp Outcome = "no_op"
)

// SubscriptionStore is the write-side contract the reconciler requires.
// Apply must be a single atomic conditional write: the record is inserted or
// updated only when the stored last_event_at is not newer than the incoming
// one, so two concurrent handlers can never lose an update.
type SubscriptionStore interface {
	// Apply upserts the subscription keyed by user identity. It returns
	// (false, nil) when the write was suppressed by the ordering guard.
	Apply(ctx context.Context, sub *types.Subscription) (applied bool, err error)
}

// IntentReader looks up the payment intent written at initiation.
// A missing intent is returned as (nil, nil).
type IntentReader interface {
	GetByToken(ctx context.Context, token string) (*types.PaymentIntent, error)
}

// Reconciler converges the durable subscription state with asynchronous,
// possibly duplicated, possibly out-of-order payment-provider events.
type Reconciler struct {
	subs    SubscriptionStore
	intents IntentReader
	catalog Catalog
	logger  *slog.Logger
	now     func() time.Time
}

// NewReconciler creates a Reconciler.
func NewReconciler(subs SubscriptionStore, intents IntentReader, catalog Catalog, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		subs:    subs,
		intents: intents,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}
}

// Process applies one validated webhook event.
//
// The correlation token embedded in the event's external ID recovers the
// originating user and orders events: an event whose token timestamp is
// older than the stored last_event_at is dropped, never applied, so a stale
// failure can never cancel a subscription a newer authorization activated.
//
// Tier and period come from the payment intent recorded at initiation; the
// paid amount is only a consistency check. A mismatch is logged as an
// anomaly for manual review but the state is still applied with the claimed
// tier: refusing to activate a paid subscription over a rounding
// discrepancy would be the worse failure.
//
// Any non-nil error means the event was NOT durably settled and the caller
// must signal the provider to redeliver.
func (r *Reconciler) Process(ctx context.Context, event *types.WebhookEvent) (Outcome, error) {
	userID, tokenTime, err := ParseToken(event.ExternalID)
	if err != nil {
		return "", err
	}

	if event.Status == types.ProviderStatusPending {
		r.logger.InfoContext(ctx, "pending payment event, no state transition",
			"provider_id", event.ProviderID,
			"user_id", userID,
		)
		return OutcomeNoOp, nil
	}

	plan, periodMonths, err := r.resolvePurchase(ctx, event, userID)
	if err != nil {
		return "", err
	}

	status := targetStatus(event.Status)
	now := r.now().UTC()

	sub := &types.Subscription{
		UserID:             userID,
		Plan:               plan,
		Status:             status,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(time.Duration(periodMonths) * periodDayLength),
		LastEventAt:        tokenTime,
		UpdatedAt:          now,
	}

	applied, err := r.subs.Apply(ctx, sub)
	if err != nil {
		return "", err
	}
	if !applied {
		r.logger.WarnContext(ctx, "stale payment event dropped",
			"provider_id", event.ProviderID,
			"user_id", userID,
			"event_at", tokenTime,
			"status", event.Status,
			"code", types.ErrCodeBillingStaleEvent,
		)
		return OutcomeDropped, nil
	}

	r.logger.InfoContext(ctx, "subscription state applied",
		"provider_id", event.ProviderID,
		"user_id", userID,
		"plan", plan,
		"status", status,
		"period_months", periodMonths,
	)
	return OutcomeApplied, nil
}

// resolvePurchase determines what was purchased. The payment intent written
// at initiation is authoritative; amount-threshold inference survives only
// as a fallback for events with no recorded intent.
func (r *Reconciler) resolvePurchase(ctx context.Context, event *types.WebhookEvent, userID string) (types.PlanTier, int, error) {
	intent, err := r.intents.GetByToken(ctx, event.ExternalID)
	if err != nil {
		return "", 0, err
	}

	if intent == nil {
		plan := TierForAmount(r.catalog, event.AmountCents)
		r.logger.WarnContext(ctx, "no payment intent for event, falling back to amount-derived tier",
			"provider_id", event.ProviderID,
			"user_id", userID,
			"amount_cents", event.AmountCents,
			"derived_plan", plan,
		)
		return plan, 1, nil
	}

	if diff := event.AmountCents - intent.ExpectedCents; diff > amountToleranceCents || diff < -amountToleranceCents {
		// Anomaly, not a rejection: the claimed tier is still applied.
		r.logger.ErrorContext(ctx, "paid amount does not match payment intent",
			"provider_id", event.ProviderID,
			"user_id", userID,
			"paid_cents", event.AmountCents,
			"expected_cents", intent.ExpectedCents,
			"plan", intent.Plan,
			"period_months", intent.PeriodMonths,
			"code", types.ErrCodeBillingAmountMismatch,
		)
	}

	return intent.Plan, intent.PeriodMonths, nil
}

// targetStatus maps a provider status to the subscription state it produces.
// Pending never reaches this function.
func targetStatus(s types.ProviderStatus) types.SubscriptionStatus {
	switch s {
	case types.ProviderStatusAuthorized:
		return types.SubStatusActive
	case types.ProviderStatusInDispute:
		return types.SubStatusPastDue
	default: // failed, chargeback
		return types.SubStatusCancelled
	}
}
