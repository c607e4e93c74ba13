package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"agendly/internal/types"
)

// ChargeRequest describes one PIX charge: a single line item at the
// discount-adjusted period total, correlated by our token.
type ChargeRequest struct {
	AmountCents int64
	ExternalID  string
	Description string
	Customer    types.Customer
}

// ChargeResult carries the provider's echoed reference and status verbatim.
type ChargeResult struct {
	TransactionID string
	PixPayload    string
	Status        string
	AmountCents   int64
}

// ChargeCreator submits a charge to the external payment provider.
// Implementations do not retry: retrying a payment initiation can create
// duplicate charges, so retry is an explicit caller decision.
type ChargeCreator interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// IntentWriter persists the payment intent that the reconciler later treats
// as the authoritative record of what was purchased.
type IntentWriter interface {
	Create(ctx context.Context, intent *types.PaymentIntent) error
}

// Initiator quotes a plan/period combination and opens a payment-provider
// transaction for it.
type Initiator struct {
	catalog  Catalog
	intents  IntentWriter
	provider ChargeCreator
	logger   *slog.Logger
	now      func() time.Time
}

// NewInitiator creates an Initiator.
func NewInitiator(catalog Catalog, intents IntentWriter, provider ChargeCreator, logger *slog.Logger) *Initiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Initiator{
		catalog:  catalog,
		intents:  intents,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// Initiate computes the discount-adjusted total for the tier and period,
// records the payment intent, and submits one outbound charge request.
//
// Preconditions: the tier must be purchasable, the period must be 1, 6, or
// 12 months, and the customer's contact and tax-identifier fields must be
// structurally present. The initiator does not verify deliverability or
// identity; it only refuses obviously malformed input before spending a
// network round trip.
func (i *Initiator) Initiate(
	ctx context.Context,
	userID string,
	tier types.PlanTier,
	periodMonths int,
	customer types.Customer,
) (*types.TransactionReference, error) {
	if err := validateCustomer(customer); err != nil {
		return nil, err
	}

	// PriceFor rejects non-purchasable tiers and unknown period lengths.
	total, err := i.catalog.PriceFor(tier, periodMonths)
	if err != nil {
		return nil, err
	}

	now := i.now().UTC()
	token := MintToken(userID, now)

	intent := &types.PaymentIntent{
		Token:         token,
		UserID:        userID,
		Plan:          tier,
		PeriodMonths:  periodMonths,
		ExpectedCents: total,
		CreatedAt:     now,
	}
	if err := i.intents.Create(ctx, intent); err != nil {
		return nil, err
	}

	result, err := i.provider.CreateCharge(ctx, ChargeRequest{
		AmountCents: total,
		ExternalID:  token,
		Description: chargeDescription(tier, periodMonths),
		Customer:    customer,
	})
	if err != nil {
		// Surfaced, never retried here.
		return nil, err
	}

	i.logger.InfoContext(ctx, "payment transaction initiated",
		"user_id", userID,
		"plan", tier,
		"period_months", periodMonths,
		"amount_cents", total,
		"transaction_id", result.TransactionID,
	)

	return &types.TransactionReference{
		TransactionID: result.TransactionID,
		Token:         token,
		PixPayload:    result.PixPayload,
		Status:        result.Status,
		AmountCents:   result.AmountCents,
	}, nil
}

// validateCustomer checks structural presence of the purchaser fields.
func validateCustomer(c types.Customer) error {
	missing := ""
	switch {
	case c.Name == "":
		missing = "name"
	case c.Email == "":
		missing = "email"
	case c.Phone == "":
		missing = "phone"
	case c.Document == "":
		missing = "document"
	case c.DocumentType == "":
		missing = "document_type"
	}
	if missing != "" {
		return types.NewAppError(types.ErrCodeValidationMissingField,
			"customer "+missing+" is required", nil)
	}
	return nil
}

// chargeDescription builds the single line item description for the charge.
func chargeDescription(tier types.PlanTier, periodMonths int) string {
	return fmt.Sprintf("Agendly %s - %d month(s)", tier, periodMonths)
}
