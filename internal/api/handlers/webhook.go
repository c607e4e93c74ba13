// This file implements the inbound payment-provider webhook. The endpoint is
// unauthenticated (the provider does not hold a user token); trust derives
// from the correlation token inside the event, which only our initiator
// mints.
package handlers

import (
	"context"
	"log/slog"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agendly/internal/billing"
	"agendly/internal/core"
	"agendly/internal/types"
)

// EventReconciler converges subscription state with a provider event.
// The production implementation is billing.Reconciler.
type EventReconciler interface {
	Process(ctx context.Context, event *types.WebhookEvent) (billing.Outcome, error)
}

// WebhookHandler receives asynchronous payment events from the PIX provider.
type WebhookHandler struct {
	reconciler EventReconciler
	validator  *core.Validator
	logger     *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(reconciler EventReconciler, validator *core.Validator, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		reconciler: reconciler,
		validator:  validator,
		logger:     logger,
	}
}

// RegisterRoutes mounts the webhook endpoint. No auth middleware: the
// provider posts without a bearer token.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/payment", h.HandlePaymentEvent)
}

// paymentEventRequest is the provider's event body. TotalAmount arrives as
// decimal reais, the provider's native unit. Zero is a legal amount: failure
// and chargeback notices may carry no money, and the reconciler does not need
// the amount when a payment intent exists.
type paymentEventRequest struct {
	ID            string  `json:"id" validate:"required"`
	ExternalID    string  `json:"external_id" validate:"required"`
	TotalAmount   float64 `json:"total_amount" validate:"gte=0"`
	Status        string  `json:"status" validate:"required"`
	PaymentMethod string  `json:"payment_method"`
}

// receivedResponse acknowledges a durably settled event.
type receivedResponse struct {
	Received bool `json:"received"`
}

// HandlePaymentEvent handles POST /v1/webhooks/payment.
//
// Responses are the redelivery contract with the provider:
//   - 200: the event was durably settled (applied, dropped as stale, or a
//     no-op); the provider must not redeliver.
//   - 4xx: the event is malformed and will never succeed; redelivery is
//     pointless.
//   - 503: persistence failed; the provider should redeliver later.
func (h *WebhookHandler) HandlePaymentEvent(w http.ResponseWriter, r *http.Request) {
	var req paymentEventRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	status, err := types.ParseProviderStatus(req.Status)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	event := &types.WebhookEvent{
		ProviderID:    req.ID,
		ExternalID:    req.ExternalID,
		AmountCents:   reaisToCents(req.TotalAmount),
		Status:        status,
		PaymentMethod: req.PaymentMethod,
	}

	outcome, err := h.reconciler.Process(r.Context(), event)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "payment event settled",
		"provider_event_id", req.ID,
		"outcome", string(outcome),
	)

	core.JSON(w, r, http.StatusOK, receivedResponse{Received: true})
}

// reaisToCents converts a decimal reais amount into integer centavos,
// rounding half away from zero. All internal money arithmetic is integer.
func reaisToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
