// Package handlers contains the HTTP handler implementations for the Agendly
// billing API.
//
// This file implements the authenticated billing surface:
//   - Subscription purchase (PIX transaction initiation)
//   - Entitlement resolution (plan limits plus live usage)
//   - Current subscription lookup
package handlers

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"agendly/internal/billing"
	"agendly/internal/core"
	"agendly/internal/types"
)

// qrCodeSize is the pixel edge length of the rendered PIX QR code.
const qrCodeSize = 256

// TransactionInitiator opens a payment-provider transaction for a plan
// purchase. The production implementation is billing.Initiator.
type TransactionInitiator interface {
	Initiate(ctx context.Context, userID string, tier types.PlanTier, periodMonths int, customer types.Customer) (*types.TransactionReference, error)
}

// EntitlementResolver computes the effective entitlements for a user.
// The production implementation is billing.Resolver.
type EntitlementResolver interface {
	Resolve(ctx context.Context, userID string) (*billing.Entitlements, error)
}

// SubscriptionReader provides read access to the durable subscription row.
type SubscriptionReader interface {
	GetByUserID(ctx context.Context, userID string) (*types.Subscription, error)
}

// BillingHandler serves the authenticated billing endpoints.
type BillingHandler struct {
	initiator TransactionInitiator
	resolver  EntitlementResolver
	subs      SubscriptionReader
	validator *core.Validator
	logger    *slog.Logger
}

// NewBillingHandler creates a BillingHandler with its dependencies.
func NewBillingHandler(
	initiator TransactionInitiator,
	resolver EntitlementResolver,
	subs SubscriptionReader,
	validator *core.Validator,
	logger *slog.Logger,
) *BillingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingHandler{
		initiator: initiator,
		resolver:  resolver,
		subs:      subs,
		validator: validator,
		logger:    logger,
	}
}

// RegisterRoutes mounts the billing endpoints. The supplied middlewares
// (authentication, rate limiting) wrap the whole group.
func (h *BillingHandler) RegisterRoutes(r chi.Router, middlewares ...func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(middlewares...)

		r.Post("/billing/subscribe", h.Subscribe)
		r.Get("/billing/entitlements", h.GetEntitlements)
		r.Get("/billing/subscription", h.GetSubscription)
	})
}

// SubscribeRequest is the purchase request body.
type SubscribeRequest struct {
	Plan         string         `json:"plan" validate:"required,oneof=pro premium"`
	PeriodMonths int            `json:"period_months" validate:"required,oneof=1 6 12"`
	Customer     types.Customer `json:"customer" validate:"required"`
}

// SubscribeResponse echoes the provider transaction plus a rendered QR code
// for the PIX copy-and-paste payload.
type SubscribeResponse struct {
	TransactionID string `json:"transaction_id"`
	PixPayload    string `json:"pix_payload"`
	QRCodeBase64  string `json:"qr_code_base64,omitempty"`
	Status        string `json:"status"`
	AmountCents   int64  `json:"amount_cents"`
}

// Subscribe handles POST /v1/billing/subscribe.
//
// It validates the requested plan and period, opens a PIX charge with the
// payment provider on behalf of the authenticated user, and returns the
// provider's transaction reference. The subscription itself is only
// activated later, when the provider's payment event arrives on the webhook.
func (h *BillingHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing,
			"authentication is required", nil))
		return
	}

	var req SubscribeRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	tier := types.PlanTier(req.Plan)
	if !tier.IsPaid() {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidPlan,
			"plan is not purchasable", nil))
		return
	}

	ref, err := h.initiator.Initiate(r.Context(), actor.UserID, tier, req.PeriodMonths, req.Customer)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	resp := SubscribeResponse{
		TransactionID: ref.TransactionID,
		PixPayload:    ref.PixPayload,
		QRCodeBase64:  renderQRCode(ref.PixPayload, h.logger),
		Status:        ref.Status,
		AmountCents:   ref.AmountCents,
	}

	core.JSON(w, r, http.StatusCreated, resp)
}

// renderQRCode encodes the PIX payload as a base64 PNG. Rendering failure is
// not fatal: the copy-and-paste payload alone is sufficient to pay.
func renderQRCode(payload string, logger *slog.Logger) string {
	if payload == "" {
		return ""
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, qrCodeSize)
	if err != nil {
		logger.Warn("qr code rendering failed", slog.String("error", err.Error()))
		return ""
	}
	return base64.StdEncoding.EncodeToString(png)
}

// GetEntitlements handles GET /v1/billing/entitlements.
//
// It returns the authenticated user's effective plan, its limits, and a live
// usage snapshot. Users without a subscription row resolve to the free tier.
func (h *BillingHandler) GetEntitlements(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing,
			"authentication is required", nil))
		return
	}

	ent, err := h.resolver.Resolve(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, ent)
}

// SubscriptionResponse is the current-subscription view.
type SubscriptionResponse struct {
	Plan               types.PlanTier           `json:"plan"`
	Status             types.SubscriptionStatus `json:"status"`
	CurrentPeriodStart *time.Time               `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time               `json:"current_period_end,omitempty"`
}

// GetSubscription handles GET /v1/billing/subscription.
//
// Users who never purchased have no subscription row; they are reported as
// free/active rather than as an error, so the client needs no special case.
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing,
			"authentication is required", nil))
		return
	}

	sub, err := h.subs.GetByUserID(r.Context(), actor.UserID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if sub == nil {
		core.JSON(w, r, http.StatusOK, SubscriptionResponse{
			Plan:   types.PlanFree,
			Status: types.SubStatusActive,
		})
		return
	}

	core.JSON(w, r, http.StatusOK, SubscriptionResponse{
		Plan:               sub.Plan,
		Status:             sub.Status,
		CurrentPeriodStart: &sub.CurrentPeriodStart,
		CurrentPeriodEnd:   &sub.CurrentPeriodEnd,
	})
}
