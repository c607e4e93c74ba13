package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"agendly/internal/billing"
	"agendly/internal/core"
	"agendly/internal/types"
)

// --- Stubs ---

type stubReconciler struct {
	outcome billing.Outcome
	err     error

	gotEvent *types.WebhookEvent
}

func (s *stubReconciler) Process(_ context.Context, event *types.WebhookEvent) (billing.Outcome, error) {
	s.gotEvent = event
	return s.outcome, s.err
}

func newWebhookHandler(rec *stubReconciler) *WebhookHandler {
	return NewWebhookHandler(rec, core.NewValidator(), nil)
}

func postEvent(t *testing.T, h *WebhookHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payment", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.HandlePaymentEvent(rr, req)
	return rr
}

const validEventBody = `{
	"id": "evt_1",
	"external_id": "sub_user-1_1700000000000",
	"total_amount": 29.90,
	"status": "authorized",
	"payment_method": "pix"
}`

// --- Tests ---

func TestHandlePaymentEvent_AppliedReturnsReceived(t *testing.T) {
	rec := &stubReconciler{outcome: billing.OutcomeApplied}
	rr := postEvent(t, newWebhookHandler(rec), validEventBody)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}

	var resp receivedResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Received {
		t.Error("response must acknowledge receipt")
	}

	// Decimal reais converted to integer centavos.
	if rec.gotEvent.AmountCents != 2990 {
		t.Errorf("amount = %d centavos, want 2990", rec.gotEvent.AmountCents)
	}
	if rec.gotEvent.Status != types.ProviderStatusAuthorized {
		t.Errorf("status = %s, want authorized", rec.gotEvent.Status)
	}
}

func TestHandlePaymentEvent_DroppedStillReturns200(t *testing.T) {
	// A stale event is durably settled; the provider must not redeliver.
	rec := &stubReconciler{outcome: billing.OutcomeDropped}
	rr := postEvent(t, newWebhookHandler(rec), validEventBody)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestHandlePaymentEvent_MalformedJSON(t *testing.T) {
	rec := &stubReconciler{}
	rr := postEvent(t, newWebhookHandler(rec), `{not json`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if rec.gotEvent != nil {
		t.Error("reconciler must not run for malformed bodies")
	}
}

func TestHandlePaymentEvent_MissingFields(t *testing.T) {
	rec := &stubReconciler{}
	rr := postEvent(t, newWebhookHandler(rec), `{"id": "evt_1"}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rr.Code, rr.Body.String())
	}
}

func TestHandlePaymentEvent_ZeroAmountCancellationAccepted(t *testing.T) {
	rec := &stubReconciler{outcome: billing.OutcomeApplied}
	body := `{
		"id": "evt_2",
		"external_id": "sub_user-1_1700000000000",
		"total_amount": 0,
		"status": "chargeback",
		"payment_method": "pix"
	}`
	rr := postEvent(t, newWebhookHandler(rec), body)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}
	if rec.gotEvent == nil {
		t.Fatal("zero-amount cancellation must reach the reconciler")
	}
	if rec.gotEvent.AmountCents != 0 {
		t.Errorf("amount_cents = %d, want 0", rec.gotEvent.AmountCents)
	}
	if rec.gotEvent.Status != types.ProviderStatusChargeback {
		t.Errorf("status = %s, want chargeback", rec.gotEvent.Status)
	}
}

func TestHandlePaymentEvent_UnknownStatusRejected(t *testing.T) {
	rec := &stubReconciler{}
	body := `{
		"id": "evt_1",
		"external_id": "sub_user-1_1700000000000",
		"total_amount": 29.90,
		"status": "exploded",
		"payment_method": "pix"
	}`
	rr := postEvent(t, newWebhookHandler(rec), body)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if rec.gotEvent != nil {
		t.Error("reconciler must not run for unknown statuses")
	}
}

func TestHandlePaymentEvent_PersistenceFailureSignalsRedelivery(t *testing.T) {
	rec := &stubReconciler{err: types.NewAppError(types.ErrCodeInternalDB,
		"failed to apply subscription event", nil)}
	rr := postEvent(t, newWebhookHandler(rec), validEventBody)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 so the provider redelivers", rr.Code)
	}
}

func TestHandlePaymentEvent_InvalidTokenIs400(t *testing.T) {
	rec := &stubReconciler{err: types.NewAppError(types.ErrCodeValidationInvalidToken,
		"correlation token must start with sub_", nil)}
	rr := postEvent(t, newWebhookHandler(rec), validEventBody)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; redelivery of a bad token can never succeed", rr.Code)
	}
}

func TestReaisToCents_Rounding(t *testing.T) {
	tests := []struct {
		reais float64
		want  int64
	}{
		{29.90, 2990},
		{59.00, 5900},
		{495.60, 49560},
		{0.01, 1},
		{152.49, 15249},
	}

	for _, tt := range tests {
		if got := reaisToCents(tt.reais); got != tt.want {
			t.Errorf("reaisToCents(%v) = %d, want %d", tt.reais, got, tt.want)
		}
	}
}
