package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"agendly/internal/billing"
	"agendly/internal/types"
)

// PixClientConfig holds the configuration for creating a PixClient.
type PixClientConfig struct {
	APIKey  types.SecretString
	BaseURL string // Override for testing.
	Logger  *slog.Logger
}

// PixClient implements billing.ChargeCreator against the payment provider's
// PIX charge API. Requests are routed through BaseClient for circuit
// breaking and error mapping; the retry policy is zero retries because
// charge creation is not idempotent.
type PixClient struct {
	base    *BaseClient
	apiKey  types.SecretString
	baseURL string
	logger  *slog.Logger
}

// NewPixClient creates a PixClient. The httpClient should carry the overall
// call deadline; the client manages no timeout of its own.
func NewPixClient(httpClient *http.Client, cfg PixClientConfig) *PixClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PixClient{
		base:    NewBaseClient(httpClient, "pix", NoRetryPolicy(), "Agendly/1.0"),
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

// pixChargeRequest is the provider's charge creation payload.
type pixChargeRequest struct {
	AmountCents int64       `json:"amount"`
	ExternalID  string      `json:"external_id"`
	Description string      `json:"description"`
	Customer    pixCustomer `json:"customer"`
}

type pixCustomer struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Document     string `json:"document"`
	DocumentType string `json:"document_type"`
}

// pixChargeResponse is the provider's echo: its transaction id, the PIX
// copy-paste payload, and the initial status.
type pixChargeResponse struct {
	ID          string `json:"id"`
	BRCode      string `json:"br_code"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amount"`
}

// pixErrorResponse is the provider's error body.
type pixErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateCharge submits one charge to the provider and surfaces the echoed
// reference verbatim. A non-success response becomes an AppError carrying
// the provider's raw diagnostic; the call is never retried here.
func (p *PixClient) CreateCharge(ctx context.Context, req billing.ChargeRequest) (*billing.ChargeResult, error) {
	payload, err := json.Marshal(pixChargeRequest{
		AmountCents: req.AmountCents,
		ExternalID:  req.ExternalID,
		Description: req.Description,
		Customer: pixCustomer{
			Name:         req.Customer.Name,
			Email:        req.Customer.Email,
			Phone:        req.Customer.Phone,
			Document:     req.Customer.Document,
			DocumentType: req.Customer.DocumentType,
		},
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode charge request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/charges/pix", bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build charge request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey.Unmask())

	resp, err := p.base.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, p.handleErrorResponse(resp)
	}

	var charge pixChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&charge); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamPayment,
			"failed to decode charge response from payment provider",
			err,
		)
	}

	p.logger.DebugContext(ctx, "pix charge created",
		"transaction_id", charge.ID,
		"status", charge.Status,
	)

	return &billing.ChargeResult{
		TransactionID: charge.ID,
		PixPayload:    charge.BRCode,
		Status:        charge.Status,
		AmountCents:   charge.AmountCents,
	}, nil
}

// handleErrorResponse maps a provider error body to an AppError carrying
// the raw diagnostic in its details.
func (p *PixClient) handleErrorResponse(resp *http.Response) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if readErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamPayment,
			fmt.Sprintf("payment provider returned %d and the body was unreadable", resp.StatusCode),
			readErr,
		)
	}

	var provErrResp pixErrorResponse
	if jsonErr := json.Unmarshal(body, &provErrResp); jsonErr != nil {
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamPayment,
			fmt.Sprintf("payment provider returned %d", resp.StatusCode),
			nil,
			map[string]any{"raw_body": string(body)},
		)
	}

	return types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamPayment,
		fmt.Sprintf("payment provider rejected the charge: %s", provErrResp.Error.Message),
		nil,
		map[string]any{
			"provider_code":    provErrResp.Error.Code,
			"provider_message": provErrResp.Error.Message,
			"http_status":      resp.StatusCode,
		},
	)
}
