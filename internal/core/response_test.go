package core

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"agendly/internal/types"
)

func TestJSON_WritesStatusAndBody(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	JSON(rr, req, http.StatusCreated, map[string]string{"hello": "world"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q", got)
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["hello"] != "world" {
		t.Errorf("body = %+v", body)
	}
}

func TestError_AppErrorDeterminesStatusAndCode(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req-123"))

	Error(rr, req, types.NewAppError(types.ErrCodeNotFoundSubscription, "no subscription", nil))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}

	var resp APIErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Error.Code != string(types.ErrCodeNotFoundSubscription) {
		t.Errorf("code = %q", resp.Error.Code)
	}
	if resp.Error.RequestID != "req-123" {
		t.Errorf("request_id = %q, want req-123", resp.Error.RequestID)
	}
}

func TestError_WrappedAppErrorIsUnwrapped(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	inner := types.NewAppError(types.ErrCodeValidationInvalidPlan, "bad plan", nil)
	Error(rr, req, errors.Join(errors.New("outer"), inner))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestError_GenericErrorIs500WithoutLeakingDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Error(rr, req, errors.New("pq: syntax error near SELECT"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "SELECT") {
		t.Error("internal error details leaked to the client")
	}
}

func TestDecodeJSON_Success(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name": "x"}`))
	rr := httptest.NewRecorder()

	var dst struct {
		Name string `json:"name"`
	}
	if err := DecodeJSON(rr, req, &dst); err != nil {
		t.Fatalf("DecodeJSON error: %v", err)
	}
	if dst.Name != "x" {
		t.Errorf("name = %q", dst.Name)
	}
}

func TestDecodeJSON_UnknownFieldRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name": "x", "extra": 1}`))
	rr := httptest.NewRecorder()

	var dst struct {
		Name string `json:"name"`
	}
	err := DecodeJSON(rr, req, &dst)

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeValidationInvalidJSON {
		t.Fatalf("error = %v, want invalid JSON AppError", err)
	}
}

func TestDecodeJSON_TrailingValueRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name": "x"}{"name": "y"}`))
	rr := httptest.NewRecorder()

	var dst struct {
		Name string `json:"name"`
	}
	if err := DecodeJSON(rr, req, &dst); err == nil {
		t.Fatal("expected error for a second JSON value")
	}
}

func TestDecodeJSON_MalformedSyntax(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{broken`))
	rr := httptest.NewRecorder()

	var dst struct{}
	err := DecodeJSON(rr, req, &dst)

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeValidationInvalidJSON {
		t.Fatalf("error = %v, want invalid JSON AppError", err)
	}
}
