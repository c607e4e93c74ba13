package core

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"agendly/internal/types"
)

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = types.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if seen == "" {
		t.Fatal("no request ID in context")
	}
	if got := rr.Header().Get("X-Request-Id"); got != seen {
		t.Errorf("response header %q != context ID %q", got, seen)
	}
}

func TestRequestID_PropagatesInbound(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = types.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "upstream-42")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if seen != "upstream-42" {
		t.Errorf("context ID = %q, want upstream-42", seen)
	}
}

func TestRecoverer_ConvertsPanicTo500(t *testing.T) {
	srv := newAuthTestServer(t)
	handler := srv.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if body := rr.Body.String(); body == "" {
		t.Error("expected a structured error body")
	}
}

func TestRecoverer_PassThrough(t *testing.T) {
	srv := newAuthTestServer(t)
	handler := srv.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want 418", rr.Code)
	}
}

func TestResponseCapture_DefaultsTo200OnWrite(t *testing.T) {
	rr := httptest.NewRecorder()
	rc := &responseCapture{ResponseWriter: rr, statusCode: http.StatusOK}

	rc.Write([]byte("hello"))
	if rc.statusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", rc.statusCode)
	}
}

func TestResponseCapture_FirstWriteHeaderWins(t *testing.T) {
	rr := httptest.NewRecorder()
	rc := &responseCapture{ResponseWriter: rr, statusCode: http.StatusOK}

	rc.WriteHeader(http.StatusConflict)
	rc.WriteHeader(http.StatusOK)
	if rc.statusCode != http.StatusConflict {
		t.Errorf("status = %d, want 409", rc.statusCode)
	}
}
