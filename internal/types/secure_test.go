package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestSecretString_StringIsRedacted(t *testing.T) {
	s := SecretString("super-secret")
	if got := s.String(); got != "***REDACTED***" {
		t.Errorf("String() = %q", got)
	}
	if got := fmt.Sprintf("%v", s); got != "***REDACTED***" {
		t.Errorf("Sprintf = %q", got)
	}
}

func TestSecretString_MarshalJSONIsRedacted(t *testing.T) {
	payload := struct {
		Key SecretString `json:"key"`
	}{Key: "super-secret"}

	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if strings.Contains(string(out), "super-secret") {
		t.Errorf("secret leaked into JSON: %s", out)
	}
}

func TestSecretString_LogValueIsRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("connecting", "api_key", SecretString("super-secret"))

	if strings.Contains(buf.String(), "super-secret") {
		t.Errorf("secret leaked into log output: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "REDACTED") {
		t.Errorf("log output carries no redaction marker: %s", buf.String())
	}
}

func TestSecretString_UnmaskReturnsRawValue(t *testing.T) {
	s := SecretString("super-secret")
	if got := s.Unmask(); got != "super-secret" {
		t.Errorf("Unmask() = %q", got)
	}
}
