package types

import "log/slog"

const redactedPlaceholder = "***REDACTED***"

// SecretString is a string type that prevents accidental logging or
// serialization of sensitive values (provider API keys, signing secrets,
// database URLs). String, MarshalJSON, and LogValue all return a redacted
// placeholder; Unmask returns the raw value where it is genuinely needed.
type SecretString string

// String returns a redacted placeholder instead of the raw value.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redactedPlaceholder + `"`), nil
}

// LogValue implements slog.LogValuer so secrets passed as log attributes are
// redacted even when logged by value.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redactedPlaceholder)
}

// Unmask returns the raw plaintext value of the secret. Limit usage to the
// points where the value leaves the process (HTTP headers, pool config).
func (s SecretString) Unmask() string {
	return string(s)
}
