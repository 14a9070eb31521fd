package config

import "encoding/json"

const redactedValue = "[REDACTED]"

// SensitiveString holds a secret that must never reach logs or JSON output.
type SensitiveString string

// String redacts the value for fmt and loggers.
func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redactedValue
}

// Value returns the underlying secret.
func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
