package core

import (
	"regexp"
	"strings"
)

var (
	// Scheme-based URIs with credentials (e.g., redis://:pass@host:6379/0)
	connectionRe = regexp.MustCompile(
		`(?i)((redis|rediss|s3|amqp|amqps|https?)://)[^@\s/]+@`,
	)
	awsKeyRe   = regexp.MustCompile(`\b(AKIA[A-Z0-9]{16})\b`)
	kvSecretRe = regexp.MustCompile(
		`(?i)(password|secret|token|access_key|secret_key)\s*[:=]\s*["']?[^"'\s]+["']?`,
	)
)

// RedactString trims, truncates, and scrubs credentials out of error text.
func RedactString(s string) string {
	const maxLen = 512
	s = strings.TrimSpace(s)
	s = connectionRe.ReplaceAllString(s, "$1[REDACTED]@")
	s = awsKeyRe.ReplaceAllString(s, "[AWS_KEY_REDACTED]")
	s = kvSecretRe.ReplaceAllString(s, "$1=[REDACTED]")
	if len(s) > maxLen {
		s = s[:maxLen] + "…"
	}
	return s
}

// RedactError applies RedactString to an error, returning an empty string when nil.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return RedactString(err.Error())
}
