// Package redact scrubs identity material from free-form log lines. Every
// log statement on the gate's request path goes through it so PII never
// leaks into operational logs.
package redact

import (
	"fmt"
	"log"
	"regexp"
)

var (
	emailRe     = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	phoneRe     = regexp.MustCompile(`\b(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	bearerRe    = regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9._\-+/=]+)`)
	apiKeyRe    = regexp.MustCompile(`(?i)(x-api-key|api[_-]?key)\s*[:=]\s*([A-Za-z0-9._\-+/=]+)`)
	secretishRe = regexp.MustCompile(`(?i)((?:secret|token)\s*[:=]\s*)(\S{6,})`)
)

// String redacts known identity patterns from a log line.
func String(s string) string {
	if s == "" {
		return s
	}
	out := s
	out = emailRe.ReplaceAllString(out, "[REDACTED_EMAIL]")
	out = phoneRe.ReplaceAllString(out, "[REDACTED_PHONE]")
	out = bearerRe.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyRe.ReplaceAllString(out, "${1}=[REDACTED]")
	out = secretishRe.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}

// Sprintf formats like fmt.Sprintf and redacts the result.
func Sprintf(format string, args ...any) string {
	return String(fmt.Sprintf(format, args...))
}

// Logf prints a redacted log line.
func Logf(format string, args ...any) {
	log.Print(Sprintf(format, args...))
}
