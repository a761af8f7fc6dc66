package logger

import (
	"log/slog"
	"strings"
)

// Keys whose string values must never reach the log output: session
// tokens, integrity tokens, peer challenge secrets, raw Authorization
// headers, and password material.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"challenge",
	"authorization",
	"credential",
}

const redactedValue = "***REDACTED***"

// redactSensitive replaces the values of credential-bearing
// attributes, recursing into groups.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		if IsSensitiveKey(a.Key) && a.Value.String() != "" {
			return slog.String(a.Key, redactedValue)
		}
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// IsSensitiveKey checks if a key name suggests credential content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// MaskValue keeps the first and last three characters of a value for
// correlation in logs without exposing the full credential.
func MaskValue(value string) string {
	if len(value) <= 8 {
		return "***"
	}
	return value[:3] + "..." + value[len(value)-3:]
}
