package logging

import (
	"regexp"
	"strings"
)

// Sensitive field names that should be redacted.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"api_key",
	"apikey",
	"authorization",
	"auth",
	"credential",
}

// Patterns for secrets that should be redacted.
var secretPatterns = []*regexp.Regexp{
	// Bearer tokens sent to the marketplace API
	regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9._-]{20,})`),

	// Generic long tokens assigned to key-like fields
	regexp.MustCompile(`(?i)(key|token|secret|password|auth)[=:]["']?([a-zA-Z0-9+/=_-]{32,})["']?`),
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Redact replaces sensitive information in a string.
func Redact(s string) string {
	result := s
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// RedactMap redacts sensitive fields in a map.
func RedactMap(m map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(m))
	for k, v := range m {
		if isSensitiveField(k) {
			result[k] = RedactedValue
			continue
		}
		if s, ok := v.(string); ok {
			result[k] = Redact(s)
			continue
		}
		result[k] = v
	}
	return result
}

func isSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lower, field) {
			return true
		}
	}
	return false
}
