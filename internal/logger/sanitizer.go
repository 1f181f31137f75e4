package logger

import (
	"fmt"
	"regexp"
	"strings"
)

// defaultSensitiveFields are the column-name fragments that trigger binding
// masking when they appear in a logged statement.
var defaultSensitiveFields = []string{
	"password", "passwd", "pwd",
	"token", "api_key", "apikey", "api_token",
	"secret", "auth", "authorization",
	"credit_card", "card_number", "cvv", "cvc",
	"ssn", "social_security",
	"private_key", "priv_key",
}

// Sanitizer masks bindings before they reach a log sink. Detection is
// coarse: if the statement mentions any sensitive column name, every
// binding of that statement is masked rather than guessing positions.
type Sanitizer struct {
	patterns  []*regexp.Regexp
	maskValue string
}

// NewSanitizer creates a sanitizer matching the given field names, or a
// default set of common sensitive names if none are provided.
func NewSanitizer(sensitiveFields []string) *Sanitizer {
	if len(sensitiveFields) == 0 {
		sensitiveFields = defaultSensitiveFields
	}

	patterns := make([]*regexp.Regexp, 0, len(sensitiveFields))
	for _, field := range sensitiveFields {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(field)+`\b`))
	}

	return &Sanitizer{
		patterns:  patterns,
		maskValue: "***REDACTED***",
	}
}

// MaskParams returns the bindings with sensitive values replaced by the
// mask value. The original slice is not modified.
func (s *Sanitizer) MaskParams(sql string, params []interface{}) []interface{} {
	if len(params) == 0 || !s.sensitive(sql) {
		return params
	}

	masked := make([]interface{}, len(params))
	for i := range params {
		masked[i] = s.maskValue
	}
	return masked
}

func (s *Sanitizer) sensitive(sql string) bool {
	for _, pattern := range s.patterns {
		if pattern.MatchString(sql) {
			return true
		}
	}
	return false
}

// FormatParams converts bindings to a safe string representation for
// logging. Mask sensitive values with MaskParams before calling this.
func (s *Sanitizer) FormatParams(params []interface{}) string {
	if len(params) == 0 {
		return "[]"
	}

	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = formatValue(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatValue truncates very long values to keep log lines bounded.
func formatValue(v interface{}) string {
	if v == nil {
		return "NULL"
	}

	str := fmt.Sprintf("%v", v)
	const maxLen = 100
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}
