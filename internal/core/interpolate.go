package core

import (
	"fmt"
	"strings"

	"github.com/coregx/eloq/internal/grammar"
)

// interpolate renders compiled SQL with bindings substituted as dialect
// literals. Debug/inspection only, never executed. Placeholder tokens are
// counted while skipping quoted spans, so a literal ? (or $n) inside a
// string supplied via a raw clause is never mistaken for a placeholder.
func interpolate(g grammar.Grammar, sqlText string, bindings []interface{}) (string, error) {
	if g.Placeholder(1) != "?" {
		return interpolateNumbered(g, sqlText, bindings)
	}

	i := 0
	out := grammar.ReplacePlaceholders(sqlText, func() string {
		if i >= len(bindings) {
			i++
			return "?"
		}
		lit := g.Literal(bindings[i])
		i++
		return lit
	})
	if i != len(bindings) {
		return "", fmt.Errorf("binding count mismatch: %d placeholders, %d bindings", i, len(bindings))
	}
	return out, nil
}

// interpolateNumbered substitutes $n tokens outside quoted spans for
// numbered-placeholder dialects.
func interpolateNumbered(g grammar.Grammar, sqlText string, bindings []interface{}) (string, error) {
	var b strings.Builder
	b.Grow(len(sqlText))

	var quote byte
	for i := 0; i < len(sqlText); i++ {
		ch := sqlText[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
			b.WriteByte(ch)
		case ch == '\'' || ch == '"':
			quote = ch
			b.WriteByte(ch)
		case ch == '$' && i+1 < len(sqlText) && isDigit(sqlText[i+1]):
			j := i + 1
			for j < len(sqlText) && isDigit(sqlText[j]) {
				j++
			}
			n := 0
			for _, d := range sqlText[i+1 : j] {
				n = n*10 + int(d-'0')
			}
			if n < 1 || n > len(bindings) {
				return "", fmt.Errorf("placeholder $%d out of range for %d bindings", n, len(bindings))
			}
			b.WriteString(g.Literal(bindings[n-1]))
			i = j - 1
		default:
			b.WriteByte(ch)
		}
	}
	return b.String(), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
