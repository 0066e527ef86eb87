package gateway

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// InvalidModelJSONError is returned only after direct parsing, balanced
// object extraction, and newline repair have all failed.
type InvalidModelJSONError struct {
	Detail string
}

func (e *InvalidModelJSONError) Error() string {
	return fmt.Sprintf("model returned unparseable JSON: %s", e.Detail)
}

// ParseModelJSON decodes model output that is supposed to be a JSON object
// but may be wrapped in prose or carry raw newlines inside string literals.
// Three tiers: direct parse, first balanced object extraction, then a repair
// pass escaping literal newlines inside strings.
func ParseModelJSON(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)

	if obj, err := tryParse(trimmed); err == nil {
		return obj, nil
	}

	if candidate, ok := extractBalancedObject(trimmed); ok {
		if obj, err := tryParse(candidate); err == nil {
			return obj, nil
		}
		if obj, err := tryParse(repairStringNewlines(candidate)); err == nil {
			return obj, nil
		}
	}

	if obj, err := tryParse(repairStringNewlines(trimmed)); err == nil {
		return obj, nil
	}

	return nil, &InvalidModelJSONError{Detail: truncate(trimmed, 200)}
}

func tryParse(s string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// extractBalancedObject scans for the first balanced {...} object, tracking
// string state so braces inside string literals do not count.
func extractBalancedObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}

// repairStringNewlines replaces literal newlines and carriage returns inside
// string literals with their escaped forms.
func repairStringNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
				b.WriteByte(c)
			case c == '\\':
				escaped = true
				b.WriteByte(c)
			case c == '"':
				inString = false
				b.WriteByte(c)
			case c == '\n':
				b.WriteString(`\n`)
			case c == '\r':
				b.WriteString(`\r`)
			default:
				b.WriteByte(c)
			}
			continue
		}

		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}

	return b.String()
}

// DecodeEncoded reads a field that the prompts instruct the model to emit
// base64-encoded so the enclosing JSON stays safe regardless of embedded
// newlines and quotes. The plaintext variant is the fallback; the
// instruction is not honored uniformly.
func DecodeEncoded(obj map[string]any, keyB64, keyPlain string) string {
	if raw, ok := obj[keyB64].(string); ok && raw != "" {
		if decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw)); err == nil {
			return string(decoded)
		}
	}
	if plain, ok := obj[keyPlain].(string); ok {
		return plain
	}
	return ""
}
