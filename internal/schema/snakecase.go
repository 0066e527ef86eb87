package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// SnakeCase converts a label to a stable snake_case identifier: lowercase
// letters and digits kept, every other run collapsed to a single underscore.
// The transformation is part of the public contract; printable templates and
// submission payload keys depend on it.
func SnakeCase(label string) string {
	var b strings.Builder
	lastUnderscore := true // suppress a leading underscore
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	name := strings.Trim(b.String(), "_")
	if name == "" {
		return "field"
	}
	return name
}

// uniqueName disambiguates a base name against the used set by appending a
// numeric suffix, and records the result.
func uniqueName(base string, used map[string]bool) string {
	name := base
	for i := 2; used[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	used[name] = true
	return name
}
