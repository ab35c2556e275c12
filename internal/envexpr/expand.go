// Package envexpr substitutes ${env.NAME} references in configuration text.
package envexpr

import (
	"os"
	"strings"
	"unicode"
)

const prefix = "${env."

// Lookup resolves a variable name; os.LookupEnv satisfies it.
type Lookup func(name string) (string, bool)

// Expand replaces every ${env.NAME} in text with the value of NAME, or an
// empty string when NAME is unset. An unterminated reference is kept as is;
// a reference whose name is not made of letters, digits or '_' keeps its
// prefix and scanning resumes right after it.
func Expand(text string) string {
	return ExpandWith(text, os.LookupEnv)
}

// ExpandWith is Expand with a custom variable source.
func ExpandWith(text string, lookup Lookup) string {
	if !strings.Contains(text, prefix) {
		return text
	}
	var out strings.Builder
	out.Grow(len(text))
	for {
		start := strings.Index(text, prefix)
		if start < 0 {
			out.WriteString(text)
			return out.String()
		}
		out.WriteString(text[:start])
		rest := text[start+len(prefix):]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			out.WriteString(text[start:])
			return out.String()
		}
		name := rest[:end]
		if !isName(name) {
			out.WriteString(prefix)
			text = rest
			continue
		}
		if value, ok := lookup(name); ok {
			out.WriteString(value)
		}
		text = rest[end+1:]
	}
}

func isName(name string) bool {
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
