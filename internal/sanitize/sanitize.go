// Package sanitize scrubs untrusted request payloads before they reach
// business logic. It only removes the cheapest markup-injection vector
// (angle brackets); context-aware escaping belongs to whatever renders the
// data, not here.
package sanitize

import "strings"

// Clean recursively sanitizes a decoded JSON value. Strings are trimmed and
// stripped of '<' and '>'; arrays and objects are walked in place shape-wise
// (order and keys preserved); all other values pass through unchanged.
func Clean(v any) any {
	switch t := v.(type) {
	case string:
		return String(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clean(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Clean(e)
		}
		return out
	default:
		return v
	}
}

// String trims surrounding whitespace and strips angle brackets.
func String(s string) string {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '<' || r == '>' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
