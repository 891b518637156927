package analysis

import "strings"

// stripFence removes a markdown code fence wrapping a reply: a leading
// ```json or bare ``` and the matching trailing ```. Unwrapped text comes
// back untouched apart from whitespace trimming.
func stripFence(s string) string {
	s = strings.TrimSpace(s)

	inner, ok := strings.CutPrefix(s, "```json")
	if !ok {
		inner, ok = strings.CutPrefix(s, "```")
	}
	if !ok {
		return s
	}

	inner = strings.TrimSuffix(strings.TrimSpace(inner), "```")
	return strings.TrimSpace(inner)
}
