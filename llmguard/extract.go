// Package llmguard turns untrusted model text into validated domain values.
// Everything here is pure: no I/O, no retries, no shared state.
package llmguard

import (
	"regexp"
	"strings"
)

const fence = "```"

// opening fence with an optional language tag and the rest of its line
var openingFence = regexp.MustCompile("^```[\\w+.-]*[ \\t]*\\r?\\n?")

// Extract strips a markdown code fence wrapped around a model response.
// It never searches for JSON inside prose; text without a leading or
// trailing fence is only trimmed.
func Extract(raw string) string {
	out := strings.TrimSpace(raw)
	for {
		next := stripFencePass(out)
		if next == out {
			return out
		}
		out = next
	}
}

func stripFencePass(s string) string {
	s = strings.TrimSpace(s)
	if loc := openingFence.FindStringIndex(s); loc != nil {
		s = s[loc[1]:]
	}
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}
