// File: internal/interpreter/response.go
package interpreter

import (
	"regexp"
	"strings"
)

// codeFence matches a reply wrapped in a markdown code block with an
// optional language tag. Backticks are written as \x60.
var codeFence = regexp.MustCompile("(?s)^\x60\x60\x60[a-zA-Z]*\\s*(.*?)\\s*\x60\x60\x60$")

// cleanAnswer strips surrounding whitespace and any markdown wrapping a
// model adds around an otherwise bare answer.
func cleanAnswer(text string) string {
	answer := strings.TrimSpace(text)
	if m := codeFence.FindStringSubmatch(answer); len(m) > 1 {
		answer = m[1]
	}
	// Inline code: `3/4`
	if len(answer) > 1 && strings.HasPrefix(answer, "`") && strings.HasSuffix(answer, "`") {
		answer = strings.Trim(answer, "`")
	}
	return strings.TrimSpace(answer)
}
