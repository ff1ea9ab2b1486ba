package llm

import (
	"regexp"
	"strings"
)

var (
	reThink      = regexp.MustCompile(`(?is)<think>.*?</think>`)
	reFenceStart = regexp.MustCompile("(?is)^\\s*```[a-z]*\\s*")
	reFenceEnd   = regexp.MustCompile("(?is)\\s*```\\s*$")
)

// CleanResponse quita BOM, bloques <think> de modelos de razonamiento y fences ``` ... ```.
func CleanResponse(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "\uFEFF")
	s = reThink.ReplaceAllString(s, "")
	s = reFenceStart.ReplaceAllString(s, "")
	s = reFenceEnd.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
