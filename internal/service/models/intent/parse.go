package intent

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	codeFenceRe = regexp.MustCompile("(?s)^```(?:[a-zA-Z0-9_-]+)?\\s*(.*?)\\s*```$")
	jsonBlockRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseResult turns the raw text of a language-model reply into a Result.
// Models wrap their JSON in code fences, prepend chatter or trail garbage, so
// parsing is best-effort with a terminal fallback: when nothing parses, the
// raw text becomes the customer-facing response with intent "otro" and low
// confidence. ParseResult never fails.
func ParseResult(raw string) *Result {
	cleaned := stripCodeFences(raw)

	if r := tryUnmarshal(cleaned); r != nil {
		return r
	}

	// Cut anything after the last closing brace and retry.
	if idx := strings.LastIndex(cleaned, "}"); idx >= 0 {
		if r := tryUnmarshal(cleaned[:idx+1]); r != nil {
			return r
		}
	}

	// Last attempt: the first brace-delimited block anywhere in the text.
	if block := jsonBlockRe.FindString(cleaned); block != "" {
		if r := tryUnmarshal(block); r != nil {
			return r
		}
	}

	return &Result{
		Intent:     IntentOther,
		Confidence: 0.5,
		Response:   cleaned,
	}
}

func tryUnmarshal(s string) *Result {
	var r Result
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return nil
	}
	if r.Intent == "" {
		r.Intent = IntentOther
	}

	return &r
}

func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if m := codeFenceRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}

	return trimmed
}
