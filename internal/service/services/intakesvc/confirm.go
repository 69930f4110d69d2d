package intakesvc

import "strings"

// decision is the outcome of classifying a customer reply to a pending
// order summary.
type decision int

const (
	decisionUnclear decision = iota
	decisionAffirmative
	decisionNegative
)

// Keyword matching is deliberately dumb: while a confirmation is pending
// the customer's reply is never sent to the extractor, so the agreed
// summary cannot be reinterpreted.
var (
	affirmativeKeywords = []string{
		"si", "sí", "claro", "confirmo", "ok", "vale", "de acuerdo", "dale", "listo",
	}
	negativeKeywords = []string{
		"no", "cancela", "cancelar", "mejor no", "ya no",
	}
)

var diacriticReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u", "Ü", "u",
)

func normalizeReply(text string) string {
	return diacriticReplacer.Replace(strings.ToLower(strings.TrimSpace(text)))
}

// classifyReply decides whether a reply confirms or rejects the pending
// order. Negative phrases win over affirmative ones so "mejor no" is never
// read as a confirmation.
func classifyReply(text string) decision {
	normalized := normalizeReply(text)
	if normalized == "" {
		return decisionUnclear
	}

	for _, kw := range negativeKeywords {
		if matchesKeyword(normalized, normalizeReply(kw)) {
			return decisionNegative
		}
	}
	for _, kw := range affirmativeKeywords {
		if matchesKeyword(normalized, normalizeReply(kw)) {
			return decisionAffirmative
		}
	}

	return decisionUnclear
}

// matchesKeyword requires the keyword as the whole reply or as a leading
// word, so "silla" does not confirm and "si, gracias" does.
func matchesKeyword(normalized, keyword string) bool {
	if normalized == keyword {
		return true
	}
	for _, sep := range []string{" ", ",", ".", "!"} {
		if strings.HasPrefix(normalized, keyword+sep) {
			return true
		}
	}

	return false
}
