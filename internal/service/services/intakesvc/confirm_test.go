package intakesvc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyReply(t *testing.T) {
	cases := []struct {
		text string
		want decision
	}{
		{"si", decisionAffirmative},
		{"Sí", decisionAffirmative},
		{"  SI  ", decisionAffirmative},
		{"si, gracias", decisionAffirmative},
		{"claro", decisionAffirmative},
		{"confirmo", decisionAffirmative},
		{"ok", decisionAffirmative},
		{"vale", decisionAffirmative},
		{"de acuerdo", decisionAffirmative},
		{"dale", decisionAffirmative},
		{"listo", decisionAffirmative},

		{"no", decisionNegative},
		{"No", decisionNegative},
		{"cancela", decisionNegative},
		{"cancelar", decisionNegative},
		{"mejor no", decisionNegative},
		{"ya no", decisionNegative},
		{"no, espera", decisionNegative},

		{"", decisionUnclear},
		{"mmm dejame pensarlo", decisionUnclear},
		{"cuanto cuesta el envio?", decisionUnclear},
		{"silla", decisionUnclear},
		{"okey dokey artichokey nope", decisionUnclear},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyReply(tc.text))
		})
	}
}

func TestNegativeWinsOverAffirmative(t *testing.T) {
	// "mejor no" starts with nothing affirmative, but guard the ordering
	// anyway for replies carrying both kinds of signal.
	assert.Equal(t, decisionNegative, classifyReply("no, mejor si no"))
}

func TestNormalizeReplyStripsDiacritics(t *testing.T) {
	assert.Equal(t, "si", normalizeReply("  Sí "))
	assert.Equal(t, "asi es", normalizeReply("Así es"))
}
