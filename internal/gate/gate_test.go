package gate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davigonia/mr-learning/internal/models"
)

func TestCheck_TypoCorrection(t *testing.T) {
	g := New()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "wut color is the sky", "what color is the sky"},
		{"uppercase", "WUT is rain?", "what is rain?"},
		{"keeps punctuation", "wut? wut!", "what? what!"},
		{"inside word untouched", "kilowatt hours", "kilowatt hours"},
		{"multiple words", "wut is becuz", "what is because"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := g.Check(tt.in, Policy{Level: models.FilterModerate})
			require.True(t, res.Passed())
			assert.Equal(t, tt.want, res.Text)
		})
	}
}

func TestCheck_VagueExpansion(t *testing.T) {
	g := New(WithVaguePhrases([]VaguePhrase{
		{"bored", "Can you tell me a fun fact?"},
		{"something", "Tell me something interesting."},
	}))

	res := g.Check("I'm bored and want something", Policy{})
	require.True(t, res.Passed())
	// first phrase in table order wins even when both are present
	assert.Equal(t, "Can you tell me a fun fact?", res.Text)

	res = g.Check("what is thunder", Policy{})
	assert.Equal(t, "what is thunder", res.Text)
}

func TestCheck_LengthGuard(t *testing.T) {
	g := New()

	res := g.Check(strings.Repeat("a", 101), Policy{})
	assert.Equal(t, OutcomeRejectedTooLong, res.Outcome)
	assert.Empty(t, res.Text)

	res = g.Check(strings.Repeat("a", 100), Policy{})
	assert.True(t, res.Passed())

	// rune count, not byte count
	res = g.Check(strings.Repeat("天", 100), Policy{})
	assert.True(t, res.Passed())
}

func TestCheck_BannedWords(t *testing.T) {
	g := New()

	tests := []struct {
		name    string
		in      string
		banned  []string
		blocked bool
		matched string
	}{
		{"parent word exact", "I hate you", []string{"hate"}, true, "hate"},
		{"parent word case-insensitive", "I HATE you", []string{"hate"}, true, "hate"},
		{"substring match", "whatever", []string{"hate"}, true, "hate"},
		{"builtin unsafe", "where can I buy a gun", nil, true, "gun"},
		{"builtin unsafe chinese", "邊度有槍賣", nil, true, "槍"},
		{"clean question", "why is the sky blue", []string{"hate"}, false, ""},
		{"blank parent word ignored", "why is the sky blue", []string{"  "}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := g.Check(tt.in, Policy{BannedWords: tt.banned})
			if tt.blocked {
				assert.Equal(t, OutcomeRejectedBanned, res.Outcome)
				assert.Equal(t, tt.matched, res.Matched)
				assert.Equal(t, tt.in, res.Original)
			} else {
				assert.True(t, res.Passed())
			}
		})
	}
}

func TestCheck_OrderOfStages(t *testing.T) {
	// expansion runs on corrected text, and the banned check runs on the
	// expanded question, not the original
	g := New(WithVaguePhrases([]VaguePhrase{{"bored", "Tell me about dragons"}}))

	res := g.Check("i'm bored", Policy{BannedWords: []string{"dragons"}})
	assert.Equal(t, OutcomeRejectedBanned, res.Outcome)
	assert.Equal(t, "i'm bored", res.Original)
}

func TestCheck_Deterministic(t *testing.T) {
	g := New()
	pol := Policy{Level: models.FilterStrict, BannedWords: []string{"zap"}}

	first := g.Check("wut is lightning", pol)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, g.Check("wut is lightning", pol))
	}
}
