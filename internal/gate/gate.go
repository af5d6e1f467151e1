// Package gate is the safety and normalization pipeline applied to every
// outgoing question before any network call. It is pure and deterministic:
// the same input and policy always produce the same result.
package gate

import (
	"regexp"
	"strings"

	"github.com/davigonia/mr-learning/internal/models"
)

const maxQuestionRunes = 100

type Outcome string

const (
	OutcomePassed          Outcome = "passed"
	OutcomeRejectedTooLong Outcome = "too_long"
	OutcomeRejectedBanned  Outcome = "banned"
)

// Policy is the slice of parental controls the gate reads. The parental
// service owns the full record.
type Policy struct {
	Level       models.FilterLevel
	BannedWords []string
}

// Result reports what the gate decided. Text is the possibly typo-corrected,
// possibly vague-expanded question; for rejections it is empty and Original
// carries what the child actually asked, for the block-log.
type Result struct {
	Outcome  Outcome
	Text     string
	Original string
	Matched  string // banned word that triggered a rejection
}

func (r Result) Passed() bool { return r.Outcome == OutcomePassed }

type Option func(*Gate)

// WithVaguePhrases replaces the vague-question expansion table. The slice
// order is the tie-break: first phrase found in the question wins.
func WithVaguePhrases(phrases []VaguePhrase) Option {
	return func(g *Gate) { g.vague = phrases }
}

// WithTypos replaces the typo-correction dictionary.
func WithTypos(typos map[string]string) Option {
	return func(g *Gate) { g.setTypos(typos) }
}

// WithUnsafeWords replaces the built-in unsafe topic list.
func WithUnsafeWords(words []string) Option {
	return func(g *Gate) { g.unsafe = words }
}

type Gate struct {
	typos     map[string]string
	typoRegex *regexp.Regexp
	vague     []VaguePhrase
	unsafe    []string
}

func New(opts ...Option) *Gate {
	g := &Gate{
		vague:  defaultVaguePhrases,
		unsafe: defaultUnsafeWords,
	}
	g.setTypos(defaultTypos)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) setTypos(typos map[string]string) {
	g.typos = typos
	if len(typos) == 0 {
		g.typoRegex = nil
		return
	}
	alts := make([]string, 0, len(typos))
	for k := range typos {
		alts = append(alts, regexp.QuoteMeta(k))
	}
	g.typoRegex = regexp.MustCompile(`(?i)\b(` + strings.Join(alts, "|") + `)\b`)
}

// Check runs the full pipeline in order: typo correction, vague-question
// expansion, length guard, banned-content check. Rejections short-circuit and
// never reach the network.
func (g *Gate) Check(question string, pol Policy) Result {
	original := question
	text := g.correctTypos(question)
	text = g.expandVague(text)

	if len([]rune(text)) > maxQuestionRunes {
		return Result{Outcome: OutcomeRejectedTooLong, Original: original}
	}

	if word, ok := g.findBanned(text, pol.BannedWords); ok {
		return Result{Outcome: OutcomeRejectedBanned, Original: original, Matched: word}
	}

	return Result{Outcome: OutcomePassed, Text: text, Original: original}
}

// correctTypos substitutes known misspellings on word boundaries, preserving
// punctuation and the rest of the text untouched.
func (g *Gate) correctTypos(text string) string {
	if g.typoRegex == nil {
		return text
	}
	return g.typoRegex.ReplaceAllStringFunc(text, func(m string) string {
		if fixed, ok := g.typos[strings.ToLower(m)]; ok {
			return fixed
		}
		return m
	})
}

// expandVague replaces the whole question with a canonical one when a known
// vague phrase appears. At most one expansion; first phrase in table order
// wins.
func (g *Gate) expandVague(text string) string {
	lower := strings.ToLower(text)
	for _, vp := range g.vague {
		if strings.Contains(lower, strings.ToLower(vp.Phrase)) {
			return vp.Question
		}
	}
	return text
}

// findBanned checks the built-in unsafe list and the parent-defined words,
// case-insensitive substring match so a single list covers both languages.
func (g *Gate) findBanned(text string, parentWords []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, w := range g.unsafe {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return w, true
		}
	}
	for _, w := range parentWords {
		w = strings.TrimSpace(w)
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return w, true
		}
	}
	return "", false
}
