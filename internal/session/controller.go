// Package session orchestrates one child-facing Q&A session: it runs every
// question through the content gate, calls the answer service, records
// history and blocked questions, and hands answers to the speech output
// controller.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/davigonia/mr-learning/internal/gate"
	"github.com/davigonia/mr-learning/internal/models"
	"github.com/davigonia/mr-learning/internal/providers/answer"
	"github.com/davigonia/mr-learning/internal/speech/capture"
	"github.com/davigonia/mr-learning/internal/speech/output"
	"github.com/davigonia/mr-learning/internal/voices"
)

const (
	defaultAskTimeout = 30 * time.Second
	recordTimeout     = 5 * time.Second
	policyTimeout     = 3 * time.Second
	blockedRetention  = 30 * 24 * time.Hour
)

// Speaker is the slice of the output controller the session drives.
type Speaker interface {
	Speak(text string)
	Cancel()
	Speaking() bool
}

// PolicySource resolves the household's current parental controls.
type PolicySource interface {
	Policy(ctx context.Context, householdID string) (*models.FilterPolicy, error)
}

type HistoryRecorder interface {
	Append(ctx context.Context, entry *models.HistoryEntry) error
}

type BlockRecorder interface {
	Record(ctx context.Context, blocked *models.BlockedQuestion) error
}

// Event is everything the session surfaces to the client: answers, child-facing
// notices (rejections, service failures), and the loading flag.
type Events struct {
	OnAnswer  func(models.Answer)
	OnNotice  func(text string)
	OnLoading func(bool)
}

type Controller struct {
	mu sync.Mutex

	householdID string
	sessionID   string
	lang        models.Language
	muted       bool
	loading     bool
	gen         uint64

	asked   int
	blocked int

	gate     *gate.Gate
	provider answer.Provider
	speaker  Speaker
	policies PolicySource
	history  HistoryRecorder
	blocks   BlockRecorder
	log      *logrus.Logger
	events   Events

	askTimeout time.Duration
}

// Config wires a session controller. Gate, Provider and Speaker are required;
// History, Blocks and Policies may be nil for sessions without persistence.
type Config struct {
	HouseholdID string
	SessionID   string
	Language    models.Language

	Gate     *gate.Gate
	Provider answer.Provider
	Speaker  Speaker
	Policies PolicySource
	History  HistoryRecorder
	Blocks   BlockRecorder
	Log      *logrus.Logger
	Events   Events

	AskTimeout time.Duration
}

func NewController(cfg Config) *Controller {
	if cfg.Log == nil {
		cfg.Log = logrus.New()
	}
	if cfg.AskTimeout <= 0 {
		cfg.AskTimeout = defaultAskTimeout
	}
	if cfg.Language == "" {
		cfg.Language = models.LanguageEnglish
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.New().String()
	}
	return &Controller{
		householdID: cfg.HouseholdID,
		sessionID:   cfg.SessionID,
		lang:        cfg.Language,
		gate:        cfg.Gate,
		provider:    cfg.Provider,
		speaker:     cfg.Speaker,
		policies:    cfg.Policies,
		history:     cfg.History,
		blocks:      cfg.Blocks,
		log:         cfg.Log,
		events:      cfg.Events,
		askTimeout:  cfg.AskTimeout,
	}
}

func (c *Controller) SessionID() string { return c.sessionID }

func (c *Controller) Language() models.Language {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lang
}

func (c *Controller) SetLanguage(lang models.Language) {
	if lang != models.LanguageEnglish && lang != models.LanguageCantonese {
		return
	}
	c.mu.Lock()
	c.lang = lang
	c.mu.Unlock()
}

func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// SetMuted silences further answers; muting mid-answer also stops the one
// currently playing.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()

	if muted && c.speaker.Speaking() {
		c.speaker.Cancel()
	}
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Stats reports how many questions were answered and blocked this session.
func (c *Controller) Stats() (asked, blocked int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asked, c.blocked
}

// Submit runs one question through the pipeline. A new submission supersedes
// any in-flight one: the stale answer is dropped when it arrives. Blank input
// is ignored.
func (c *Controller) Submit(question string) {
	question = strings.TrimSpace(question)
	if question == "" {
		return
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	lang := c.lang
	household := c.householdID
	c.mu.Unlock()

	c.speaker.Cancel()

	pol := c.policyFor(household)
	res := c.gate.Check(question, gate.Policy{Level: pol.Level, BannedWords: pol.Words()})
	if !res.Passed() {
		c.rejected(res, lang, household)
		return
	}

	c.setLoading(true)
	go c.ask(gen, res.Text, lang, pol)
}

func (c *Controller) ask(gen uint64, question string, lang models.Language, pol *models.FilterPolicy) {
	const op = "session.Controller.ask"

	ctx, cancel := context.WithTimeout(context.Background(), c.askTimeout)
	defer cancel()

	text, err := c.provider.Ask(ctx, answer.Request{
		Question:         question,
		Language:         lang,
		ContentFiltering: pol.Level,
		TimeLimit:        pol.TimeLimitMinutes,
		BannedWords:      pol.Words(),
	})

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.loading = false
	if err == nil {
		c.asked++
	}
	muted := c.muted
	c.mu.Unlock()

	c.notifyLoading(false)

	if err != nil {
		kind := answer.Classify(err)
		c.log.WithFields(logrus.Fields{"op": op, "kind": kind, "error": err.Error()}).Warn("answer service failed")
		c.deliver(ServiceErrorMessage(kind, lang), muted)
		return
	}

	c.appendHistory(question, text, lang)
	c.deliver(text, muted)
}

// deliver surfaces text to the client and, unless muted, speaks it. The
// answer's language is read off its script, not assumed from the UI, so a
// Chinese answer to an English-mode question still gets the right voice.
func (c *Controller) deliver(text string, muted bool) {
	alang := models.LanguageEnglish
	if output.DetectFamily(text) == voices.FamilyCantonese {
		alang = models.LanguageCantonese
	}

	if c.events.OnAnswer != nil {
		c.events.OnAnswer(models.Answer{Text: text, Language: alang})
	}
	if !muted {
		c.speaker.Speak(text)
	}
}

func (c *Controller) rejected(res gate.Result, lang models.Language, household string) {
	const op = "session.Controller.rejected"

	c.mu.Lock()
	c.blocked++
	muted := c.muted
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"op":      op,
		"reason":  res.Outcome,
		"matched": res.Matched,
	}).Info("question blocked")

	if c.blocks != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			defer cancel()
			now := time.Now().UTC()
			err := c.blocks.Record(ctx, &models.BlockedQuestion{
				HouseholdID: household,
				SessionID:   c.sessionID,
				Question:    res.Original,
				Language:    lang,
				Reason:      string(res.Outcome),
				Matched:     res.Matched,
				BlockedAt:   now,
				ExpiresAt:   now.Add(blockedRetention),
			})
			if err != nil {
				c.log.WithFields(logrus.Fields{"op": op, "error": err.Error()}).Warn("block log write failed")
			}
		}()
	}

	notice := GateNotice(res.Outcome, lang)
	if c.events.OnNotice != nil {
		c.events.OnNotice(notice)
	}
	if !muted {
		c.speaker.Speak(notice)
	}
}

func (c *Controller) appendHistory(question, text string, lang models.Language) {
	const op = "session.Controller.appendHistory"
	if c.history == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		err := c.history.Append(ctx, &models.HistoryEntry{
			ID:          uuid.New().String(),
			HouseholdID: c.householdID,
			Question:    question,
			Answer:      text,
			Language:    lang,
			AskedAt:     time.Now().UTC(),
		})
		if err != nil {
			c.log.WithFields(logrus.Fields{"op": op, "error": err.Error()}).Warn("history write failed")
		}
	}()
}

// HandleCaptureError localizes a capture failure for the client. User aborts
// are intentional and produce nothing.
func (c *Controller) HandleCaptureError(class capture.ErrorClass) {
	msg := CaptureErrorMessage(class, c.Language())
	if msg == "" {
		return
	}
	if c.events.OnNotice != nil {
		c.events.OnNotice(msg)
	}
}

// policyFor fetches the household policy, degrading to moderate defaults when
// the store is unreachable so a child is never blocked by infrastructure.
func (c *Controller) policyFor(household string) *models.FilterPolicy {
	const op = "session.Controller.policyFor"

	fallback := &models.FilterPolicy{Level: models.FilterModerate}
	if c.policies == nil || household == "" {
		return fallback
	}

	ctx, cancel := context.WithTimeout(context.Background(), policyTimeout)
	defer cancel()

	pol, err := c.policies.Policy(ctx, household)
	if err != nil || pol == nil {
		if err != nil {
			c.log.WithFields(logrus.Fields{"op": op, "error": err.Error()}).Warn("policy fetch failed, using defaults")
		}
		return fallback
	}
	return pol
}

func (c *Controller) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
	c.notifyLoading(v)
}

func (c *Controller) notifyLoading(v bool) {
	if c.events.OnLoading != nil {
		c.events.OnLoading(v)
	}
}
