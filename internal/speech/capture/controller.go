// Package capture owns the listening state machine that turns platform
// speech-recognition events into exactly one submitted question per completed
// capture, tuned for children's slower speech cadence.
package capture

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/davigonia/mr-learning/internal/models"
)

type State string

const (
	StateIdle          State = "idle"
	StateListening     State = "listening"
	StateAwaitingPause State = "awaiting_pause"
	StateSubmitted     State = "submitted"
	StateErrored       State = "errored"
)

// ErrorClass classifies platform capture failures. UserAborted is silent;
// everything else surfaces a localized message.
type ErrorClass string

const (
	ErrNoSpeech         ErrorClass = "no-speech"
	ErrDeviceUnavail    ErrorClass = "audio-capture"
	ErrPermissionDenied ErrorClass = "not-allowed"
	ErrNetwork          ErrorClass = "network"
	ErrUserAborted      ErrorClass = "aborted"
)

// ClassifyError maps a platform error code onto the taxonomy, defaulting
// unknown codes to a device problem.
func ClassifyError(code string) ErrorClass {
	switch code {
	case "no-speech":
		return ErrNoSpeech
	case "audio-capture", "service-not-allowed":
		return ErrDeviceUnavail
	case "not-allowed", "permission-denied":
		return ErrPermissionDenied
	case "network":
		return ErrNetwork
	case "aborted":
		return ErrUserAborted
	}
	return ErrDeviceUnavail
}

const (
	// wait after a final transcript before treating the question as complete,
	// so a child can keep talking or self-correct
	defaultDebounce = 1800 * time.Millisecond

	// extra delay after the platform's end event before the listening
	// indicator clears; cumulative with the debounce, not an alternative
	defaultGrace = time.Second
)

// Recognizer is the platform speech-capture capability: continuous=false,
// interim results off, language settable per start. Results and errors come
// back through the controller's Handle* methods. Implementations must not
// call back into the controller from Start or Stop.
type Recognizer interface {
	Start(locale string) error
	Stop()
}

// Controller is the capture state machine. All event handlers are safe for
// concurrent use; stale timer callbacks are discarded via a per-session
// generation counter.
type Controller struct {
	mu    sync.Mutex
	rec   Recognizer
	clock Clock
	log   *logrus.Logger

	debounce time.Duration
	grace    time.Duration

	state      State
	lang       models.Language
	transcript strings.Builder
	errClass   ErrorClass
	indicator  bool // "listening" light; cleared on a grace delay after end

	gen           uint64
	debounceTimer Timer
	graceTimer    Timer

	onSubmit func(models.Question)
	onChange func(Snapshot)
}

// Snapshot is the externally visible capture state.
type Snapshot struct {
	State      State           `json:"state"`
	Listening  bool            `json:"listening"`
	Transcript string          `json:"transcript"`
	Error      ErrorClass      `json:"error,omitempty"`
	Language   models.Language `json:"language"`
}

type Option func(*Controller)

func WithClock(c Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

func WithDelays(debounce, grace time.Duration) Option {
	return func(ctl *Controller) {
		ctl.debounce = debounce
		ctl.grace = grace
	}
}

func NewController(rec Recognizer, lang models.Language, log *logrus.Logger, opts ...Option) *Controller {
	if log == nil {
		log = logrus.New()
	}
	c := &Controller{
		rec:      rec,
		clock:    SystemClock(),
		log:      log,
		debounce: defaultDebounce,
		grace:    defaultGrace,
		state:    StateIdle,
		lang:     lang,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnSubmit registers the exactly-once-per-capture question callback. Must be
// set before the first Toggle.
func (c *Controller) OnSubmit(fn func(models.Question)) { c.onSubmit = fn }

// OnChange registers a state-change callback for pushing UI updates.
func (c *Controller) OnChange(fn func(Snapshot)) { c.onChange = fn }

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:      c.state,
		Listening:  c.indicator,
		Transcript: c.transcript.String(),
		Error:      c.errClass,
		Language:   c.lang,
	}
}

// Toggle starts listening from Idle or Errored, and cancels without
// submission from any listening state, discarding the transcript.
func (c *Controller) Toggle() {
	c.mu.Lock()

	switch c.state {
	case StateIdle, StateErrored, StateSubmitted:
		c.gen++
		c.transcript.Reset()
		c.errClass = ""
		locale := c.lang.Locale()
		if err := c.rec.Start(locale); err != nil {
			c.state = StateErrored
			c.errClass = ErrDeviceUnavail
			snap := c.snapshotLocked()
			c.mu.Unlock()
			c.log.WithError(err).Warn("capture start failed")
			c.notify(snap)
			return
		}
		c.state = StateListening
		c.indicator = true

	case StateListening, StateAwaitingPause:
		c.gen++
		c.stopTimersLocked()
		c.transcript.Reset()
		c.state = StateIdle
		c.indicator = false
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.rec.Stop()
		c.notify(snap)
		return

	default:
		c.mu.Unlock()
		return
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// HandleResult accumulates a final transcript from the platform and arms the
// debounce timer; an earlier pending debounce is replaced, so trailing speech
// extends the wait.
func (c *Controller) HandleResult(text string) {
	c.mu.Lock()
	if c.state != StateListening && c.state != StateAwaitingPause {
		c.mu.Unlock()
		return
	}

	if c.transcript.Len() > 0 && text != "" {
		c.transcript.WriteByte(' ')
	}
	c.transcript.WriteString(text)
	c.state = StateAwaitingPause

	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	gen := c.gen
	c.debounceTimer = c.clock.AfterFunc(c.debounce, func() { c.debounceFired(gen) })

	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Controller) debounceFired(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != StateAwaitingPause {
		c.mu.Unlock()
		return
	}

	text := strings.TrimSpace(c.transcript.String())
	if text == "" {
		c.state = StateIdle
		c.indicator = false
		c.transcript.Reset()
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return
	}

	c.gen++ // retire this capture session; nothing can submit it twice
	c.state = StateSubmitted
	c.indicator = false
	q := models.Question{Text: text, Language: c.lang, Modality: models.ModalityVoice}
	submitted := c.snapshotLocked()

	c.transcript.Reset()
	c.state = StateIdle
	idle := c.snapshotLocked()
	submit := c.onSubmit
	c.mu.Unlock()

	c.rec.Stop()
	c.notify(submitted)
	c.notify(idle)
	if submit != nil {
		submit(q)
	}
}

// HandleEnd is the platform's end-of-capture event. The listening indicator
// clears only after a short grace delay; a pending debounce keeps running
// independently.
func (c *Controller) HandleEnd() {
	c.mu.Lock()
	if c.state != StateListening && c.state != StateAwaitingPause {
		c.mu.Unlock()
		return
	}

	if c.graceTimer != nil {
		c.graceTimer.Stop()
	}
	gen := c.gen
	c.graceTimer = c.clock.AfterFunc(c.grace, func() { c.graceFired(gen) })
	c.mu.Unlock()
}

func (c *Controller) graceFired(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}

	c.indicator = false
	if c.state == StateListening {
		// capture ended with no result at all
		c.state = StateIdle
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// HandleError surfaces a classified capture failure. A user abort produces no
// visible error and simply returns to Idle.
func (c *Controller) HandleError(class ErrorClass) {
	c.mu.Lock()
	if c.state != StateListening && c.state != StateAwaitingPause {
		c.mu.Unlock()
		return
	}

	c.gen++
	c.stopTimersLocked()
	c.transcript.Reset()
	c.indicator = false

	if class == ErrUserAborted {
		c.state = StateIdle
		c.errClass = ""
	} else {
		c.state = StateErrored
		c.errClass = class
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.log.WithField("class", class).Debug("capture error")
	c.notify(snap)
}

// SetLanguage switches the capture language. While listening, capture
// restarts with the new tag; if the restart fails the error surfaces but the
// accumulated transcript is kept.
func (c *Controller) SetLanguage(lang models.Language) {
	c.mu.Lock()
	if c.lang == lang {
		c.mu.Unlock()
		return
	}
	c.lang = lang

	if c.state != StateListening && c.state != StateAwaitingPause {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
		return
	}

	locale := lang.Locale()
	c.rec.Stop()
	if err := c.rec.Start(locale); err != nil {
		// transcript intentionally preserved
		c.state = StateErrored
		c.errClass = ErrDeviceUnavail
		c.indicator = false
		c.stopTimersLocked()
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.log.WithError(err).Warn("capture restart after language switch failed")
		c.notify(snap)
		return
	}

	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

func (c *Controller) stopTimersLocked() {
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
}

func (c *Controller) notify(snap Snapshot) {
	if c.onChange != nil {
		c.onChange(snap)
	}
}
