package output

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/davigonia/mr-learning/internal/voices"
)

// Utterance parameters tuned for children: slightly slower, full volume.
const (
	utteranceRate   = 0.9
	utteranceVolume = 1.0
)

// Utterance is one chunk dispatched to the synthesizer. Gen and Index let the
// completion acks identify which speak request they belong to.
type Utterance struct {
	Text      string  `json:"text"`
	VoiceName string  `json:"voice_name,omitempty"`
	Lang      string  `json:"lang"`
	Rate      float64 `json:"rate"`
	Volume    float64 `json:"volume"`
	Gen       uint64  `json:"gen"`
	Index     int     `json:"index"`
}

// Synthesizer is the platform speech-synthesis capability: dispatch one
// utterance (completion reported back via ChunkDone/ChunkError) and cancel
// whatever is in flight.
type Synthesizer interface {
	Speak(u Utterance)
	Cancel()
}

// Controller plays chunks strictly in order: each chunk's completion, success
// or error, advances to the next. Starting a new request or cancelling bumps
// the generation so late acks from an abandoned chain no-op.
type Controller struct {
	mu    sync.Mutex
	reg   *voices.Registry
	synth Synthesizer
	log   *logrus.Logger

	gen      uint64
	queue    []string
	idx      int
	sel      voices.Selection
	speaking bool

	onSpeaking func(bool)
}

func NewController(reg *voices.Registry, synth Synthesizer, log *logrus.Logger) *Controller {
	if log == nil {
		log = logrus.New()
	}
	return &Controller{reg: reg, synth: synth, log: log}
}

// OnSpeakingChange registers a callback fired whenever the speaking flag
// flips. Must be set before the first Speak.
func (c *Controller) OnSpeakingChange(fn func(bool)) { c.onSpeaking = fn }

func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Speak starts a new playback chain for text, cancelling any chain already
// running. The voice is selected once and reused for every chunk.
func (c *Controller) Speak(text string) {
	family := DetectFamily(text)

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.queue = Chunks(text, family)
	c.idx = 0
	c.sel = c.reg.Select(family)
	wasSpeaking := c.speaking
	c.speaking = len(c.queue) > 0
	first := c.utteranceLocked(gen)
	nowSpeaking := c.speaking
	chunks := len(c.queue)
	strat := c.sel.Strategy
	c.mu.Unlock()

	if wasSpeaking {
		c.synth.Cancel()
	}
	if !nowSpeaking {
		if wasSpeaking {
			c.notifySpeaking(false)
		}
		return
	}

	c.log.WithFields(logrus.Fields{
		"family":   family,
		"chunks":   chunks,
		"strategy": strat,
	}).Debug("speak request")

	if !wasSpeaking {
		c.notifySpeaking(true)
	}
	c.synth.Speak(first)
}

func (c *Controller) utteranceLocked(gen uint64) Utterance {
	u := Utterance{
		Lang:   c.sel.Locale,
		Rate:   utteranceRate,
		Volume: utteranceVolume,
		Gen:    gen,
		Index:  c.idx,
	}
	if c.idx < len(c.queue) {
		u.Text = c.queue[c.idx]
	}
	if c.sel.Voice != nil {
		u.VoiceName = c.sel.Voice.Name
	}
	return u
}

// ChunkDone is the synthesizer's completion ack for the chunk of the given
// generation. Acks from a superseded generation are ignored.
func (c *Controller) ChunkDone(gen uint64) {
	c.advance(gen)
}

// ChunkError logs a per-chunk synthesis failure and continues with the next
// chunk; one bad chunk never aborts the rest of the answer.
func (c *Controller) ChunkError(gen uint64, msg string) {
	c.log.WithFields(logrus.Fields{"gen": gen, "error": msg}).Warn("chunk synthesis failed")
	c.advance(gen)
}

func (c *Controller) advance(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || !c.speaking {
		c.mu.Unlock()
		return
	}

	c.idx++
	if c.idx >= len(c.queue) {
		c.speaking = false
		c.queue = nil
		c.mu.Unlock()
		c.notifySpeaking(false)
		return
	}

	u := c.utteranceLocked(gen)
	c.mu.Unlock()

	c.synth.Speak(u)
}

// Cancel stops playback immediately and prevents any queued continuation from
// firing.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.gen++
	wasSpeaking := c.speaking
	c.speaking = false
	c.queue = nil
	c.mu.Unlock()

	if wasSpeaking {
		c.synth.Cancel()
		c.notifySpeaking(false)
	}
}

func (c *Controller) notifySpeaking(v bool) {
	if c.onSpeaking != nil {
		c.onSpeaking(v)
	}
}
