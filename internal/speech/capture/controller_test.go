package capture

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davigonia/mr-learning/internal/models"
)

// fakeClock collects scheduled callbacks; the test fires them explicitly.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := t.stopped
	t.stopped = true
	return !was
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{d: d, fn: fn}
	c.timers = append(c.timers, t)
	return t
}

// fire runs every live timer scheduled so far.
func (c *fakeClock) fire() {
	c.mu.Lock()
	pending := c.timers
	c.timers = nil
	c.mu.Unlock()
	for _, t := range pending {
		if !t.stopped {
			t.fn()
		}
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type fakeRecognizer struct {
	mu       sync.Mutex
	starts   []string
	stops    int
	startErr error
}

func (r *fakeRecognizer) Start(locale string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.starts = append(r.starts, locale)
	return nil
}

func (r *fakeRecognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
}

func quietLog() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestCapture(lang models.Language) (*Controller, *fakeRecognizer, *fakeClock, *[]models.Question) {
	rec := &fakeRecognizer{}
	clk := &fakeClock{}
	c := NewController(rec, lang, quietLog(), WithClock(clk))
	var submitted []models.Question
	c.OnSubmit(func(q models.Question) { submitted = append(submitted, q) })
	return c, rec, clk, &submitted
}

func TestToggle_StartsListeningWithUILanguage(t *testing.T) {
	c, rec, _, _ := newTestCapture(models.LanguageCantonese)

	c.Toggle()

	snap := c.Snapshot()
	assert.Equal(t, StateListening, snap.State)
	assert.True(t, snap.Listening)
	require.Len(t, rec.starts, 1)
	assert.Equal(t, "zh-HK", rec.starts[0])
}

func TestDebounce_SubmitsExactlyOnce(t *testing.T) {
	c, _, clk, submitted := newTestCapture(models.LanguageEnglish)

	c.Toggle()
	c.HandleResult("why is the sky blue")
	assert.Equal(t, StateAwaitingPause, c.Snapshot().State)
	assert.Empty(t, *submitted, "must not submit before the debounce fires")

	clk.fire()

	require.Len(t, *submitted, 1)
	q := (*submitted)[0]
	assert.Equal(t, "why is the sky blue", q.Text)
	assert.Equal(t, models.LanguageEnglish, q.Language)
	assert.Equal(t, models.ModalityVoice, q.Modality)
	assert.Equal(t, StateIdle, c.Snapshot().State)

	// a stale timer firing again must not resubmit
	clk.fire()
	assert.Len(t, *submitted, 1)
}

func TestDebounce_TrailingSpeechExtendsWait(t *testing.T) {
	c, _, clk, submitted := newTestCapture(models.LanguageEnglish)

	c.Toggle()
	c.HandleResult("why is")
	c.HandleResult("the sky blue")

	clk.fire()
	require.Len(t, *submitted, 1)
	assert.Equal(t, "why is the sky blue", (*submitted)[0].Text)
}

func TestDebounce_BlankTranscriptNeverSubmits(t *testing.T) {
	c, _, clk, submitted := newTestCapture(models.LanguageEnglish)

	c.Toggle()
	c.HandleResult("   ")
	clk.fire()

	assert.Empty(t, *submitted)
	assert.Equal(t, StateIdle, c.Snapshot().State)
}

func TestToggleOff_CancelsWithoutSubmission(t *testing.T) {
	c, rec, clk, submitted := newTestCapture(models.LanguageEnglish)

	c.Toggle()
	c.HandleResult("half a question")
	c.Toggle() // cancel while awaiting the pause confirmation

	assert.Equal(t, StateIdle, c.Snapshot().State)
	assert.Empty(t, c.Snapshot().Transcript)
	assert.Equal(t, 1, rec.stops)

	clk.fire() // stale debounce
	assert.Empty(t, *submitted)
}

func TestGrace_ClearsIndicatorAfterDelay(t *testing.T) {
	c, _, clk, _ := newTestCapture(models.LanguageEnglish)

	c.Toggle()
	c.HandleEnd()

	// still shown as listening until the grace delay elapses
	assert.True(t, c.Snapshot().Listening)
	assert.Equal(t, 1, clk.pending())

	clk.fire()
	snap := c.Snapshot()
	assert.False(t, snap.Listening)
	assert.Equal(t, StateIdle, snap.State)
}

func TestGrace_DoesNotKillPendingDebounce(t *testing.T) {
	c, _, clk, submitted := newTestCapture(models.LanguageEnglish)

	c.Toggle()
	c.HandleResult("what is rain")
	c.HandleEnd()

	// both the debounce and the grace timer are armed; firing both must
	// still submit exactly once
	assert.Equal(t, 2, clk.pending())
	clk.fire()

	require.Len(t, *submitted, 1)
	assert.Equal(t, "what is rain", (*submitted)[0].Text)
}

func TestHandleError_Classification(t *testing.T) {
	tests := []struct {
		name      string
		class     ErrorClass
		wantState State
		visible   bool
	}{
		{"no speech", ErrNoSpeech, StateErrored, true},
		{"mic unavailable", ErrDeviceUnavail, StateErrored, true},
		{"permission denied", ErrPermissionDenied, StateErrored, true},
		{"network", ErrNetwork, StateErrored, true},
		{"user abort is silent", ErrUserAborted, StateIdle, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _, submitted := newTestCapture(models.LanguageEnglish)
			c.Toggle()
			c.HandleError(tt.class)

			snap := c.Snapshot()
			assert.Equal(t, tt.wantState, snap.State)
			if tt.visible {
				assert.Equal(t, tt.class, snap.Error)
			} else {
				assert.Empty(t, snap.Error)
			}
			assert.Empty(t, *submitted)
		})
	}
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ErrNoSpeech, ClassifyError("no-speech"))
	assert.Equal(t, ErrPermissionDenied, ClassifyError("not-allowed"))
	assert.Equal(t, ErrUserAborted, ClassifyError("aborted"))
	assert.Equal(t, ErrDeviceUnavail, ClassifyError("anything-else"))
}

func TestSetLanguage_RestartsWhileListening(t *testing.T) {
	c, rec, _, _ := newTestCapture(models.LanguageEnglish)

	c.Toggle()
	require.Equal(t, []string{"en-US"}, rec.starts)

	c.SetLanguage(models.LanguageCantonese)

	assert.Equal(t, 1, rec.stops)
	require.Len(t, rec.starts, 2)
	assert.Equal(t, "zh-HK", rec.starts[1])
	assert.Equal(t, StateListening, c.Snapshot().State)
}

func TestSetLanguage_RestartFailureKeepsTranscript(t *testing.T) {
	c, rec, _, _ := newTestCapture(models.LanguageEnglish)

	c.Toggle()
	c.HandleResult("half a question")
	rec.startErr = errors.New("mic busy")

	c.SetLanguage(models.LanguageCantonese)

	snap := c.Snapshot()
	assert.Equal(t, StateErrored, snap.State)
	assert.Equal(t, "half a question", snap.Transcript)
}

func TestToggle_StartFailureSurfacesError(t *testing.T) {
	c, rec, _, _ := newTestCapture(models.LanguageEnglish)
	rec.startErr = errors.New("no microphone")

	c.Toggle()

	snap := c.Snapshot()
	assert.Equal(t, StateErrored, snap.State)
	assert.Equal(t, ErrDeviceUnavail, snap.Error)
}

func TestToggle_RecoversFromErrored(t *testing.T) {
	c, rec, clk, submitted := newTestCapture(models.LanguageEnglish)

	c.Toggle()
	c.HandleError(ErrNetwork)
	require.Equal(t, StateErrored, c.Snapshot().State)

	c.Toggle() // try again
	assert.Equal(t, StateListening, c.Snapshot().State)
	assert.Empty(t, c.Snapshot().Error)

	c.HandleResult("does it work now")
	clk.fire()
	require.Len(t, *submitted, 1)
	assert.Len(t, rec.starts, 2)
}
