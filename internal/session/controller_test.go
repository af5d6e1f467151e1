package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davigonia/mr-learning/internal/gate"
	"github.com/davigonia/mr-learning/internal/models"
	"github.com/davigonia/mr-learning/internal/providers/answer"
	"github.com/davigonia/mr-learning/internal/speech/capture"
)

type fakeSpeaker struct {
	mu       sync.Mutex
	spoken   []string
	cancels  int
	speaking bool
}

func (s *fakeSpeaker) Speak(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	s.speaking = true
}

func (s *fakeSpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
	s.speaking = false
}

func (s *fakeSpeaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

func (s *fakeSpeaker) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

type fakeProvider struct {
	mu    sync.Mutex
	reqs  []answer.Request
	text  string
	err   error
	block chan struct{} // when set, Ask waits until closed
}

func (p *fakeProvider) Ask(ctx context.Context, req answer.Request) (string, error) {
	p.mu.Lock()
	p.reqs = append(p.reqs, req)
	block := p.block
	text, err := p.text, p.err
	p.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return text, err
}

func (p *fakeProvider) Close() error { return nil }

func (p *fakeProvider) requests() []answer.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]answer.Request(nil), p.reqs...)
}

type fakeHistory struct {
	mu      sync.Mutex
	entries []*models.HistoryEntry
	done    chan struct{}
}

func (h *fakeHistory) Append(ctx context.Context, e *models.HistoryEntry) error {
	h.mu.Lock()
	h.entries = append(h.entries, e)
	h.mu.Unlock()
	if h.done != nil {
		h.done <- struct{}{}
	}
	return nil
}

type fakeBlocks struct {
	mu      sync.Mutex
	records []*models.BlockedQuestion
	done    chan struct{}
}

func (b *fakeBlocks) Record(ctx context.Context, q *models.BlockedQuestion) error {
	b.mu.Lock()
	b.records = append(b.records, q)
	b.mu.Unlock()
	if b.done != nil {
		b.done <- struct{}{}
	}
	return nil
}

type fakePolicies struct {
	pol *models.FilterPolicy
	err error
}

func (p *fakePolicies) Policy(ctx context.Context, householdID string) (*models.FilterPolicy, error) {
	return p.pol, p.err
}

type recorded struct {
	mu      sync.Mutex
	answers []models.Answer
	notices []string
	loading []bool
	done    chan struct{}
}

func (r *recorded) events() Events {
	return Events{
		OnAnswer: func(a models.Answer) {
			r.mu.Lock()
			r.answers = append(r.answers, a)
			r.mu.Unlock()
			if r.done != nil {
				r.done <- struct{}{}
			}
		},
		OnNotice: func(text string) {
			r.mu.Lock()
			r.notices = append(r.notices, text)
			r.mu.Unlock()
			if r.done != nil {
				r.done <- struct{}{}
			}
		},
		OnLoading: func(v bool) {
			r.mu.Lock()
			r.loading = append(r.loading, v)
			r.mu.Unlock()
		},
	}
}

func (r *recorded) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session event")
	}
}

func newTestController(t *testing.T, prov *fakeProvider, rec *recorded, opts func(*Config)) (*Controller, *fakeSpeaker) {
	t.Helper()
	sp := &fakeSpeaker{}
	cfg := Config{
		HouseholdID: "house-1",
		Language:    models.LanguageEnglish,
		Gate:        gate.New(),
		Provider:    prov,
		Speaker:     sp,
		Events:      rec.events(),
	}
	if opts != nil {
		opts(&cfg)
	}
	return NewController(cfg), sp
}

func TestSubmitAnswersAndSpeaks(t *testing.T) {
	prov := &fakeProvider{text: "The sky is blue because sunlight scatters!"}
	rec := &recorded{done: make(chan struct{}, 4)}
	ctrl, sp := newTestController(t, prov, rec, nil)

	ctrl.Submit("Why is the sky blue?")
	rec.wait(t)

	require.Len(t, rec.answers, 1)
	assert.Equal(t, prov.text, rec.answers[0].Text)
	assert.Equal(t, models.LanguageEnglish, rec.answers[0].Language)
	assert.Equal(t, []string{prov.text}, sp.texts())

	asked, blocked := ctrl.Stats()
	assert.Equal(t, 1, asked)
	assert.Equal(t, 0, blocked)

	require.Len(t, rec.loading, 2)
	assert.True(t, rec.loading[0])
	assert.False(t, rec.loading[1])
}

func TestSubmitPassesPolicyToProvider(t *testing.T) {
	pol := &models.FilterPolicy{Level: models.FilterStrict, TimeLimitMinutes: 30}
	require.NoError(t, pol.SetWords([]string{"zombie"}))

	prov := &fakeProvider{text: "ok"}
	rec := &recorded{done: make(chan struct{}, 4)}
	ctrl, _ := newTestController(t, prov, rec, func(cfg *Config) {
		cfg.Policies = &fakePolicies{pol: pol}
	})

	ctrl.Submit("How do plants grow?")
	rec.wait(t)

	reqs := prov.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, models.FilterStrict, reqs[0].ContentFiltering)
	assert.Equal(t, 30, reqs[0].TimeLimit)
	assert.Equal(t, []string{"zombie"}, reqs[0].BannedWords)
}

func TestBlankSubmitIgnored(t *testing.T) {
	prov := &fakeProvider{text: "ok"}
	rec := &recorded{}
	ctrl, sp := newTestController(t, prov, rec, nil)

	ctrl.Submit("   ")

	assert.Empty(t, prov.requests())
	assert.Empty(t, sp.texts())
}

func TestBannedQuestionBlockedBeforeNetwork(t *testing.T) {
	prov := &fakeProvider{text: "never"}
	rec := &recorded{done: make(chan struct{}, 4)}
	blocks := &fakeBlocks{done: make(chan struct{}, 1)}
	ctrl, sp := newTestController(t, prov, rec, func(cfg *Config) {
		cfg.Blocks = blocks
	})

	ctrl.Submit("Tell me about guns")
	rec.wait(t)

	assert.Empty(t, prov.requests(), "blocked question must never reach the service")
	require.Len(t, rec.notices, 1)
	assert.Equal(t, "Let's ask something nicer!", rec.notices[0])
	assert.Equal(t, []string{"Let's ask something nicer!"}, sp.texts())

	select {
	case <-blocks.done:
	case <-time.After(2 * time.Second):
		t.Fatal("blocked question was not recorded")
	}
	blocks.mu.Lock()
	defer blocks.mu.Unlock()
	require.Len(t, blocks.records, 1)
	assert.Equal(t, "banned", blocks.records[0].Reason)
	assert.Equal(t, "gun", blocks.records[0].Matched)
	assert.Equal(t, "Tell me about guns", blocks.records[0].Question)

	_, blocked := ctrl.Stats()
	assert.Equal(t, 1, blocked)
}

func TestTooLongQuestionNotice(t *testing.T) {
	prov := &fakeProvider{}
	rec := &recorded{done: make(chan struct{}, 4)}
	ctrl, _ := newTestController(t, prov, rec, nil)

	long := ""
	for i := 0; i < 30; i++ {
		long += "why "
	}
	ctrl.Submit(long)
	rec.wait(t)

	assert.Empty(t, prov.requests())
	require.Len(t, rec.notices, 1)
	assert.Contains(t, rec.notices[0], "a bit long")
}

func TestServiceErrorLocalized(t *testing.T) {
	tests := []struct {
		name string
		err  error
		lang models.Language
		want string
	}{
		{
			name: "auth english",
			err:  &answer.ServiceError{Kind: answer.KindAuth, HTTPStatus: 401},
			lang: models.LanguageEnglish,
			want: "Our key isn't working! Please tell an adult.",
		},
		{
			name: "rate limited english",
			err:  &answer.ServiceError{Kind: answer.KindRateLimited, HTTPStatus: 429},
			lang: models.LanguageEnglish,
			want: "We're too chatty! Wait a bit and try again.",
		},
		{
			name: "server english",
			err:  &answer.ServiceError{Kind: answer.KindServer, HTTPStatus: 500},
			lang: models.LanguageEnglish,
			want: "Oops, our brain is taking a nap! Try again soon.",
		},
		{
			name: "network cantonese",
			err:  errors.New("dial tcp: connection refused"),
			lang: models.LanguageCantonese,
			want: "哎呀，我哋個腦瞓緊覺！遲啲再試下啦。",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prov := &fakeProvider{err: tt.err}
			rec := &recorded{done: make(chan struct{}, 4)}
			ctrl, sp := newTestController(t, prov, rec, func(cfg *Config) {
				cfg.Language = tt.lang
			})

			q := "Why is the sky blue?"
			if tt.lang == models.LanguageCantonese {
				q = "點解天空係藍色？"
			}
			ctrl.Submit(q)
			rec.wait(t)

			require.Len(t, rec.answers, 1)
			assert.Equal(t, tt.want, rec.answers[0].Text)
			assert.Equal(t, []string{tt.want}, sp.texts())

			asked, _ := ctrl.Stats()
			assert.Zero(t, asked, "failed questions do not count as answered")
		})
	}
}

func TestMutedAnswerNotSpoken(t *testing.T) {
	prov := &fakeProvider{text: "Bees make honey from nectar!"}
	rec := &recorded{done: make(chan struct{}, 4)}
	ctrl, sp := newTestController(t, prov, rec, nil)

	ctrl.SetMuted(true)
	ctrl.Submit("How do bees make honey?")
	rec.wait(t)

	require.Len(t, rec.answers, 1, "the answer text still reaches the client")
	assert.Empty(t, sp.texts())
}

func TestMuteMidAnswerCancelsSpeech(t *testing.T) {
	prov := &fakeProvider{text: "ok"}
	rec := &recorded{done: make(chan struct{}, 4)}
	ctrl, sp := newTestController(t, prov, rec, nil)

	sp.Speak("previous answer")
	ctrl.SetMuted(true)

	assert.False(t, sp.Speaking())
	require.True(t, ctrl.Muted())
}

func TestNewSubmissionSupersedesInFlight(t *testing.T) {
	block := make(chan struct{})
	prov := &fakeProvider{text: "first answer", block: block}
	rec := &recorded{done: make(chan struct{}, 8)}
	ctrl, _ := newTestController(t, prov, rec, nil)

	ctrl.Submit("first question")

	// Wait until the first request is actually in flight.
	require.Eventually(t, func() bool {
		return len(prov.requests()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	prov.mu.Lock()
	prov.block = nil
	prov.text = "second answer"
	prov.mu.Unlock()
	ctrl.Submit("second question")
	rec.wait(t)

	close(block) // the stale first request now completes
	time.Sleep(50 * time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.answers, 1, "the superseded answer must be dropped")
	assert.Equal(t, "second answer", rec.answers[0].Text)
}

func TestHistoryAppended(t *testing.T) {
	prov := &fakeProvider{text: "They recycle old ones!"}
	rec := &recorded{done: make(chan struct{}, 4)}
	hist := &fakeHistory{done: make(chan struct{}, 1)}
	ctrl, _ := newTestController(t, prov, rec, func(cfg *Config) {
		cfg.History = hist
	})

	ctrl.Submit("wut happens to old stars?")
	rec.wait(t)

	select {
	case <-hist.done:
	case <-time.After(2 * time.Second):
		t.Fatal("history entry never written")
	}

	hist.mu.Lock()
	defer hist.mu.Unlock()
	require.Len(t, hist.entries, 1)
	assert.Equal(t, "house-1", hist.entries[0].HouseholdID)
	assert.Equal(t, "what happens to old stars?", hist.entries[0].Question,
		"the typo-corrected question is what gets recorded")
	assert.NotEmpty(t, hist.entries[0].ID)
}

func TestPolicyFetchFailureUsesDefaults(t *testing.T) {
	prov := &fakeProvider{text: "ok"}
	rec := &recorded{done: make(chan struct{}, 4)}
	ctrl, _ := newTestController(t, prov, rec, func(cfg *Config) {
		cfg.Policies = &fakePolicies{err: errors.New("db down")}
	})

	ctrl.Submit("Why do cats purr?")
	rec.wait(t)

	reqs := prov.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, models.FilterModerate, reqs[0].ContentFiltering)
}

func TestCaptureErrorNotices(t *testing.T) {
	prov := &fakeProvider{}
	rec := &recorded{done: make(chan struct{}, 4)}
	ctrl, _ := newTestController(t, prov, rec, nil)

	ctrl.HandleCaptureError(capture.ErrNoSpeech)
	rec.wait(t)
	require.Len(t, rec.notices, 1)
	assert.Equal(t, "I didn't hear anything. Try speaking again!", rec.notices[0])

	ctrl.HandleCaptureError(capture.ErrUserAborted)
	time.Sleep(20 * time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.notices, 1, "user aborts are silent")
}
