package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/davigonia/mr-learning/internal/gate"
	"github.com/davigonia/mr-learning/internal/models"
	"github.com/davigonia/mr-learning/internal/providers/answer"
	"github.com/davigonia/mr-learning/internal/services"
	"github.com/davigonia/mr-learning/internal/session"
	"github.com/davigonia/mr-learning/internal/speech/capture"
	"github.com/davigonia/mr-learning/internal/speech/output"
	"github.com/davigonia/mr-learning/internal/voices"
)

// SessionWSHandler owns the live child session. The client is the platform:
// it reports its installed voices, relays speech-recognition events, and
// plays the utterances we dispatch; all state machines run server-side.
type SessionWSHandler struct {
	Sessions services.SessionService
	Buffers  services.BufferService
	Parental services.ParentalService
	History  services.HistoryService
	Blocks   services.BlockLogService

	Gate     *gate.Gate
	Provider answer.Provider
	Redis    *redis.Client
	Logger   *logrus.Logger
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
}

type sessionClientMsg struct {
	Type string `json:"type"`

	// ask, transcript_result
	Text string `json:"text"`

	// set_language
	Language models.Language `json:"language"`

	// set_muted
	Muted bool `json:"muted"`

	// capture_error: the platform error code
	Error string `json:"error"`

	// chunk_done / chunk_error
	Gen     uint64 `json:"gen"`
	Message string `json:"message"`

	// voices: reported on load and on every voiceschanged
	Voices []models.Voice `json:"voices"`

	// audio_chunk: for clients without on-device recognition
	ChunkIndex  int64  `json:"chunk_index"`
	AudioBase64 string `json:"audio_base64"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.writeText(b)
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

// wsRecognizer asks the client to drive its platform recognizer. Events come
// back as transcript_result / capture_end / capture_error messages.
type wsRecognizer struct {
	wc *wsConn
}

func (r *wsRecognizer) Start(locale string) error {
	return r.wc.writeJSON(gin.H{"type": "start_listening", "locale": locale})
}

func (r *wsRecognizer) Stop() {
	_ = r.wc.writeJSON(gin.H{"type": "stop_listening"})
}

// wsSynthesizer dispatches utterances to the client's platform synthesis.
// Completion acks come back as chunk_done / chunk_error messages.
type wsSynthesizer struct {
	wc *wsConn
}

func (s *wsSynthesizer) Speak(u output.Utterance) {
	_ = s.wc.writeJSON(gin.H{"type": "speak", "utterance": u})
}

func (s *wsSynthesizer) Cancel() {
	_ = s.wc.writeJSON(gin.H{"type": "cancel_speech"})
}

func (h *SessionWSHandler) Session(c *gin.Context) {
	householdID := c.Query("household_id")
	lang := models.Language(c.Query("language"))
	if lang != models.LanguageEnglish && lang != models.LanguageCantonese {
		lang = models.LanguageEnglish
	}

	var sessionID string
	persisted := false
	if h.Sessions != nil && householdID != "" {
		sess, err := h.Sessions.Start(c.Request.Context(), householdID, lang)
		if err != nil {
			writeError(c, err)
			return
		}
		sessionID = sess.SessionID
		persisted = true
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := voices.NewRegistry()
	h.applyVoicePrefs(ctx, reg, householdID)

	out := output.NewController(reg, &wsSynthesizer{wc: wc}, h.Logger)
	out.OnSpeakingChange(func(v bool) {
		_ = wc.writeJSON(gin.H{"type": "speaking", "value": v})
	})

	sessCtrl := session.NewController(session.Config{
		HouseholdID: householdID,
		SessionID:   sessionID,
		Language:    lang,
		Gate:        h.Gate,
		Provider:    h.Provider,
		Speaker:     out,
		Policies:    h.Parental,
		History:     h.History,
		Blocks:      h.Blocks,
		Log:         h.Logger,
		Events: session.Events{
			OnAnswer: func(a models.Answer) {
				_ = wc.writeJSON(gin.H{"type": "answer", "text": a.Text, "language": a.Language})
			},
			OnNotice: func(text string) {
				_ = wc.writeJSON(gin.H{"type": "notice", "text": text})
			},
			OnLoading: func(v bool) {
				_ = wc.writeJSON(gin.H{"type": "loading", "value": v})
			},
		},
	})
	if sessionID == "" {
		sessionID = sessCtrl.SessionID()
	}

	capCtrl := capture.NewController(&wsRecognizer{wc: wc}, lang, h.Logger)
	capCtrl.OnChange(func(snap capture.Snapshot) {
		_ = wc.writeJSON(gin.H{"type": "capture_state", "capture": snap})
	})
	capCtrl.OnSubmit(func(q models.Question) {
		sessCtrl.Submit(q.Text)
	})

	_ = wc.writeJSON(gin.H{"type": "ready", "session_id": sessionID, "language": lang})

	if h.Redis != nil {
		go h.forwardPubSub(ctx, wc, capCtrl, sessionID)
	}

	h.readLoop(ctx, conn, wc, sessCtrl, capCtrl, out, reg, sessionID)

	out.Cancel()
	if persisted {
		h.finish(sessCtrl, sessionID)
	}
}

// readLoop processes client messages until the connection drops or the client
// ends the session.
func (h *SessionWSHandler) readLoop(ctx context.Context, conn *websocket.Conn, wc *wsConn,
	sessCtrl *session.Controller, capCtrl *capture.Controller, out *output.Controller,
	reg *voices.Registry, sessionID string) {

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var msg sessionClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"invalid json"}`))
			continue
		}

		switch msg.Type {
		case "voices":
			reg.SetVoices(msg.Voices)

		case "toggle_listening":
			capCtrl.Toggle()

		case "transcript_result":
			capCtrl.HandleResult(msg.Text)

		case "capture_end":
			capCtrl.HandleEnd()

		case "capture_error":
			class := capture.ClassifyError(msg.Error)
			capCtrl.HandleError(class)
			sessCtrl.HandleCaptureError(class)

		case "ask":
			sessCtrl.Submit(msg.Text)

		case "set_language":
			if msg.Language == models.LanguageEnglish || msg.Language == models.LanguageCantonese {
				sessCtrl.SetLanguage(msg.Language)
				capCtrl.SetLanguage(msg.Language)
			}

		case "set_muted":
			sessCtrl.SetMuted(msg.Muted)

		case "chunk_done":
			out.ChunkDone(msg.Gen)

		case "chunk_error":
			out.ChunkError(msg.Gen, msg.Message)

		case "audio_chunk":
			h.enqueueAudio(ctx, wc, sessCtrl, sessionID, msg)

		case "end_session":
			return

		default:
			_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"unknown message type"}`))
		}
	}
}

// enqueueAudio buffers a raw clip and hands it to the transcription workers.
func (h *SessionWSHandler) enqueueAudio(ctx context.Context, wc *wsConn, sessCtrl *session.Controller, sessionID string, msg sessionClientMsg) {
	if h.Buffers == nil || h.Redis == nil {
		_ = wc.writeText([]byte(`{"type":"error","code":"UNAVAILABLE","message":"server transcription not configured"}`))
		return
	}
	if msg.ChunkIndex <= 0 || msg.AudioBase64 == "" {
		_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"chunk_index (>0) and audio_base64 required"}`))
		return
	}

	if _, err := h.Buffers.InsertAudioChunk(ctx, sessionID, msg.ChunkIndex, nil, &msg.AudioBase64); err != nil {
		_ = wc.writeText([]byte(`{"type":"error","code":"INTERNAL","message":"failed to buffer audio"}`))
		return
	}

	err := h.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: "capture:audio",
		Values: map[string]any{
			"session_id":   sessionID,
			"chunk_index":  strconv.FormatInt(msg.ChunkIndex, 10),
			"language":     string(sessCtrl.Language()),
			"audio_base64": msg.AudioBase64,
			"ts_unix":      strconv.FormatInt(time.Now().UTC().Unix(), 10),
		},
	}).Err()
	if err != nil {
		_ = wc.writeText([]byte(`{"type":"error","code":"UNAVAILABLE","message":"failed to enqueue audio"}`))
	}
}

// forwardPubSub relays worker output to the client. Transcripts additionally
// feed the capture state machine, so server-side recognition behaves exactly
// like on-device recognition.
func (h *SessionWSHandler) forwardPubSub(ctx context.Context, wc *wsConn, capCtrl *capture.Controller, sessionID string) {
	respCh := "session:" + sessionID + ":response"
	statusCh := "session:" + sessionID + ":status"

	pubsub := h.Redis.Subscribe(ctx, respCh, statusCh)
	defer pubsub.Close()

	for {
		m, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return
		}

		var peek struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if json.Unmarshal([]byte(m.Payload), &peek) == nil && peek.Type == "transcript_result" && peek.Text != "" {
			capCtrl.HandleResult(peek.Text)
		}

		if werr := wc.writeText([]byte(m.Payload)); werr != nil {
			return
		}
	}
}

func (h *SessionWSHandler) applyVoicePrefs(ctx context.Context, reg *voices.Registry, householdID string) {
	if h.Parental == nil || householdID == "" {
		return
	}
	pol, err := h.Parental.Policy(ctx, householdID)
	if err != nil {
		h.Logger.WithError(err).Warn("voice preference fetch failed")
		return
	}
	if pol.EnglishVoice != "" {
		reg.SetPreferred(voices.FamilyEnglish, pol.EnglishVoice)
	}
	if pol.CantoneseVoice != "" {
		reg.SetPreferred(voices.FamilyCantonese, pol.CantoneseVoice)
	}
}

// finish folds the session's activity into the stored document and marks it
// ended.
func (h *SessionWSHandler) finish(sessCtrl *session.Controller, sessionID string) {
	if h.Sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	asked, blocked := sessCtrl.Stats()
	if err := h.Sessions.RecordActivity(ctx, sessionID, asked, blocked); err != nil {
		h.Logger.WithError(err).Warn("session activity record failed")
	}
	if _, err := h.Sessions.End(ctx, sessionID); err != nil {
		h.Logger.WithError(err).Warn("session end failed")
	}
}
