package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/davigonia/mr-learning/internal/api/middleware"
	"github.com/davigonia/mr-learning/internal/models"
	"github.com/davigonia/mr-learning/internal/services"
	"github.com/davigonia/mr-learning/internal/storage"
	"github.com/davigonia/mr-learning/internal/utils"
)

// ParentalHandler is the PIN-gated dashboard surface: login, policy edits,
// review of history, blocked questions and archived voice captures.
type ParentalHandler struct {
	Parental services.ParentalService
	History  services.HistoryService
	Blocks   services.BlockLogService
	Sessions services.SessionService

	// optional: capture review, available when audio archiving is on
	Buffers services.BufferService
	Signer  storage.Signer
}

type loginRequest struct {
	HouseholdID string `json:"household_id" binding:"required"`
	PIN         string `json:"pin" binding:"required"`
}

// Login exchanges a correct PIN for a short-lived parent token.
func (h *ParentalHandler) Login(c *gin.Context) {
	const op = "ParentalHandler.Login"

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "household_id and pin are required", err))
		return
	}

	if err := h.Parental.VerifyPIN(c.Request.Context(), req.HouseholdID, req.PIN); err != nil {
		writeError(c, err)
		return
	}

	token, err := middleware.IssueParentToken(req.HouseholdID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(middleware.ParentTokenTTL.Seconds()),
	})
}

func (h *ParentalHandler) GetPolicy(c *gin.Context) {
	householdID, ok := requireHouseholdID(c)
	if !ok {
		return
	}
	p, err := h.Parental.Policy(c.Request.Context(), householdID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type setLevelRequest struct {
	Level models.FilterLevel `json:"level" binding:"required"`
}

func (h *ParentalHandler) SetLevel(c *gin.Context) {
	const op = "ParentalHandler.SetLevel"

	householdID, ok := requireHouseholdID(c)
	if !ok {
		return
	}
	var req setLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "level is required", err))
		return
	}
	if err := h.Parental.SetLevel(c.Request.Context(), householdID, req.Level); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type setBannedWordsRequest struct {
	Words []string `json:"words"`
}

func (h *ParentalHandler) SetBannedWords(c *gin.Context) {
	const op = "ParentalHandler.SetBannedWords"

	householdID, ok := requireHouseholdID(c)
	if !ok {
		return
	}
	var req setBannedWordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "words must be a string array", err))
		return
	}
	if err := h.Parental.SetBannedWords(c.Request.Context(), householdID, req.Words); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type setVoicesRequest struct {
	EnglishVoice   string `json:"english_voice"`
	CantoneseVoice string `json:"cantonese_voice"`
}

func (h *ParentalHandler) SetVoices(c *gin.Context) {
	const op = "ParentalHandler.SetVoices"

	householdID, ok := requireHouseholdID(c)
	if !ok {
		return
	}
	var req setVoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid body", err))
		return
	}
	if err := h.Parental.SetVoices(c.Request.Context(), householdID, req.EnglishVoice, req.CantoneseVoice); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type setTimeLimitRequest struct {
	Minutes int `json:"minutes"`
}

func (h *ParentalHandler) SetTimeLimit(c *gin.Context) {
	const op = "ParentalHandler.SetTimeLimit"

	householdID, ok := requireHouseholdID(c)
	if !ok {
		return
	}
	var req setTimeLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "minutes is required", err))
		return
	}
	if err := h.Parental.SetTimeLimit(c.Request.Context(), householdID, req.Minutes); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type changePINRequest struct {
	CurrentPIN string `json:"current_pin" binding:"required"`
	NewPIN     string `json:"new_pin" binding:"required"`
}

func (h *ParentalHandler) ChangePIN(c *gin.Context) {
	const op = "ParentalHandler.ChangePIN"

	householdID, ok := requireHouseholdID(c)
	if !ok {
		return
	}
	var req changePINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "current_pin and new_pin are required", err))
		return
	}
	if err := h.Parental.ChangePIN(c.Request.Context(), householdID, req.CurrentPIN, req.NewPIN); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ParentalHandler) ListBlocked(c *gin.Context) {
	householdID, ok := requireHouseholdID(c)
	if !ok {
		return
	}
	out, err := h.Blocks.List(c.Request.Context(), householdID, 100)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": out})
}

func (h *ParentalHandler) ClearBlocked(c *gin.Context) {
	householdID, ok := requireHouseholdID(c)
	if !ok {
		return
	}
	n, err := h.Blocks.Clear(c.Request.Context(), householdID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h *ParentalHandler) ListSessions(c *gin.Context) {
	householdID, ok := requireHouseholdID(c)
	if !ok {
		return
	}
	out, err := h.Sessions.ListByHousehold(c.Request.Context(), householdID, 50)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

type captureView struct {
	ChunkIndex int64   `json:"chunk_index"`
	Transcript string  `json:"transcript,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Status     string  `json:"status"`
	AudioURL   string  `json:"audio_url,omitempty"` // short-lived signed URL
}

// ListCaptures shows a session's voice-capture chunks. The session must
// belong to the authenticated household; archived audio is exposed through
// signed URLs only.
func (h *ParentalHandler) ListCaptures(c *gin.Context) {
	const op = "ParentalHandler.ListCaptures"

	householdID, ok := requireHouseholdID(c)
	if !ok {
		return
	}
	if h.Buffers == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "capture review is not enabled", nil))
		return
	}

	sessionID := c.Param("session_id")
	sess, err := h.Sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}
	if sess.HouseholdID != householdID {
		writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
		return
	}

	chunks, err := h.Buffers.ListBySession(c.Request.Context(), sessionID, 200)
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]captureView, 0, len(chunks))
	for _, ch := range chunks {
		v := captureView{
			ChunkIndex: ch.ChunkIndex,
			Transcript: ch.Transcript,
			Confidence: ch.Confidence,
			Status:     ch.CaptureStatus,
		}
		if h.Signer != nil && ch.ArchiveURL != "" {
			if object, ok := objectFromGSURL(ch.ArchiveURL); ok {
				if url, serr := h.Signer.SignedGetURL(c.Request.Context(), object, 15*time.Minute); serr == nil {
					v.AudioURL = url
				}
			}
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"captures": out})
}

func objectFromGSURL(u string) (string, bool) {
	rest, ok := strings.CutPrefix(u, "gs://")
	if !ok {
		return "", false
	}
	_, object, found := strings.Cut(rest, "/")
	if !found || object == "" {
		return "", false
	}
	return object, true
}
