package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/davigonia/mr-learning/internal/gate"
	"github.com/davigonia/mr-learning/internal/models"
	"github.com/davigonia/mr-learning/internal/providers/answer"
	"github.com/davigonia/mr-learning/internal/services"
	"github.com/davigonia/mr-learning/internal/session"
	"github.com/davigonia/mr-learning/internal/utils"
)

// AskHandler is the plain HTTP question path: one request, one answer. Speech
// clients use the WebSocket session instead; this serves text-only clients
// and keeps the original REST contract alive.
type AskHandler struct {
	Gate     *gate.Gate
	Provider answer.Provider
	Parental services.ParentalService
	History  services.HistoryService
	Blocks   services.BlockLogService
	Logger   *logrus.Logger

	AskTimeout time.Duration
}

type askRequest struct {
	Question    string          `json:"question" binding:"required"`
	Language    models.Language `json:"language"`
	HouseholdID string          `json:"household_id"`
}

type askResponse struct {
	Answer   string          `json:"answer"`
	Language models.Language `json:"language"`
}

func (h *AskHandler) Ask(c *gin.Context) {
	const op = "AskHandler.Ask"

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "question is required", err))
		return
	}
	if req.Language == "" {
		req.Language = models.LanguageEnglish
	}
	if req.Language != models.LanguageEnglish && req.Language != models.LanguageCantonese {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "language must be english or cantonese", nil))
		return
	}

	pol := h.policy(c, req.HouseholdID)

	res := h.Gate.Check(req.Question, gate.Policy{Level: pol.Level, BannedWords: pol.Words()})
	if !res.Passed() {
		h.recordBlocked(req, res)
		writeError(c, utils.E(utils.CodeBlocked, op, session.GateNotice(res.Outcome, req.Language), nil))
		return
	}

	timeout := h.AskTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	text, err := h.Provider.Ask(ctx, answer.Request{
		Question:         res.Text,
		Language:         req.Language,
		ContentFiltering: pol.Level,
		TimeLimit:        pol.TimeLimitMinutes,
		BannedWords:      pol.Words(),
	})
	if err != nil {
		kind := answer.Classify(err)
		h.Logger.WithFields(logrus.Fields{"op": op, "kind": kind, "error": err.Error()}).Warn("answer service failed")
		code := utils.CodeUnavailable
		if kind == answer.KindRateLimited {
			code = utils.CodeRateLimited
		}
		writeError(c, utils.E(code, op, session.ServiceErrorMessage(kind, req.Language), err))
		return
	}

	h.appendHistory(req, res.Text, text)
	c.JSON(http.StatusOK, askResponse{Answer: text, Language: req.Language})
}

func (h *AskHandler) policy(c *gin.Context, householdID string) *models.FilterPolicy {
	const op = "AskHandler.policy"

	if h.Parental == nil || householdID == "" {
		return &models.FilterPolicy{Level: models.FilterModerate}
	}
	pol, err := h.Parental.Policy(c.Request.Context(), householdID)
	if err != nil {
		h.Logger.WithFields(logrus.Fields{"op": op, "error": err.Error()}).Warn("policy fetch failed, using defaults")
		return &models.FilterPolicy{Level: models.FilterModerate}
	}
	return pol
}

func (h *AskHandler) recordBlocked(req askRequest, res gate.Result) {
	if h.Blocks == nil || req.HouseholdID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Blocks.Record(ctx, &models.BlockedQuestion{
			HouseholdID: req.HouseholdID,
			Question:    res.Original,
			Language:    req.Language,
			Reason:      string(res.Outcome),
			Matched:     res.Matched,
		})
	}()
}

func (h *AskHandler) appendHistory(req askRequest, question, text string) {
	if h.History == nil || req.HouseholdID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.History.Append(ctx, &models.HistoryEntry{
			ID:          uuid.NewString(),
			HouseholdID: req.HouseholdID,
			Question:    question,
			Answer:      text,
			Language:    req.Language,
			AskedAt:     time.Now().UTC(),
		})
	}()
}
