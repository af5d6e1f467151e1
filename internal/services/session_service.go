package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/davigonia/mr-learning/internal/models"
	mongorepo "github.com/davigonia/mr-learning/internal/repositories/mongo"
	"github.com/davigonia/mr-learning/internal/utils"
)

type SessionService interface {
	Start(ctx context.Context, householdID string, language models.Language) (*models.Session, error)
	Get(ctx context.Context, sessionID string) (*models.Session, error)
	End(ctx context.Context, sessionID string) (*models.Session, error)
	RecordActivity(ctx context.Context, sessionID string, asked, blocked int) error
	ListByHousehold(ctx context.Context, householdID string, limit int64) ([]models.Session, error)
}

type sessionService struct {
	sessions mongorepo.SessionRepository
}

func NewSessionService(sessions mongorepo.SessionRepository) SessionService {
	return &sessionService{sessions: sessions}
}

func (s *sessionService) Start(ctx context.Context, householdID string, language models.Language) (*models.Session, error) {
	const op = "SessionService.Start"

	if householdID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "household_id is required", nil)
	}
	if language != models.LanguageEnglish && language != models.LanguageCantonese {
		return nil, utils.E(utils.CodeInvalidArgument, op, "language must be english or cantonese", nil)
	}

	session := &models.Session{
		SessionID:   uuid.NewString(),
		HouseholdID: householdID,
		Language:    language,
		Status:      "active",
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}
	return session, nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "SessionService.Get"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}

	out, err := s.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	return out, nil
}

func (s *sessionService) End(ctx context.Context, sessionID string) (*models.Session, error) {
	const op = "SessionService.End"

	ss, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dur := int64(now.Sub(ss.CreatedAt).Seconds())
	if dur < 0 {
		dur = 0
	}

	if err := s.sessions.End(ctx, sessionID, now, dur); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to end session", err)
	}

	ss.Status = "ended"
	ss.EndedAt = &now
	ss.DurationSeconds = dur
	return ss, nil
}

// RecordActivity folds a session's asked/blocked deltas into the stored
// document, typically on disconnect.
func (s *sessionService) RecordActivity(ctx context.Context, sessionID string, asked, blocked int) error {
	const op = "SessionService.RecordActivity"

	if sessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	if err := s.sessions.IncrCounters(ctx, sessionID, asked, blocked); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to record activity", err)
	}
	return nil
}

func (s *sessionService) ListByHousehold(ctx context.Context, householdID string, limit int64) ([]models.Session, error) {
	const op = "SessionService.ListByHousehold"

	if householdID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "household_id is required", nil)
	}
	out, err := s.sessions.ListByHousehold(ctx, householdID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list sessions", err)
	}
	return out, nil
}
