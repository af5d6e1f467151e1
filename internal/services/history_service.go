package services

import (
	"context"

	"github.com/davigonia/mr-learning/internal/models"
	pgrepo "github.com/davigonia/mr-learning/internal/repositories/postgres"
	"github.com/davigonia/mr-learning/internal/utils"
)

// historyKeep caps retained entries per household; append trims beyond it.
const historyKeep = 20

type HistoryService interface {
	Append(ctx context.Context, e *models.HistoryEntry) error
	List(ctx context.Context, householdID string) ([]models.HistoryEntry, error)
	Clear(ctx context.Context, householdID string) error
}

type historyService struct {
	history pgrepo.HistoryRepository
}

func NewHistoryService(history pgrepo.HistoryRepository) HistoryService {
	return &historyService{history: history}
}

func (s *historyService) Append(ctx context.Context, e *models.HistoryEntry) error {
	const op = "HistoryService.Append"

	if e == nil || e.HouseholdID == "" || e.Question == "" {
		return utils.E(utils.CodeInvalidArgument, op, "household_id and question are required", nil)
	}

	if err := s.history.Insert(ctx, e); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to append history", err)
	}
	if err := s.history.TrimHousehold(ctx, e.HouseholdID, historyKeep); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to trim history", err)
	}
	return nil
}

func (s *historyService) List(ctx context.Context, householdID string) ([]models.HistoryEntry, error) {
	const op = "HistoryService.List"

	if householdID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "household_id is required", nil)
	}
	out, err := s.history.ListByHousehold(ctx, householdID, historyKeep)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list history", err)
	}
	return out, nil
}

func (s *historyService) Clear(ctx context.Context, householdID string) error {
	const op = "HistoryService.Clear"

	if householdID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "household_id is required", nil)
	}
	if err := s.history.ClearHousehold(ctx, householdID); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to clear history", err)
	}
	return nil
}
