package services

import (
	"context"
	"time"

	"github.com/davigonia/mr-learning/internal/models"
	mongorepo "github.com/davigonia/mr-learning/internal/repositories/mongo"
	"github.com/davigonia/mr-learning/internal/utils"
)

type BlockLogService interface {
	Record(ctx context.Context, b *models.BlockedQuestion) error
	List(ctx context.Context, householdID string, limit int64) ([]models.BlockedQuestion, error)
	Clear(ctx context.Context, householdID string) (int64, error)
}

type blockLogService struct {
	blocks mongorepo.BlockLogRepository
}

func NewBlockLogService(blocks mongorepo.BlockLogRepository) BlockLogService {
	return &blockLogService{blocks: blocks}
}

func (s *blockLogService) Record(ctx context.Context, b *models.BlockedQuestion) error {
	const op = "BlockLogService.Record"

	if b == nil || b.HouseholdID == "" || b.Question == "" {
		return utils.E(utils.CodeInvalidArgument, op, "household_id and question are required", nil)
	}
	if b.BlockedAt.IsZero() {
		b.BlockedAt = time.Now().UTC()
	}
	if b.ExpiresAt.IsZero() {
		b.ExpiresAt = b.BlockedAt.Add(30 * 24 * time.Hour)
	}
	if err := s.blocks.Insert(ctx, b); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to record blocked question", err)
	}
	return nil
}

func (s *blockLogService) List(ctx context.Context, householdID string, limit int64) ([]models.BlockedQuestion, error) {
	const op = "BlockLogService.List"

	if householdID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "household_id is required", nil)
	}
	out, err := s.blocks.ListByHousehold(ctx, householdID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list blocked questions", err)
	}
	return out, nil
}

func (s *blockLogService) Clear(ctx context.Context, householdID string) (int64, error) {
	const op = "BlockLogService.Clear"

	if householdID == "" {
		return 0, utils.E(utils.CodeInvalidArgument, op, "household_id is required", nil)
	}
	n, err := s.blocks.ClearHousehold(ctx, householdID)
	if err != nil {
		return 0, utils.E(utils.CodeInternal, op, "failed to clear blocked questions", err)
	}
	return n, nil
}
