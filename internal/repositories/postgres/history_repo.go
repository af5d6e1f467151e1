package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/davigonia/mr-learning/internal/models"
)

type HistoryRepository interface {
	Insert(ctx context.Context, e *models.HistoryEntry) error
	ListByHousehold(ctx context.Context, householdID string, limit int) ([]models.HistoryEntry, error)
	TrimHousehold(ctx context.Context, householdID string, keep int) error
	ClearHousehold(ctx context.Context, householdID string) error
}

type historyRepo struct {
	db *gorm.DB
}

func NewHistoryRepo(db *gorm.DB) HistoryRepository {
	return &historyRepo{db: db}
}

func (r *historyRepo) Insert(ctx context.Context, e *models.HistoryEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *historyRepo) ListByHousehold(ctx context.Context, householdID string, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []models.HistoryEntry
	err := r.db.WithContext(ctx).
		Where("household_id = ?", householdID).
		Order("asked_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// TrimHousehold deletes everything but the newest keep entries.
func (r *historyRepo) TrimHousehold(ctx context.Context, householdID string, keep int) error {
	return r.db.WithContext(ctx).Exec(`
		DELETE FROM history_entries
		WHERE household_id = ?
		  AND id NOT IN (
			SELECT id FROM history_entries
			WHERE household_id = ?
			ORDER BY asked_at DESC
			LIMIT ?
		  )`, householdID, householdID, keep).Error
}

func (r *historyRepo) ClearHousehold(ctx context.Context, householdID string) error {
	return r.db.WithContext(ctx).
		Where("household_id = ?", householdID).
		Delete(&models.HistoryEntry{}).Error
}
