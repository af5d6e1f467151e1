package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/davigonia/mr-learning/internal/models"
	"github.com/davigonia/mr-learning/internal/utils"
)

type PolicyRepository interface {
	GetByHouseholdID(ctx context.Context, householdID string) (*models.FilterPolicy, error)
	Upsert(ctx context.Context, p *models.FilterPolicy) error
}

type policyRepo struct {
	db *gorm.DB
}

func NewPolicyRepo(db *gorm.DB) PolicyRepository {
	return &policyRepo{db: db}
}

func (r *policyRepo) GetByHouseholdID(ctx context.Context, householdID string) (*models.FilterPolicy, error) {
	var p models.FilterPolicy
	err := r.db.WithContext(ctx).
		Where("household_id = ?", householdID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *policyRepo) Upsert(ctx context.Context, p *models.FilterPolicy) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "household_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"pin_hash", "level", "banned_words", "english_voice", "cantonese_voice", "time_limit_minutes", "updated_at"}),
		}).
		Create(p).Error
}
