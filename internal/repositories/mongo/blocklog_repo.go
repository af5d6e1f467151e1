package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/davigonia/mr-learning/internal/models"
)

type BlockLogRepository interface {
	Insert(ctx context.Context, b *models.BlockedQuestion) error
	ListByHousehold(ctx context.Context, householdID string, limit int64) ([]models.BlockedQuestion, error)
	ClearHousehold(ctx context.Context, householdID string) (int64, error)
}

type blockLogRepo struct {
	col *mongo.Collection
}

func NewBlockLogRepo(db *mongo.Database) BlockLogRepository {
	return &blockLogRepo{col: db.Collection("blocked_questions")}
}

func (r *blockLogRepo) Insert(ctx context.Context, b *models.BlockedQuestion) error {
	_, err := r.col.InsertOne(ctx, b)
	return err
}

func (r *blockLogRepo) ListByHousehold(ctx context.Context, householdID string, limit int64) ([]models.BlockedQuestion, error) {
	if limit <= 0 {
		limit = 100
	}

	cur, err := r.col.Find(ctx,
		bson.M{"household_id": householdID},
		options.Find().
			SetSort(bson.D{{Key: "blocked_at", Value: -1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.BlockedQuestion
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *blockLogRepo) ClearHousehold(ctx context.Context, householdID string) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"household_id": householdID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
