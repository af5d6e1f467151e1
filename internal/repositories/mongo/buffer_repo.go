package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/davigonia/mr-learning/internal/models"
)

type BufferRepository interface {
	InsertChunk(ctx context.Context, c *models.CaptureChunk) error
	UpdateTranscript(ctx context.Context, sessionID string, chunkIndex int64, transcript string, confidence float64, status string) error
	SetArchiveURL(ctx context.Context, sessionID string, chunkIndex int64, url string) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.CaptureChunk, error)
}

type bufferRepo struct {
	col *mongo.Collection
}

func NewBufferRepo(db *mongo.Database) BufferRepository {
	return &bufferRepo{col: db.Collection("capture_buffer")}
}

func (r *bufferRepo) InsertChunk(ctx context.Context, c *models.CaptureChunk) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	if c.CaptureStatus == "" {
		c.CaptureStatus = "pending"
	}
	_, err := r.col.InsertOne(ctx, c)
	return err
}

func (r *bufferRepo) UpdateTranscript(ctx context.Context, sessionID string, chunkIndex int64, transcript string, confidence float64, status string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "chunk_index": chunkIndex},
		bson.M{"$set": bson.M{
			"transcript":     transcript,
			"confidence":     confidence,
			"capture_status": status,
		}},
	)
	return err
}

func (r *bufferRepo) SetArchiveURL(ctx context.Context, sessionID string, chunkIndex int64, url string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "chunk_index": chunkIndex},
		bson.M{"$set": bson.M{"archive_url": url}},
	)
	return err
}

func (r *bufferRepo) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.CaptureChunk, error) {
	if limit <= 0 {
		limit = 200
	}

	cur, err := r.col.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().
			SetSort(bson.D{{Key: "chunk_index", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.CaptureChunk
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
