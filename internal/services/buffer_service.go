package services

import (
	"context"
	"time"

	"github.com/davigonia/mr-learning/internal/models"
	mongorepo "github.com/davigonia/mr-learning/internal/repositories/mongo"
	"github.com/davigonia/mr-learning/internal/utils"
)

// BufferService tracks uploaded capture audio while the transcription worker
// turns it into text.
type BufferService interface {
	InsertAudioChunk(ctx context.Context, sessionID string, chunkIndex int64, audioURL, audioBase64 *string) (*models.CaptureChunk, error)
	MarkTranscript(ctx context.Context, sessionID string, chunkIndex int64, transcript string, confidence float64, status string) error
	MarkArchived(ctx context.Context, sessionID string, chunkIndex int64, archiveURL string) error
	ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.CaptureChunk, error)
}

type bufferService struct {
	buffers mongorepo.BufferRepository
	ttl     time.Duration
}

func NewBufferService(buffers mongorepo.BufferRepository, ttl time.Duration) BufferService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &bufferService{buffers: buffers, ttl: ttl}
}

func (s *bufferService) InsertAudioChunk(ctx context.Context, sessionID string, chunkIndex int64, audioURL, audioBase64 *string) (*models.CaptureChunk, error) {
	const op = "BufferService.InsertAudioChunk"

	if sessionID == "" || chunkIndex <= 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required and chunk_index must be > 0", nil)
	}

	now := time.Now().UTC()
	doc := &models.CaptureChunk{
		SessionID:   sessionID,
		ChunkIndex:  chunkIndex,
		AudioURL:    audioURL,
		AudioBase64: audioBase64,

		CaptureStatus: "pending",

		Timestamp: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.buffers.InsertChunk(ctx, doc); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to insert audio chunk", err)
	}
	return doc, nil
}

func (s *bufferService) MarkTranscript(ctx context.Context, sessionID string, chunkIndex int64, transcript string, confidence float64, status string) error {
	const op = "BufferService.MarkTranscript"

	if sessionID == "" || chunkIndex <= 0 || status == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id, chunk_index (>0), and status are required", nil)
	}
	if err := s.buffers.UpdateTranscript(ctx, sessionID, chunkIndex, transcript, confidence, status); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to update transcript fields", err)
	}
	return nil
}

func (s *bufferService) MarkArchived(ctx context.Context, sessionID string, chunkIndex int64, archiveURL string) error {
	const op = "BufferService.MarkArchived"

	if sessionID == "" || chunkIndex <= 0 || archiveURL == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id, chunk_index (>0), and archive_url are required", nil)
	}
	if err := s.buffers.SetArchiveURL(ctx, sessionID, chunkIndex, archiveURL); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to set archive url", err)
	}
	return nil
}

func (s *bufferService) ListBySession(ctx context.Context, sessionID string, limit int64) ([]models.CaptureChunk, error) {
	const op = "BufferService.ListBySession"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	out, err := s.buffers.ListBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list capture buffer", err)
	}
	return out, nil
}
