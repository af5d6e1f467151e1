package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CaptureChunk buffers one uploaded audio chunk of a voice question while the
// transcription worker processes it. Documents expire via a TTL index on
// ExpiresAt.
type CaptureChunk struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID  string             `bson:"session_id" json:"session_id"`
	ChunkIndex int64              `bson:"chunk_index" json:"chunk_index"`

	AudioURL    *string `bson:"audio_url,omitempty" json:"audio_url,omitempty"`
	AudioBase64 *string `bson:"audio_base64,omitempty" json:"audio_base64,omitempty"`

	// where the raw audio was archived for parental review, if at all
	ArchiveURL string `bson:"archive_url,omitempty" json:"archive_url,omitempty"`

	Transcript    string  `bson:"transcript,omitempty" json:"transcript,omitempty"`
	Confidence    float64 `bson:"confidence,omitempty" json:"confidence,omitempty"`
	CaptureStatus string  `bson:"capture_status" json:"capture_status"` // pending|processing|done|failed

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}
