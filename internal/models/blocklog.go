package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BlockedQuestion records a question the content gate refused to send. It is
// never spoken and never reaches the answer service; parents can review it.
// Documents expire via a TTL index on ExpiresAt.
type BlockedQuestion struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HouseholdID string             `bson:"household_id" json:"household_id"`
	SessionID   string             `bson:"session_id,omitempty" json:"session_id,omitempty"`

	Question string   `bson:"question" json:"question"`
	Language Language `bson:"language" json:"language"`
	Reason   string   `bson:"reason" json:"reason"` // too_long|banned
	Matched  string   `bson:"matched,omitempty" json:"matched,omitempty"`

	BlockedAt time.Time `bson:"blocked_at" json:"blocked_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}
