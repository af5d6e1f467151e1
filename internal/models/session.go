package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is one interactive question-and-answer sitting: the child opens the
// app, asks questions by voice or text, and leaves. Capture attempts and
// speech output hang off the session's WebSocket connection.
type Session struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"` // uuid v4

	HouseholdID string   `bson:"household_id" json:"household_id"`
	Language    Language `bson:"language" json:"language"`
	Status      string   `bson:"status" json:"status"` // active|ended

	QuestionsAsked   int `bson:"questions_asked" json:"questions_asked"`
	QuestionsBlocked int `bson:"questions_blocked" json:"questions_blocked"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`

	DurationSeconds int64 `bson:"duration_seconds" json:"duration_seconds"`
}
