package models

import (
	"time"

	"gorm.io/datatypes"
)

// HistoryEntry is one question/answer pair. Only the most recent entries per
// household are retained; older rows are trimmed on append.
type HistoryEntry struct {
	ID          string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	HouseholdID string         `gorm:"column:household_id;type:text;index" json:"household_id"`
	Question    string         `gorm:"column:question;type:text" json:"question"`
	Answer      string         `gorm:"column:answer;type:text" json:"answer"`
	Language    Language       `gorm:"column:language;type:text" json:"language"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	AskedAt     time.Time      `gorm:"column:asked_at;type:timestamptz;index" json:"asked_at"`
}

func (HistoryEntry) TableName() string { return "history_entries" }
