package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// FilterLevel is the parental-configured strictness handed to the answer
// service as prompt-level topic rules.
type FilterLevel string

const (
	FilterNone     FilterLevel = "none"
	FilterModerate FilterLevel = "moderate"
	FilterStrict   FilterLevel = "strict"
)

func (f FilterLevel) Valid() bool {
	return f == FilterNone || f == FilterModerate || f == FilterStrict
}

// FilterPolicy is the persisted parental-control record for one household.
// The content gate only reads it; all writes go through the parental service
// behind PIN auth.
type FilterPolicy struct {
	HouseholdID string `gorm:"column:household_id;type:text;primaryKey" json:"household_id"`

	PINHash string      `gorm:"column:pin_hash;type:text" json:"-"`
	Level   FilterLevel `gorm:"column:level;type:text" json:"level"`

	// JSONB array of parent-defined banned words, matched case-insensitively
	// against both configured languages.
	BannedWords datatypes.JSON `gorm:"column:banned_words;type:jsonb" json:"banned_words"`

	EnglishVoice   string `gorm:"column:english_voice;type:text" json:"english_voice"`
	CantoneseVoice string `gorm:"column:cantonese_voice;type:text" json:"cantonese_voice"`

	TimeLimitMinutes int `gorm:"column:time_limit_minutes" json:"time_limit_minutes"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (FilterPolicy) TableName() string { return "filter_policies" }

// Words decodes the banned-word list; a missing or corrupt column is
// treated as empty rather than an error.
func (p *FilterPolicy) Words() []string {
	if len(p.BannedWords) == 0 {
		return nil
	}
	var words []string
	if err := json.Unmarshal(p.BannedWords, &words); err != nil {
		return nil
	}
	return words
}

// SetWords replaces the banned-word list.
func (p *FilterPolicy) SetWords(words []string) error {
	raw, err := json.Marshal(words)
	if err != nil {
		return err
	}
	p.BannedWords = datatypes.JSON(raw)
	return nil
}
