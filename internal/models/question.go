package models

// Language is the UI language the child asked in. It selects the capture
// locale and the system prompt; the answer's spoken voice is chosen from the
// answer text itself, not from this value.
type Language string

const (
	LanguageEnglish   Language = "english"
	LanguageCantonese Language = "cantonese"
)

// Locale returns the BCP-47 tag used for capture and synthesis requests.
func (l Language) Locale() string {
	if l == LanguageCantonese {
		return "zh-HK"
	}
	return "en-US"
}

func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageCantonese
}

// Modality records how the question entered the system.
type Modality string

const (
	ModalityVoice Modality = "voice"
	ModalityText  Modality = "text"
)

// Question is immutable once submitted.
type Question struct {
	Text     string   `json:"text"`
	Language Language `json:"language"`
	Modality Modality `json:"modality"`
}

// Answer carries the language the text was actually generated in, detected
// from its script rather than assumed from the UI.
type Answer struct {
	Text     string   `json:"text"`
	Language Language `json:"language"`
}
