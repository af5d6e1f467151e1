package models

// Voice is one synthesis voice the client platform reported. The list arrives
// asynchronously over the session WebSocket and may change at runtime.
type Voice struct {
	Name string `json:"name"`
	Lang string `json:"lang"`
}

// VoiceProfile is a Voice plus its locally computed suitability rank for a
// target language family. Not persisted; recomputed whenever the platform
// voice list changes.
type VoiceProfile struct {
	Voice
	Rank int `json:"rank"`
}
