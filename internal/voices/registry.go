// Package voices ranks the client platform's synthesis voices per target
// language family and resolves which voice a speak request should use. The
// fallback order is plain data (an ordered strategy list), so it stays
// auditable and testable.
package voices

import (
	"sort"
	"strings"
	"sync"

	"github.com/davigonia/mr-learning/internal/models"
)

type Family string

const (
	FamilyEnglish   Family = "english"
	FamilyCantonese Family = "cantonese"
)

func FamilyFor(lang models.Language) Family {
	if lang == models.LanguageCantonese {
		return FamilyCantonese
	}
	return FamilyEnglish
}

// Locale is the tag set explicitly on the utterance when no dedicated voice
// exists, so the platform may still attempt correct pronunciation.
func (f Family) Locale() string {
	if f == FamilyCantonese {
		return "zh-HK"
	}
	return "en-US"
}

// Selection is the outcome of the cascade: either a concrete voice, or no
// voice with the target locale as a last resort. It is computed once per
// speak request and reused for every chunk of that request.
type Selection struct {
	Voice    *models.Voice
	Locale   string
	Strategy string // which cascade step matched, for logs
}

// strategy is one step of the cascade. Each step scans the installed-voice
// list in order and returns the first acceptable voice, keeping selection
// deterministic for a fixed list.
type strategy struct {
	name  string
	match func(voices []models.Voice, preferred string) *models.Voice
}

func byName(name string) func([]models.Voice, string) *models.Voice {
	return func(vs []models.Voice, _ string) *models.Voice {
		for i := range vs {
			if strings.Contains(vs[i].Name, name) {
				return &vs[i]
			}
		}
		return nil
	}
}

func byLang(tag string) func([]models.Voice, string) *models.Voice {
	return func(vs []models.Voice, _ string) *models.Voice {
		for i := range vs {
			if vs[i].Lang == tag {
				return &vs[i]
			}
		}
		return nil
	}
}

func preferredName(vs []models.Voice, preferred string) *models.Voice {
	if preferred == "" {
		return nil
	}
	for i := range vs {
		if vs[i].Name == preferred {
			return &vs[i]
		}
	}
	return nil
}

var englishCascade = []strategy{
	{"configured", preferredName},
	// per-OS known-good names: iOS ships Samantha/Daniel, desktop Chrome
	// ships the Google voices
	{"ios-known", byName("Samantha")},
	{"ios-known", byName("Daniel")},
	{"google", func(vs []models.Voice, _ string) *models.Voice {
		for i := range vs {
			if strings.Contains(vs[i].Name, "Google") && strings.HasPrefix(vs[i].Lang, "en") {
				return &vs[i]
			}
		}
		return nil
	}},
	{"family-tag", func(vs []models.Voice, _ string) *models.Voice {
		for i := range vs {
			if strings.HasPrefix(vs[i].Lang, "en") ||
				strings.Contains(strings.ToLower(vs[i].Name), "english") {
				return &vs[i]
			}
		}
		return nil
	}},
}

var cantoneseCascade = []strategy{
	{"configured", preferredName},
	{"ios-known", byName("Sin-ji")},
	{"google", func(vs []models.Voice, _ string) *models.Voice {
		for i := range vs {
			if strings.Contains(vs[i].Name, "Google") &&
				(vs[i].Lang == "zh-HK" || strings.Contains(vs[i].Name, "Cantonese")) {
				return &vs[i]
			}
		}
		return nil
	}},
	{"cantonese-name", func(vs []models.Voice, _ string) *models.Voice {
		for i := range vs {
			if strings.Contains(vs[i].Name, "Cantonese") || strings.Contains(vs[i].Name, "粵語") {
				return &vs[i]
			}
		}
		return nil
	}},
	// degrading fallbacks: Hong Kong, then Traditional, then Mandarin
	{"zh-hk", byLang("zh-HK")},
	{"zh-tw", byLang("zh-TW")},
	{"zh-cn", byLang("zh-CN")},
	{"chinese-name", byName("Chinese")},
}

// Registry holds the current platform voice list and per-family preferences.
// SetVoices replaces the list whenever the platform reports a change; ranks
// are recomputed from scratch on demand.
type Registry struct {
	mu        sync.RWMutex
	voices    []models.Voice
	preferred map[Family]string
}

func NewRegistry() *Registry {
	return &Registry{preferred: make(map[Family]string)}
}

func (r *Registry) SetVoices(vs []models.Voice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voices = append([]models.Voice(nil), vs...)
}

func (r *Registry) SetPreferred(f Family, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preferred[f] = name
}

func (r *Registry) Voices() []models.Voice {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.Voice(nil), r.voices...)
}

func cascadeFor(f Family) []strategy {
	if f == FamilyCantonese {
		return cantoneseCascade
	}
	return englishCascade
}

// Select runs the cascade for the family and returns the first match. When
// nothing matches, the Selection carries no voice and the target locale only.
func (r *Registry) Select(f Family) Selection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range cascadeFor(f) {
		if v := s.match(r.voices, r.preferred[f]); v != nil {
			return Selection{Voice: v, Locale: f.Locale(), Strategy: s.name}
		}
	}
	return Selection{Locale: f.Locale(), Strategy: "locale-only"}
}

// Profiles returns every voice acceptable for the family, ranked by the
// cascade step that would pick it (lower rank is better). Used by the voice
// settings screen.
func (r *Registry) Profiles(f Family) []models.VoiceProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cascade := cascadeFor(f)
	seen := make(map[string]bool)
	var out []models.VoiceProfile

	for rank, s := range cascade {
		remaining := filterOut(r.voices, seen)
		for {
			v := s.match(remaining, r.preferred[f])
			if v == nil {
				break
			}
			seen[v.Name] = true
			out = append(out, models.VoiceProfile{Voice: *v, Rank: rank})
			remaining = filterOut(remaining, seen)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

func filterOut(vs []models.Voice, seen map[string]bool) []models.Voice {
	out := make([]models.Voice, 0, len(vs))
	for _, v := range vs {
		if !seen[v.Name] {
			out = append(out, v)
		}
	}
	return out
}
