package gate

// Built-in word lists. Parent-defined banned words are supplied per check via
// Policy; these defaults are always active regardless of filtering level.

// typo corrections applied on word boundaries, case-insensitive. Keys must be
// lowercase.
var defaultTypos = map[string]string{
	"wut":    "what",
	"wat":    "what",
	"whut":   "what",
	"becuz":  "because",
	"becus":  "because",
	"cuz":    "because",
	"hou":    "how",
	"anser":  "answer",
	"dinasor": "dinosaur",
}

// VaguePhrase maps a vague fragment to the canonical question that replaces
// the whole input. Order matters: the first phrase found wins.
type VaguePhrase struct {
	Phrase   string
	Question string
}

var defaultVaguePhrases = []VaguePhrase{
	{"i'm bored", "Can you tell me a fun fact?"},
	{"im bored", "Can you tell me a fun fact?"},
	{"tell me something", "Can you tell me something interesting for kids?"},
	{"i don't know what to ask", "What is a fun question a kid could ask?"},
	{"something cool", "Can you tell me something cool about animals?"},
	{"好無聊", "可唔可以講一個有趣嘅小知識俾我聽？"},
	{"講啲嘢", "可唔可以講啲有趣嘅嘢俾小朋友聽？"},
}

// unsafe topics blocked in every filtering level, both languages.
var defaultUnsafeWords = []string{
	"kill", "killing", "murder", "gun", "knife", "weapon",
	"drug", "drugs", "alcohol", "cigarette", "suicide",
	"sex", "naked", "porn",
	"殺", "槍", "刀", "毒品", "自殺", "色情",
}
