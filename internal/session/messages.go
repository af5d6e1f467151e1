package session

import (
	"github.com/davigonia/mr-learning/internal/gate"
	"github.com/davigonia/mr-learning/internal/models"
	"github.com/davigonia/mr-learning/internal/providers/answer"
	"github.com/davigonia/mr-learning/internal/speech/capture"
)

// Every user-visible message exists in both languages; the service never
// localizes for us.

var gateNotices = map[gate.Outcome]map[models.Language]string{
	gate.OutcomeRejectedTooLong: {
		models.LanguageEnglish:   "That question is a bit long! Try asking a shorter one.",
		models.LanguageCantonese: "個問題有啲長呀！試下問短啲啦。",
	},
	gate.OutcomeRejectedBanned: {
		models.LanguageEnglish:   "Let's ask something nicer!",
		models.LanguageCantonese: "不如我哋問啲好啲嘅問題啦！",
	},
}

var serviceErrors = map[answer.Kind]map[models.Language]string{
	answer.KindAuth: {
		models.LanguageEnglish:   "Our key isn't working! Please tell an adult.",
		models.LanguageCantonese: "我哋嘅鑰匙壞咗！請話俾大人知。",
	},
	answer.KindRateLimited: {
		models.LanguageEnglish:   "We're too chatty! Wait a bit and try again.",
		models.LanguageCantonese: "我哋講嘢講得太多喇！等陣再試下啦。",
	},
	answer.KindServer: {
		models.LanguageEnglish:   "Oops, our brain is taking a nap! Try again soon.",
		models.LanguageCantonese: "哎呀，我哋個腦瞓緊覺！遲啲再試下啦。",
	},
	answer.KindNetwork: {
		models.LanguageEnglish:   "Oops, our brain is taking a nap! Try again soon.",
		models.LanguageCantonese: "哎呀，我哋個腦瞓緊覺！遲啲再試下啦。",
	},
	answer.KindMalformed: {
		models.LanguageEnglish:   "Oops, our brain is taking a nap! Try again soon.",
		models.LanguageCantonese: "哎呀，我哋個腦瞓緊覺！遲啲再試下啦。",
	},
}

var captureErrors = map[capture.ErrorClass]map[models.Language]string{
	capture.ErrNoSpeech: {
		models.LanguageEnglish:   "I didn't hear anything. Try speaking again!",
		models.LanguageCantonese: "我咩都聽唔到。再講多次啦！",
	},
	capture.ErrDeviceUnavail: {
		models.LanguageEnglish:   "I can't find the microphone. Please tell an adult.",
		models.LanguageCantonese: "我搵唔到個咪。請話俾大人知。",
	},
	capture.ErrPermissionDenied: {
		models.LanguageEnglish:   "The microphone isn't allowed. Please tell an adult.",
		models.LanguageCantonese: "唔准用個咪喎。請話俾大人知。",
	},
	capture.ErrNetwork: {
		models.LanguageEnglish:   "The internet is being slow. Try again soon!",
		models.LanguageCantonese: "網絡好慢呀。遲啲再試下啦！",
	},
}

// GateNotice is the child-facing message for a rejected question.
func GateNotice(outcome gate.Outcome, lang models.Language) string {
	return pick(gateNotices[outcome], lang)
}

// ServiceErrorMessage localizes a classified answer-service failure.
func ServiceErrorMessage(kind answer.Kind, lang models.Language) string {
	return pick(serviceErrors[kind], lang)
}

// CaptureErrorMessage localizes a capture failure; user aborts have no
// message at all.
func CaptureErrorMessage(class capture.ErrorClass, lang models.Language) string {
	if class == capture.ErrUserAborted || class == "" {
		return ""
	}
	return pick(captureErrors[class], lang)
}

func pick(byLang map[models.Language]string, lang models.Language) string {
	if byLang == nil {
		return ""
	}
	if msg, ok := byLang[lang]; ok {
		return msg
	}
	return byLang[models.LanguageEnglish]
}
