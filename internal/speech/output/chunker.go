// Package output turns answer text into an ordered queue of speakable chunks
// and drives their sequential playback through the client synthesizer.
package output

import (
	"strings"
	"unicode"

	"github.com/davigonia/mr-learning/internal/voices"
)

const (
	// platform synthesizers truncate long utterances; these caps keep every
	// chunk comfortably below that
	englishMaxChunk = 200

	chineseRunLimit = 15  // punctuation-free run before , and ; become breakers
	chineseMaxSeg   = 100 // a segment past this gets re-split
	chineseSubLimit = 50  // target size of the re-split pieces
)

// DetectFamily picks the voice family from the answer's script, independent
// of the UI language: any CJK rune means the Chinese-family voice must speak
// it.
func DetectFamily(text string) voices.Family {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			return voices.FamilyCantonese
		}
	}
	return voices.FamilyEnglish
}

// Chunks splits text for the given family. Concatenating the returned chunks
// reproduces the input exactly; content is never dropped. If no split point
// exists the whole text is one chunk.
func Chunks(text string, family voices.Family) []string {
	if family == voices.FamilyCantonese {
		return chineseChunks(text)
	}
	return englishChunks(text)
}

// englishChunks cuts chunks of at most englishMaxChunk runes, preferring the
// last sentence-ending punctuation before the limit, then the last space past
// the halfway point, and never mid-word while a space is available.
func englishChunks(text string) []string {
	runes := []rune(text)
	var out []string

	for len(runes) > 0 {
		if len(runes) <= englishMaxChunk {
			out = append(out, string(runes))
			break
		}

		end := englishMaxChunk
		if cut := lastIndexAny(runes[:end], ".?!"); cut > 0 {
			end = cut + 1
		} else if cut := lastIndexAny(runes[:end], " "); cut > end/2 {
			end = cut + 1
		}

		out = append(out, string(runes[:end]))
		runes = runes[end:]
	}

	return dropBlank(out, text)
}

// chineseChunks splits on sentence-ending punctuation, keeping the
// punctuation with the preceding segment. Long punctuation-free runs break at
// commas and semicolons; oversized segments are re-split near the sub-limit.
func chineseChunks(text string) []string {
	var segs []string
	var cur []rune

	for _, r := range text {
		cur = append(cur, r)
		switch {
		case isChineseSentenceEnd(r):
			segs = append(segs, string(cur))
			cur = nil
		case isChineseSoftBreak(r) && len(cur) > chineseRunLimit:
			segs = append(segs, string(cur))
			cur = nil
		}
	}
	if len(cur) > 0 {
		segs = append(segs, string(cur))
	}

	var out []string
	for _, seg := range segs {
		if len([]rune(seg)) > chineseMaxSeg {
			out = append(out, splitOversized(seg)...)
		} else {
			out = append(out, seg)
		}
	}

	return dropBlank(out, text)
}

func isChineseSentenceEnd(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}

func isChineseSoftBreak(r rune) bool {
	return r == '，' || r == '；' || r == ',' || r == ';'
}

// splitOversized cuts a too-long segment into pieces around chineseSubLimit
// runes, breaking at the nearest space or comma before the limit when one
// exists.
func splitOversized(seg string) []string {
	runes := []rune(seg)
	var out []string

	for len(runes) > 0 {
		if len(runes) <= chineseSubLimit {
			out = append(out, string(runes))
			break
		}

		end := chineseSubLimit
		if cut := lastIndexWhere(runes[:end], func(r rune) bool {
			return r == ' ' || r == '，' || r == ','
		}); cut > 0 {
			end = cut + 1
		}

		out = append(out, string(runes[:end]))
		runes = runes[end:]
	}
	return out
}

// dropBlank removes whitespace-only chunks but never returns an empty result
// for non-empty input.
func dropBlank(chunks []string, text string) []string {
	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 && text != "" {
		return []string{text}
	}
	return out
}

func lastIndexAny(runes []rune, set string) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if strings.ContainsRune(set, runes[i]) {
			return i
		}
	}
	return -1
}

func lastIndexWhere(runes []rune, pred func(rune) bool) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if pred(runes[i]) {
			return i
		}
	}
	return -1
}
