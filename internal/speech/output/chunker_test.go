package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davigonia/mr-learning/internal/voices"
)

func TestDetectFamily(t *testing.T) {
	tests := []struct {
		name string
		text string
		want voices.Family
	}{
		{"plain english", "The sky is blue.", voices.FamilyEnglish},
		{"pure chinese", "天空係藍色嘅。", voices.FamilyCantonese},
		{"mixed script", "The answer is 藍色.", voices.FamilyCantonese},
		{"empty", "", voices.FamilyEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFamily(tt.text))
		})
	}
}

func TestEnglishChunks_ShortTextSingleChunk(t *testing.T) {
	text := "The sky is blue because air scatters blue light more than other colors."
	chunks := Chunks(text, voices.FamilyEnglish)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestEnglishChunks_BreaksAtSentenceEnd(t *testing.T) {
	first := strings.Repeat("a", 150) + "."
	second := " " + strings.Repeat("b", 120) + "."
	chunks := Chunks(first+second, voices.FamilyEnglish)

	require.Len(t, chunks, 2)
	assert.Equal(t, first, chunks[0])
	assert.Equal(t, second, chunks[1])
}

func TestEnglishChunks_BreaksAtSpaceWhenNoPunctuation(t *testing.T) {
	words := strings.Repeat("hello ", 60) // 360 chars, no sentence enders
	chunks := Chunks(words, voices.FamilyEnglish)

	require.GreaterOrEqual(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 200)
		// never mid-word when a space is available
		assert.True(t, strings.HasSuffix(c, " ") || c == chunks[len(chunks)-1])
	}
	assert.Equal(t, words, strings.Join(chunks, ""))
}

func TestEnglishChunks_Lossless(t *testing.T) {
	texts := []string{
		"One. Two? Three! " + strings.Repeat("word ", 100),
		strings.Repeat("x", 450),
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 12),
	}
	for _, text := range texts {
		chunks := Chunks(text, voices.FamilyEnglish)
		assert.Equal(t, text, strings.Join(chunks, ""))
		for _, c := range chunks {
			assert.LessOrEqual(t, len([]rune(c)), 200)
		}
	}
}

func TestChineseChunks_SentenceSplit(t *testing.T) {
	text := "天空係藍色嘅。點解呢？因為空氣散射藍光！"
	chunks := Chunks(text, voices.FamilyCantonese)

	require.Len(t, chunks, 3)
	assert.Equal(t, "天空係藍色嘅。", chunks[0])
	assert.Equal(t, "點解呢？", chunks[1])
	assert.Equal(t, "因為空氣散射藍光！", chunks[2])
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestChineseChunks_CommaBreakOnLongRun(t *testing.T) {
	// a 20-rune run ending in a comma breaks there; a short run does not
	long := strings.Repeat("好", 19) + "，"
	tail := "尾。"
	chunks := Chunks(long+tail, voices.FamilyCantonese)

	require.Len(t, chunks, 2)
	assert.Equal(t, long, chunks[0])
	assert.Equal(t, tail, chunks[1])

	short := "一二三，四五六。"
	chunks = Chunks(short, voices.FamilyCantonese)
	require.Len(t, chunks, 1)
	assert.Equal(t, short, chunks[0])
}

func TestChineseChunks_OversizedSentenceResplit(t *testing.T) {
	// three sentences, the middle one 130 runes with no internal punctuation
	short1 := strings.Repeat("短", 10) + "。"
	long := strings.Repeat("長", 129) + "。"
	short2 := strings.Repeat("短", 8) + "。"

	chunks := Chunks(short1+long+short2, voices.FamilyCantonese)

	require.GreaterOrEqual(t, len(chunks), 4)
	assert.Equal(t, short1, chunks[0])
	assert.Equal(t, short2, chunks[len(chunks)-1])
	for _, c := range chunks[1 : len(chunks)-1] {
		assert.LessOrEqual(t, len([]rune(c)), chineseSubLimit)
	}
	assert.Equal(t, short1+long+short2, strings.Join(chunks, ""))
}

func TestChineseChunks_NoPunctuationWholeText(t *testing.T) {
	text := strings.Repeat("字", 12)
	chunks := Chunks(text, voices.FamilyCantonese)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunks_NeverEmptyForNonEmptyInput(t *testing.T) {
	for _, text := range []string{".", "。", "a", "字"} {
		assert.NotEmpty(t, Chunks(text, voices.FamilyEnglish), text)
		assert.NotEmpty(t, Chunks(text, voices.FamilyCantonese), text)
	}
}
