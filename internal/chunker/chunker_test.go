package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitTextAtOrUnderLimitReturnsSingleChunk(t *testing.T) {
	cfg := Config{MaxChunkSize: 1000, OverlapSize: 150}

	text := strings.Repeat("a", 1000)
	chunks := Split(text, cfg)
	require.Len(t, chunks, 1)
	require.Equal(t, 1, chunks[0].TotalChunks)
	require.False(t, chunks[0].HasOverlap)
	require.Equal(t, text, chunks[0].Text)
}

func TestSplitOneCharOverLimitProducesTwoChunks(t *testing.T) {
	cfg := Config{MaxChunkSize: 1000, OverlapSize: 150}

	text := strings.Repeat("a", 1001)
	chunks := Split(text, cfg)
	require.Len(t, chunks, 2)
	require.True(t, chunks[1].HasOverlap)
}

func TestSplitFiveThousandCharsProducesFiveChunks(t *testing.T) {
	cfg := Config{MaxChunkSize: 1000, OverlapSize: 150}

	text := strings.Repeat("x", 5000)
	chunks := Split(text, cfg)
	require.Len(t, chunks, 5)
	require.Equal(t, 5, chunks[0].TotalChunks)
	for i, c := range chunks {
		require.Equal(t, i, c.ChunkIndex)
	}
}

func TestChunkSizeNeverExceedsMaxChunkSizeWithOverlap(t *testing.T) {
	cfg := Config{MaxChunkSize: 1000, OverlapSize: 150}

	text := strings.Repeat("x", 5000)
	chunks := Split(text, cfg)
	require.Len(t, chunks, 5)
	for _, c := range chunks {
		require.LessOrEqual(t, c.ChunkSize, cfg.MaxChunkSize)
	}
}

func TestOverlapIsExactlyOverlapSize(t *testing.T) {
	cfg := Config{MaxChunkSize: 100, OverlapSize: 20}

	text := strings.Repeat("y", 350)
	chunks := Split(text, cfg)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1].Text
		if len(prevTail) > cfg.OverlapSize {
			prevTail = prevTail[len(prevTail)-cfg.OverlapSize:]
		}
		require.True(t, strings.HasPrefix(chunks[i].Text, prevTail))
		require.Equal(t, cfg.OverlapSize, len(prevTail))
	}
}

func TestSplitRespectsParagraphBoundaries(t *testing.T) {
	cfg := Config{MaxChunkSize: 40, OverlapSize: 5}

	text := "first paragraph here\n\nsecond paragraph is here too\n\nthird one wraps up the text"
	chunks := Split(text, cfg)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.NotEmpty(t, c.Text)
	}
}

func TestSplitFallsBackToSentencesWhenParagraphTooLarge(t *testing.T) {
	cfg := Config{MaxChunkSize: 30, OverlapSize: 0}

	text := "Sentence one is here. Sentence two follows now. Sentence three ends it."
	chunks := Split(text, cfg)
	require.Greater(t, len(chunks), 1)
}

func TestSplitFallsBackToHardCharSplitForUnbreakableRun(t *testing.T) {
	cfg := Config{MaxChunkSize: 10, OverlapSize: 0}

	text := strings.Repeat("z", 55)
	chunks := Split(text, cfg)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c.Text), cfg.MaxChunkSize)
	}
}
