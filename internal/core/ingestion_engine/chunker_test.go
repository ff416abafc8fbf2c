package ingestion_engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edurag-project/backend/internal/core/pdf"
)

func approxTokens(s string) int { return (len(s) + 3) / 4 }

func TestChunkEmptyText(t *testing.T) {
	c := NewChunker(500, 50, approxTokens)

	assert.Nil(t, c.Chunk("", nil))
	assert.Nil(t, c.Chunk("   \n\n\t  ", nil))
}

func TestChunkDeterministic(t *testing.T) {
	c := NewChunker(50, 10, approxTokens)

	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Sentence number %d about cell biology. ", i)
	}
	text := b.String()

	first := c.Chunk(text, nil)
	second := c.Chunk(text, nil)
	require.Equal(t, first, second)
}

func TestChunkIndicesContiguous(t *testing.T) {
	c := NewChunker(50, 10, approxTokens)

	var b strings.Builder
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&b, "Paragraph %d.\n\nMore text about the topic at hand. ", i)
	}

	chunks := c.Chunk(b.String(), nil)
	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.NotEmpty(t, ch.ChunkText)
		assert.Equal(t, approxTokens(ch.ChunkText), ch.TokenCount)
	}
}

func TestChunkRespectsBudget(t *testing.T) {
	chunkSize, overlap := 25, 5
	c := NewChunker(chunkSize, overlap, approxTokens)
	budget := chunkSize * charsPerToken

	var b strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "Short sentence number %d here. ", i)
	}

	chunks := c.Chunk(b.String(), nil)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.ChunkText), budget,
			"chunk %d exceeds character budget", ch.ChunkIndex)
	}
}

func TestChunkOverlapCarriesText(t *testing.T) {
	c := NewChunker(25, 10, approxTokens)

	var b strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&b, "Overlapping sentence number %d. ", i)
	}

	chunks := c.Chunk(b.String(), nil)
	require.Greater(t, len(chunks), 2)

	// The tail of each chunk reappears at the head of the next one.
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1].ChunkText, chunks[i].ChunkText
		firstSentence := strings.SplitN(cur, ". ", 2)[0]
		assert.Contains(t, prev, firstSentence,
			"chunk %d does not overlap with its predecessor", i)
	}
}

func TestChunkPageAttribution(t *testing.T) {
	page1 := "\n\n--- Page 1 ---\n\n" + strings.Repeat("First page text. ", 10)
	page2 := "\n\n--- Page 2 ---\n\n" + strings.Repeat("Second page text. ", 10)
	text := page1 + page2

	meta := &pdf.Meta{
		TotalPages: 2,
		Method:     pdf.MethodLayout,
		PageBreaks: []pdf.PageBreak{
			{Page: 1, CharPosition: 0},
			{Page: 2, CharPosition: len(page1)},
		},
		TotalChars: len(text),
	}

	c := NewChunker(30, 0, approxTokens)
	chunks := c.Chunk(text, meta)
	require.NotEmpty(t, chunks)

	sawPage2 := false
	for _, ch := range chunks {
		assert.Contains(t, []int{1, 2}, ch.Metadata.Page)
		assert.Equal(t, pdf.MethodLayout, ch.Metadata.ExtractionMethod)
		assert.Equal(t, 2, ch.Metadata.TotalPages)
		assert.Equal(t, len(text), ch.Metadata.TotalChars)
		assert.Equal(t, len(ch.ChunkText), ch.Metadata.CharLength)
		if ch.Metadata.Page == 2 {
			sawPage2 = true
			assert.Contains(t, ch.ChunkText, "Second page")
		}
	}
	assert.True(t, sawPage2, "no chunk attributed to page 2")
}

func TestChunkNilMetaDefaultsPageOne(t *testing.T) {
	c := NewChunker(500, 50, approxTokens)
	chunks := c.Chunk("Some material text that fits in one chunk.", nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, chunks[0].Metadata.Page)
	assert.Empty(t, chunks[0].Metadata.ExtractionMethod)
}

func TestHardSplitWindows(t *testing.T) {
	text := strings.Repeat("abcdefghij", 10) // 100 chars, no separators
	pieces := hardSplit(text, 40, 8)
	require.NotEmpty(t, pieces)
	for _, p := range pieces {
		assert.LessOrEqual(t, len(p), 40)
	}
	// step = 32: windows start at 0, 32, 64, 96.
	assert.Len(t, pieces, 4)
}

