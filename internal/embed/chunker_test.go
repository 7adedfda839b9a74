package embed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_EmptyText(t *testing.T) {
	c := NewChunker("text-embedding-3-small", 100, 10)
	assert.Nil(t, c.Chunk(""))
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker("text-embedding-3-small", 100, 10)
	chunks := c.Chunk("The company designs and sells consumer electronics.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "The company designs and sells consumer electronics.", chunks[0])
}

func TestChunk_Deterministic(t *testing.T) {
	c := NewChunker("text-embedding-3-small", 50, 10)
	text := strings.Repeat("risk factors include competition, regulation, and supply chain disruption. ", 40)

	first := c.Chunk(text)
	second := c.Chunk(text)
	require.Greater(t, len(first), 1)
	assert.Equal(t, first, second)
}

func TestChunk_OverlapCarriesTokens(t *testing.T) {
	c := NewChunker("text-embedding-3-small", 20, 5)
	text := strings.Repeat("alpha beta gamma delta epsilon ", 30)

	chunks := c.Chunk(text)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.NotEmpty(t, ch)
		assert.LessOrEqual(t, c.CountTokens(ch), 20)
	}
}

func TestChunk_CharFallback(t *testing.T) {
	c := NewChunker("no-such-model", 10, 2)
	require.Nil(t, c.enc)

	text := strings.Repeat("x", 100)
	chunks := c.Chunk(text)
	// 10 tokens * 4 chars = 40 char windows, step 32.
	require.Greater(t, len(chunks), 1)
	assert.Len(t, chunks[0], 40)
}

func TestCountTokens_CharFallbackRoundsUp(t *testing.T) {
	c := NewChunker("no-such-model", 10, 2)
	assert.Equal(t, 1, c.CountTokens("abc"))
	assert.Equal(t, 2, c.CountTokens("abcde"))
}

func TestNewChunker_DefaultsOnBadArgs(t *testing.T) {
	c := NewChunker("text-embedding-3-small", 0, -1)
	assert.Equal(t, DefaultChunkTokens, c.ChunkSize)
	assert.Equal(t, DefaultOverlap, c.Overlap)
}
