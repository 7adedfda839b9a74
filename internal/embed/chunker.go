// Package embed turns long filing text into embedding vectors: token-aware
// chunking, batched provider calls, order-preserving aggregation, and a
// content-addressed cache.
package embed

import (
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

const (
	DefaultChunkTokens  = 7000
	DefaultOverlap      = 200
	charsPerTokenApprox = 4
)

// Chunker splits text on token boundaries. When no tokenizer is available
// for the model it degrades to character chunking at ~4 chars per token.
type Chunker struct {
	enc       *tiktoken.Tiktoken
	ChunkSize int
	Overlap   int
}

// NewChunker builds a chunker for the given embedding model.
func NewChunker(model string, chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkTokens
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		zap.L().Warn("embed: no tokenizer for model, using character chunking",
			zap.String("model", model),
			zap.Error(err),
		)
		enc = nil
	}
	return &Chunker{enc: enc, ChunkSize: chunkSize, Overlap: overlap}
}

// CountTokens returns the token count of text, approximated from length when
// no tokenizer is loaded.
func (c *Chunker) CountTokens(text string) int {
	if c.enc == nil {
		return (len(text) + charsPerTokenApprox - 1) / charsPerTokenApprox
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Chunk splits text into overlapping windows. Pure function of
// (text, ChunkSize, Overlap): identical inputs always produce identical
// chunks. Empty text produces no chunks.
func (c *Chunker) Chunk(text string) []string {
	if text == "" {
		return nil
	}
	if c.enc == nil {
		return c.chunkByChars(text)
	}

	tokens := c.enc.Encode(text, nil, nil)
	if len(tokens) <= c.ChunkSize {
		return []string{text}
	}
	step := c.ChunkSize - c.Overlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + c.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, c.enc.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return chunks
}

func (c *Chunker) chunkByChars(text string) []string {
	size := c.ChunkSize * charsPerTokenApprox
	overlap := c.Overlap * charsPerTokenApprox
	if len(text) <= size {
		return []string{text}
	}
	step := size - overlap
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}
