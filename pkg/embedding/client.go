// Package embedding wraps the OpenAI embeddings API behind the pipeline's
// rate-limited, retried fabric.
package embedding

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-graph/internal/fetcher"
	"github.com/sells-group/edgar-graph/internal/resilience"
)

// Client defines the embedding provider operations.
type Client interface {
	// Embed returns one vector per input text, preserving order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the model name in use.
	Model() string

	// Dimension returns the expected vector dimension.
	Dimension() int
}

type openaiClient struct {
	api      *openai.Client
	limiters *fetcher.Limiters
	model    string
	dim      int
}

// Option configures the embedding client.
type Option func(*openaiClient)

// WithBaseURL overrides the API endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *openaiClient) {
		cfg := openai.DefaultConfig("test")
		cfg.BaseURL = u
		c.api = openai.NewClientWithConfig(cfg)
	}
}

// New creates an embedding client.
func New(key, model string, dim int, limiters *fetcher.Limiters, opts ...Option) Client {
	if limiters == nil {
		limiters = fetcher.SharedLimiters()
	}
	c := &openaiClient{
		api:      openai.NewClient(key),
		limiters: limiters,
		model:    model,
		dim:      dim,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *openaiClient) Model() string  { return c.model }
func (c *openaiClient) Dimension() int { return c.dim }

func (c *openaiClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := c.limiters.Wait(ctx, fetcher.SourceEmbeddings); err != nil {
		return nil, err
	}

	// One retry at most: embedding calls are billed.
	resp, err := resilience.DoVal(ctx, resilience.PaidConfig(),
		func(ctx context.Context) (openai.EmbeddingResponse, error) {
			return c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: texts,
				Model: openai.EmbeddingModel(c.model),
			})
		})
	if err != nil {
		return nil, eris.Wrap(err, "embedding: create embeddings")
	}

	if len(resp.Data) != len(texts) {
		return nil, eris.Errorf("embedding: got %d vectors for %d inputs",
			len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, eris.Errorf("embedding: response index %d out of range", d.Index)
		}
		if len(d.Embedding) != c.dim {
			return nil, eris.Errorf("embedding: dimension %d, expected %d",
				len(d.Embedding), c.dim)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
