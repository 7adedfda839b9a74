// Package anthropic provides a minimal Claude client for optional answer
// synthesis over the composed retrieval context. It is a collaborator, not
// part of the retrieval core.
package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Client defines the synthesis operation.
type Client interface {
	// Synthesize answers the question from the composed retrieval context.
	Synthesize(ctx context.Context, question, retrievalContext string) (string, error)
}

type sdkClient struct {
	api   sdk.Client
	model string
}

// New creates a synthesis client.
func New(key, model string) Client {
	return &sdkClient{
		api:   sdk.NewClient(option.WithAPIKey(key)),
		model: model,
	}
}

const systemPrompt = `You answer questions about U.S. public companies using only the
provided filing excerpts and graph evidence. Cite companies by name. If the
context does not contain the answer, say so.`

func (c *sdkClient) Synthesize(ctx context.Context, question, retrievalContext string) (string, error) {
	resp, err := c.api.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: 1024,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(
				"Context:\n\n" + retrievalContext + "\n\nQuestion: " + question)),
		},
	})
	if err != nil {
		return "", eris.Wrap(err, "anthropic: create message")
	}

	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	if out == "" {
		return "", eris.New("anthropic: empty response")
	}
	return out, nil
}
