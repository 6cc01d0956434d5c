package oracle

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"
)

// reasoningMaxTokens bounds Anthropic responses. Plans and translation
// specs are small JSON documents; this leaves generous headroom.
const reasoningMaxTokens = 2048

// AnthropicOracle talks to the Anthropic API. It serves reasoning only:
// the API exposes no embedding endpoint, so Embed always returns
// ErrNoEmbeddings and graph construction must use another provider.
type AnthropicOracle struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicOracle creates an Anthropic-backed provider.
func NewAnthropicOracle(apiKey, model string) *AnthropicOracle {
	return &AnthropicOracle{
		client: anthropic.NewClient(apiKey),
		model:  model,
	}
}

// Reason sends the prompt as a single user message and returns the first
// content block.
func (o *AnthropicOracle) Reason(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(o.model),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(prompt),
				},
			},
		},
		MaxTokens: reasoningMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages failed: %w", err)
	}
	if len(resp.Content) > 0 && resp.Content[0].Text != nil {
		return *resp.Content[0].Text, nil
	}
	return "", fmt.Errorf("anthropic returned no content")
}

// Embed always fails with ErrNoEmbeddings.
func (o *AnthropicOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrNoEmbeddings
}
