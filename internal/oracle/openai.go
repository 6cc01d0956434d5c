package oracle

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIOracle talks to the OpenAI API for both reasoning and embeddings.
type OpenAIOracle struct {
	client     *openai.Client
	model      string
	embedModel openai.EmbeddingModel
}

// NewOpenAIOracle creates an OpenAI-backed provider.
func NewOpenAIOracle(apiKey, model, embedModel string) *OpenAIOracle {
	return &OpenAIOracle{
		client:     openai.NewClient(apiKey),
		model:      model,
		embedModel: openai.EmbeddingModel(embedModel),
	}
}

// Reason sends the prompt as a single user message and returns the first
// choice.
func (o *OpenAIOracle) Reason(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for the given text.
func (o *OpenAIOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: o.embedModel,
	}
	resp, err := o.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai returned no embedding data")
	}
	return resp.Data[0].Embedding, nil
}
