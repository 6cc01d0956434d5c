package oracle

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiOracle talks to the Gemini API for both reasoning and embeddings.
type GeminiOracle struct {
	client     *genai.Client
	model      string
	embedModel string
}

// NewGeminiOracle creates a Gemini-backed provider.
func NewGeminiOracle(ctx context.Context, apiKey, model, embedModel string) (*GeminiOracle, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiOracle{
		client:     client,
		model:      model,
		embedModel: embedModel,
	}, nil
}

// Reason sends the prompt to the generative model and returns the first
// text candidate.
func (o *GeminiOracle) Reason(ctx context.Context, prompt string) (string, error) {
	model := o.client.GenerativeModel(o.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil && len(resp.Candidates[0].Content.Parts) > 0 {
		if txt, ok := resp.Candidates[0].Content.Parts[0].(genai.Text); ok {
			return string(txt), nil
		}
	}

	return "", fmt.Errorf("gemini returned no text candidates")
}

// Embed returns the embedding vector for the given text.
func (o *GeminiOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	embedModel := o.client.EmbeddingModel(o.embedModel)
	res, err := embedModel.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed failed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini returned no embedding values")
	}
	return res.Embedding.Values, nil
}

// Close releases the underlying API client.
func (o *GeminiOracle) Close() error {
	return o.client.Close()
}
