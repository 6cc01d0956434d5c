package oracle

import (
	"context"
	"errors"
)

// SemanticOracle answers reasoning prompts with free-form text. Responses
// are expected to carry JSON but are never trusted to; call sites Decode
// the text and branch explicitly on the result.
type SemanticOracle interface {
	Reason(ctx context.Context, prompt string) (string, error)
}

// EmbeddingOracle produces embedding vectors for text.
type EmbeddingOracle interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Oracle is the full provider surface: reasoning for edge validation,
// discovery, translation and profiling, embeddings for the similarity index.
type Oracle interface {
	SemanticOracle
	EmbeddingOracle
}

var (
	// ErrRateLimited marks provider throttling. The Client retries it.
	ErrRateLimited = errors.New("rate limited by provider")

	// ErrNoEmbeddings is returned by providers without an embedding
	// endpoint. Such providers can serve reasoning but not graph
	// construction, which needs the similarity index.
	ErrNoEmbeddings = errors.New("provider has no embedding endpoint")
)
