package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
)

// DefaultEmbeddingDim is the vector width produced by MockOracle when no
// explicit dimension is configured. Small on purpose; tests only need
// direction, not provider-sized vectors.
const DefaultEmbeddingDim = 8

// MockOracle is a scripted language model for tests. Reason returns canned
// responses in order; Embed returns deterministic vectors derived from the
// input text, so identical texts always embed identically and similarity
// comparisons are stable across runs.
//
// The zero value is usable: Reason returns "" and Embed returns hash-based
// vectors of DefaultEmbeddingDim width.
type MockOracle struct {
	mu sync.Mutex

	// Responses are consumed one per Reason call. When exhausted, the last
	// response repeats.
	Responses []string

	// ReasonErr, when set, is returned by every Reason call.
	ReasonErr error

	// ReasonFunc overrides Responses when set.
	ReasonFunc func(prompt string) (string, error)

	// Embeddings maps exact input text to a fixed vector.
	Embeddings map[string][]float32

	// EmbedFunc overrides Embeddings and the hash fallback when set.
	EmbedFunc func(text string) ([]float32, error)

	// EmbedErr, when set, is returned by every Embed call.
	EmbedErr error

	// Dim is the width of hash-based vectors (default DefaultEmbeddingDim).
	Dim int

	// Recorded calls, in order.
	ReasonCalls []string
	EmbedCalls  []string

	next int
}

// Reason returns the next scripted response.
func (o *MockOracle) Reason(ctx context.Context, prompt string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.ReasonCalls = append(o.ReasonCalls, prompt)

	if o.ReasonErr != nil {
		return "", o.ReasonErr
	}
	if o.ReasonFunc != nil {
		return o.ReasonFunc(prompt)
	}
	if len(o.Responses) == 0 {
		return "", nil
	}
	idx := o.next
	if idx >= len(o.Responses) {
		idx = len(o.Responses) - 1
	}
	o.next++
	return o.Responses[idx], nil
}

// Embed returns a deterministic vector for the given text.
func (o *MockOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.EmbedCalls = append(o.EmbedCalls, text)

	if o.EmbedErr != nil {
		return nil, o.EmbedErr
	}
	if o.EmbedFunc != nil {
		return o.EmbedFunc(text)
	}
	if v, ok := o.Embeddings[text]; ok {
		return v, nil
	}
	return HashVector(text, o.dim()), nil
}

func (o *MockOracle) dim() int {
	if o.Dim > 0 {
		return o.Dim
	}
	return DefaultEmbeddingDim
}

// HashVector derives a unit-length vector of the given width from text.
// Similar texts do not produce similar vectors; the only guarantee is
// determinism. Tests that need controlled similarity should use the
// Embeddings map or EmbedFunc instead.
func HashVector(text string, dim int) []float32 {
	v := make([]float32, dim)
	h := fnv.New64a()
	for i := 0; i < dim; i++ {
		h.Write([]byte(text))
		h.Write([]byte{byte(i)})
		// Map the hash onto [-1, 1).
		v[i] = float32(h.Sum64()%1000)/500.0 - 1
	}
	// Normalize so cosine comparisons behave like real embeddings.
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}
