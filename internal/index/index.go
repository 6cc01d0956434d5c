package index

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"nexus/internal/oracle"
	"nexus/internal/registry"
	"nexus/pkg/logging"
)

// Candidate is an ordered cross-server operation pair whose produces vector
// scored at or above the similarity threshold against the target's consumes
// vector. Candidates are unvalidated; the graph builder decides which become
// edges.
type Candidate struct {
	SourceKey  string
	TargetKey  string
	Similarity float64
}

// EmbeddingIndex caches a produces and a consumes vector per operation so
// candidate discovery costs one pass of cosine comparisons instead of a
// pairwise sweep of oracle calls.
//
// The index has no locking: graph builds are strictly sequential, so there
// is a single writer per process.
type EmbeddingIndex struct {
	embedder oracle.EmbeddingOracle

	produces map[string][]float32
	consumes map[string][]float32

	// keys preserves insertion order so candidate enumeration is
	// deterministic.
	keys []string
}

// New creates an empty index backed by the given embedding oracle.
func New(embedder oracle.EmbeddingOracle) *EmbeddingIndex {
	return &EmbeddingIndex{
		embedder: embedder,
		produces: make(map[string][]float32),
		consumes: make(map[string][]float32),
	}
}

// IndexServer embeds the produces and consumes descriptions of every
// operation the server exposes. Operations already indexed are skipped, so
// repeated calls are cheap no-ops.
func (x *EmbeddingIndex) IndexServer(ctx context.Context, record *registry.ServerRecord) error {
	summary := ""
	if record.Profile != nil {
		summary = record.Profile.PlainLanguageSummary
	}

	for _, op := range record.Operations {
		key := record.OperationKey(op.Name)
		if _, ok := x.produces[key]; ok {
			continue
		}

		logging.Debug("Index", "Generating embeddings for %s", key)

		producesVec, err := x.embedder.Embed(ctx, producesText(record.Name, op, summary))
		if err != nil {
			return fmt.Errorf("embedding produces text for %s: %w", key, err)
		}
		consumesVec, err := x.embedder.Embed(ctx, consumesText(record.Name, op, summary))
		if err != nil {
			return fmt.Errorf("embedding consumes text for %s: %w", key, err)
		}

		x.produces[key] = producesVec
		x.consumes[key] = consumesVec
		x.keys = append(x.keys, key)
	}
	return nil
}

// IndexAll indexes every server, in name order so embedding calls happen in
// a deterministic sequence.
func (x *EmbeddingIndex) IndexAll(ctx context.Context, servers []*registry.ServerRecord) error {
	ordered := make([]*registry.ServerRecord, len(servers))
	copy(ordered, servers)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	for _, record := range ordered {
		if err := x.IndexServer(ctx, record); err != nil {
			return err
		}
	}
	logging.Info("Index", "Indexed %d operations", len(x.keys))
	return nil
}

// FindCandidates compares every ordered cross-server pair of operations,
// scoring the source's produces vector against the target's consumes vector.
// Pairs at or above threshold are returned sorted by descending similarity
// (key order breaks ties), capped at topKPerNode per indexed operation.
// Fewer than two indexed operations yield no candidates.
func (x *EmbeddingIndex) FindCandidates(threshold float64, topKPerNode int) []Candidate {
	if len(x.keys) < 2 {
		return nil
	}

	var candidates []Candidate
	for _, sourceKey := range x.keys {
		sourceServer, _ := SplitKey(sourceKey)
		sourceVec := x.produces[sourceKey]

		for _, targetKey := range x.keys {
			targetServer, _ := SplitKey(targetKey)
			if sourceServer == targetServer {
				continue
			}

			sim := cosine(sourceVec, x.consumes[targetKey])
			if sim >= threshold {
				candidates = append(candidates, Candidate{
					SourceKey:  sourceKey,
					TargetKey:  targetKey,
					Similarity: sim,
				})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		if candidates[i].SourceKey != candidates[j].SourceKey {
			return candidates[i].SourceKey < candidates[j].SourceKey
		}
		return candidates[i].TargetKey < candidates[j].TargetKey
	})

	if limit := topKPerNode * len(x.keys); len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// Stats reports the index contents.
type Stats struct {
	IndexedOperations int `json:"indexed_operations"`
	ProducesVectors   int `json:"produces_vectors"`
	ConsumesVectors   int `json:"consumes_vectors"`
}

// Stats returns counters describing what has been indexed.
func (x *EmbeddingIndex) Stats() Stats {
	return Stats{
		IndexedOperations: len(x.keys),
		ProducesVectors:   len(x.produces),
		ConsumesVectors:   len(x.consumes),
	}
}

// SplitKey splits a "server.operation" key at the first dot. Server names
// never contain dots; operation names may.
func SplitKey(key string) (server, operation string) {
	if i := strings.Index(key, "."); i >= 0 {
		return key[:i], key[i+1:]
	}
	return key, ""
}

// producesText builds the embedding text describing what an operation emits.
func producesText(serverName string, op registry.Operation, profileSummary string) string {
	parts := []string{
		fmt.Sprintf("This tool (%s.%s) produces output.", serverName, op.Name),
		fmt.Sprintf("Tool description: %s", op.Description),
		fmt.Sprintf("Server context: %s", profileSummary),
	}
	if len(op.OutputSchema) > 0 {
		schema, _ := json.Marshal(op.OutputSchema)
		parts = append(parts, fmt.Sprintf("Output schema: %s", schema))
	} else {
		parts = append(parts, fmt.Sprintf("Output: derived from %s", op.Description))
	}
	return strings.Join(parts, "\n")
}

// consumesText builds the embedding text describing what an operation needs.
func consumesText(serverName string, op registry.Operation, profileSummary string) string {
	parts := []string{
		fmt.Sprintf("This tool (%s.%s) requires input.", serverName, op.Name),
		fmt.Sprintf("Tool description: %s", op.Description),
		fmt.Sprintf("Server context: %s", profileSummary),
	}
	if len(op.InputSchema) > 0 {
		schema, _ := json.Marshal(op.InputSchema)
		parts = append(parts, fmt.Sprintf("Input schema: %s", schema))
	}
	return strings.Join(parts, "\n")
}

// cosine returns the cosine similarity of two vectors. Vectors of different
// lengths cannot feed each other and score 0.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
