package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"nexus/internal/config"
	"nexus/internal/index"
	"nexus/internal/metrics"
	"nexus/internal/oracle"
	"nexus/internal/registry"
	"nexus/pkg/logging"
)

// EdgeStore persists validated edges. internal/store provides the SQLite
// implementation.
type EdgeStore interface {
	SaveEdge(ctx context.Context, edge *Edge) error
	LoadAllEdges(ctx context.Context) ([]*Edge, error)
	EdgeExists(ctx context.Context, sourceServer, sourceOperation, targetServer, targetOperation string) (bool, error)
	ClearEdges(ctx context.Context) error
}

// Options tune candidate discovery and traversal. Zero values fall back to
// the config defaults.
type Options struct {
	SimilarityThreshold float64
	TopKPerNode         int
	MaxHops             int
}

func (o Options) withDefaults() Options {
	if o.SimilarityThreshold == 0 {
		o.SimilarityThreshold = config.DefaultSimilarityThreshold
	}
	if o.TopKPerNode == 0 {
		o.TopKPerNode = config.DefaultTopKPerNode
	}
	if o.MaxHops == 0 {
		o.MaxHops = config.DefaultMaxHops
	}
	return o
}

// BuildStats summarizes one BuildEdges pass.
type BuildStats struct {
	Candidates int `json:"candidates"`
	NewEdges   int `json:"new_edges"`
	Cached     int `json:"cached"`
	Rejected   int `json:"rejected"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

// Graph owns the validated capability edges between registered operations.
//
// Builds are strictly sequential (one writer), but the broker facade reads
// the edge set from concurrent MCP sessions, so the in-memory set sits
// behind an RWMutex and is swapped wholesale on reload.
type Graph struct {
	store    EdgeStore
	index    *index.EmbeddingIndex
	reasoner oracle.SemanticOracle
	opts     Options

	mu    sync.RWMutex
	edges []*Edge
	byKey map[string]*Edge
}

// New creates a graph around the given store, embedding index, and
// reasoning oracle.
func New(store EdgeStore, idx *index.EmbeddingIndex, reasoner oracle.SemanticOracle, opts Options) *Graph {
	return &Graph{
		store:    store,
		index:    idx,
		reasoner: reasoner,
		opts:     opts.withDefaults(),
		byKey:    make(map[string]*Edge),
	}
}

// Load replaces the in-memory edge set with the persisted one. Called once
// at startup and again after every build.
func (g *Graph) Load(ctx context.Context) error {
	edges, err := g.store.LoadAllEdges(ctx)
	if err != nil {
		return fmt.Errorf("loading edges: %w", err)
	}
	g.setEdges(edges)
	if len(edges) > 0 {
		logging.Info("Graph", "Loaded %d edges from storage", len(edges))
	}
	return nil
}

// BuildEdges discovers and validates connections between the given servers.
//
// A non-incremental build clears persisted edges first. Candidates are
// narrowed by embedding similarity, candidates whose compound key is already
// stored are skipped, and the rest are judged by the oracle. Incompatible
// verdicts (including responses that fail structured decode) are discarded;
// everything else is upserted by compound key, so re-validation overwrites
// confidence and hint. The in-memory set is reloaded from storage at the
// end.
func (g *Graph) BuildEdges(ctx context.Context, servers []*registry.ServerRecord, incremental bool) (BuildStats, error) {
	var stats BuildStats

	if !incremental {
		if err := g.store.ClearEdges(ctx); err != nil {
			return stats, fmt.Errorf("clearing edges: %w", err)
		}
		g.setEdges(nil)
	}

	logging.Info("Graph", "Building capability graph across %d servers", len(servers))

	if err := g.index.IndexAll(ctx, servers); err != nil {
		return stats, err
	}

	candidates := g.index.FindCandidates(g.opts.SimilarityThreshold, g.opts.TopKPerNode)
	stats.Candidates = len(candidates)
	logging.Info("Graph", "Found %d candidate pairs above threshold %.2f", len(candidates), g.opts.SimilarityThreshold)

	byName := make(map[string]*registry.ServerRecord, len(servers))
	for _, record := range servers {
		byName[record.Name] = record
	}

	for _, candidate := range candidates {
		srcServerName, srcOpName := index.SplitKey(candidate.SourceKey)
		tgtServerName, tgtOpName := index.SplitKey(candidate.TargetKey)

		if incremental {
			exists, err := g.store.EdgeExists(ctx, srcServerName, srcOpName, tgtServerName, tgtOpName)
			if err != nil {
				return stats, fmt.Errorf("checking edge %s->%s: %w", candidate.SourceKey, candidate.TargetKey, err)
			}
			if exists {
				stats.Cached++
				continue
			}
		}

		srcServer, tgtServer := byName[srcServerName], byName[tgtServerName]
		if srcServer == nil || tgtServer == nil {
			continue
		}
		srcOp, tgtOp := srcServer.Operation(srcOpName), tgtServer.Operation(tgtOpName)
		if srcOp == nil || tgtOp == nil {
			continue
		}

		logging.Debug("Graph", "Validating %s -> %s (similarity %.2f)",
			candidate.SourceKey, candidate.TargetKey, candidate.Similarity)

		edge, err := g.evaluateEdge(ctx, srcServer, srcOp, tgtServer, tgtOp)
		if err != nil {
			logging.Warn("Graph", "Validating %s -> %s failed: %v", candidate.SourceKey, candidate.TargetKey, err)
			stats.Failed++
			continue
		}

		metrics.EdgeValidated(edge.Type)
		if edge.Type == CompatIncompatible {
			stats.Rejected++
			continue
		}

		if err := g.store.SaveEdge(ctx, edge); err != nil {
			return stats, fmt.Errorf("saving edge %s: %w", edge.Key(), err)
		}
		stats.NewEdges++
		logging.Debug("Graph", "Edge %s is %s (confidence %.2f)", edge.Key(), edge.Type, edge.Confidence)
	}

	if err := g.Load(ctx); err != nil {
		return stats, err
	}
	stats.Total = g.Len()

	logging.Info("Graph", "Graph build complete: %d new, %d cached, %d rejected, %d failed, %d total",
		stats.NewEdges, stats.Cached, stats.Rejected, stats.Failed, stats.Total)
	return stats, nil
}

// evaluateEdge asks the oracle whether the source operation's output can
// feed the target operation's input. A response that fails structured
// decode is a conservative incompatible verdict, not an error.
func (g *Graph) evaluateEdge(ctx context.Context, src *registry.ServerRecord, srcOp *registry.Operation, tgt *registry.ServerRecord, tgtOp *registry.Operation) (*Edge, error) {
	raw, err := g.reasoner.Reason(ctx, edgePrompt(src, srcOp, tgt, tgtOp))
	if err != nil {
		return nil, err
	}

	edge := &Edge{
		SourceServer:    src.Name,
		SourceOperation: srcOp.Name,
		TargetServer:    tgt.Name,
		TargetOperation: tgtOp.Name,
	}

	var verdict struct {
		CompatibilityType string  `json:"compatibility_type"`
		Confidence        float64 `json:"confidence"`
		TranslationHint   string  `json:"translation_hint"`
	}
	if res := oracle.Decode(raw, &verdict); !res.OK {
		metrics.ParseFallback("edge_validation")
		edge.Type = CompatIncompatible
		return edge, nil
	}

	edge.Type = verdict.CompatibilityType
	if edge.Type == "" {
		edge.Type = CompatIncompatible
	}
	edge.Confidence = verdict.Confidence
	edge.TranslationHint = verdict.TranslationHint
	return edge, nil
}

// edgePrompt renders the compatibility question for one candidate pair.
func edgePrompt(src *registry.ServerRecord, srcOp *registry.Operation, tgt *registry.ServerRecord, tgtOp *registry.Operation) string {
	srcSummary, tgtSummary := "unknown", "unknown"
	if src.Profile != nil {
		srcSummary = src.Profile.PlainLanguageSummary
	}
	if tgt.Profile != nil {
		tgtSummary = tgt.Profile.PlainLanguageSummary
	}

	// The source side shows its output schema when declared; many servers
	// declare only inputs, in which case the input schema still tells the
	// oracle what kind of data the operation works on.
	srcSchemaLabel, srcSchema := "Output schema", srcOp.OutputSchema
	if len(srcSchema) == 0 {
		srcSchemaLabel, srcSchema = "Input schema", srcOp.InputSchema
	}

	return fmt.Sprintf(`You are evaluating whether the output of one MCP tool can feed into the input of another.

SOURCE TOOL:
- Server: %s
- Tool: %s
- Description: %s
- Server summary: %s
- %s: %s

TARGET TOOL:
- Server: %s
- Tool: %s
- Description: %s
- Server summary: %s
- Input schema: %s

Can the output of the SOURCE tool meaningfully feed into the input of the TARGET tool?

Return JSON in EXACTLY this format, nothing else:
{
    "compatibility_type": "direct or translatable or incompatible",
    "confidence": 0.85,
    "translation_hint": "brief description of what mapping is needed, or empty string if direct or incompatible"
}

Rules:
- "direct" means output fields map to input fields with minimal renaming
- "translatable" means data is semantically related but needs transformation
- "incompatible" means output has nothing useful for the input
- confidence is 0.0 to 1.0
`,
		src.Name, srcOp.Name, srcOp.Description, srcSummary, srcSchemaLabel, marshalSchema(srcSchema),
		tgt.Name, tgtOp.Name, tgtOp.Description, tgtSummary, marshalSchema(tgtOp.InputSchema))
}

func marshalSchema(schema map[string]interface{}) string {
	if len(schema) == 0 {
		return "{}"
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// setEdges swaps in a new edge set.
func (g *Graph) setEdges(edges []*Edge) {
	byKey := make(map[string]*Edge, len(edges))
	for _, edge := range edges {
		byKey[edge.Key()] = edge
	}

	g.mu.Lock()
	g.edges = edges
	g.byKey = byKey
	g.mu.Unlock()
}

// Edges returns the current edge set. The slice is fresh; the edges are
// shared and read-only.
func (g *Graph) Edges() []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Edge(nil), g.edges...)
}

// EdgeByKey resolves a compound key to its edge, or nil.
func (g *Graph) EdgeByKey(key string) *Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.byKey[key]
}

// Len returns the number of edges currently loaded.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// EdgesFrom returns edges whose source is the given server, optionally
// narrowed to one operation (empty operation matches all).
func (g *Graph) EdgesFrom(server, operation string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*Edge
	for _, edge := range g.edges {
		if edge.SourceServer != server {
			continue
		}
		if operation != "" && edge.SourceOperation != operation {
			continue
		}
		out = append(out, edge)
	}
	return out
}

// EdgesTo returns edges whose target is the given server, optionally
// narrowed to one operation (empty operation matches all).
func (g *Graph) EdgesTo(server, operation string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*Edge
	for _, edge := range g.edges {
		if edge.TargetServer != server {
			continue
		}
		if operation != "" && edge.TargetOperation != operation {
			continue
		}
		out = append(out, edge)
	}
	return out
}

// Stats describes the loaded graph.
type Stats struct {
	TotalEdges        int         `json:"total_edges"`
	DirectEdges       int         `json:"direct_edges"`
	TranslatableEdges int         `json:"translatable_edges"`
	AvgConfidence     float64     `json:"avg_confidence"`
	Index             index.Stats `json:"index"`
}

// Stats returns aggregate counters over the loaded edges.
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := Stats{TotalEdges: len(g.edges), Index: g.index.Stats()}
	var confidence float64
	for _, edge := range g.edges {
		confidence += edge.Confidence
		switch edge.Type {
		case CompatDirect:
			stats.DirectEdges++
		case CompatTranslatable:
			stats.TranslatableEdges++
		}
	}
	if len(g.edges) > 0 {
		stats.AvgConfidence = confidence / float64(len(g.edges))
	}
	return stats
}

// SortedByConfidence returns the edges ordered by descending confidence,
// with the compound key as tie-break. Used by display surfaces.
func (g *Graph) SortedByConfidence() []*Edge {
	edges := g.Edges()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Confidence != edges[j].Confidence {
			return edges[i].Confidence > edges[j].Confidence
		}
		return edges[i].Key() < edges[j].Key()
	})
	return edges
}
