package graph

import "fmt"

// Compatibility classifications for a validated edge.
const (
	CompatDirect       = "direct"
	CompatTranslatable = "translatable"
	CompatIncompatible = "incompatible"
)

// Edge is a directed, oracle-validated claim that one operation's output can
// feed another operation's input. Incompatible verdicts are never persisted,
// so a stored edge is always traversable.
type Edge struct {
	SourceServer    string  `json:"source_server"`
	SourceOperation string  `json:"source_operation"`
	TargetServer    string  `json:"target_server"`
	TargetOperation string  `json:"target_operation"`
	Type            string  `json:"compatibility_type"`
	Confidence      float64 `json:"confidence"`
	TranslationHint string  `json:"translation_hint,omitempty"`
}

// Key returns the compound identity "src.op->dst.op". It is the sole
// idempotency key for storage upserts, dedup during builds, and translation
// spec caching.
func (e *Edge) Key() string {
	return fmt.Sprintf("%s.%s->%s.%s", e.SourceServer, e.SourceOperation, e.TargetServer, e.TargetOperation)
}

// SourceKey returns the "server.operation" key of the edge's source.
func (e *Edge) SourceKey() string {
	return fmt.Sprintf("%s.%s", e.SourceServer, e.SourceOperation)
}

// TargetKey returns the "server.operation" key of the edge's target.
func (e *Edge) TargetKey() string {
	return fmt.Sprintf("%s.%s", e.TargetServer, e.TargetOperation)
}
