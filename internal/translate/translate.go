// Package translate generates and applies field mappings between adjacent
// pipeline steps.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"nexus/internal/graph"
	"nexus/internal/metrics"
	"nexus/internal/oracle"
	"nexus/pkg/logging"
)

// Field mapping origins.
const (
	OriginOutput  = "output"
	OriginContext = "context"
)

// FieldMapping moves one value into the target input. Origin selects where
// the value comes from; an empty SourceField always means the run context.
type FieldMapping struct {
	TargetField    string `json:"target_field"`
	SourceField    string `json:"source_field"`
	Transformation string `json:"transformation,omitempty"`
	Origin         string `json:"source"`
	Required       bool   `json:"required"`
}

// Spec is the oracle-generated mapping between one operation's output and
// the next operation's input.
type Spec struct {
	Mappings            []FieldMapping `json:"mappings"`
	ContextFieldsNeeded []string       `json:"context_fields_needed,omitempty"`
}

// SpecStore persists generated specs across restarts. Implementations keyed
// by the edge's stored row; a load miss is reported as an error or an empty
// string, both of which the engine treats as "generate again".
type SpecStore interface {
	SaveTranslationSpec(ctx context.Context, edge *graph.Edge, spec string) error
	LoadTranslationSpec(ctx context.Context, edge *graph.Edge) (string, error)
}

// Engine generates and caches translation specs. Specs are cached per edge
// compound key for the process lifetime; a non-nil store additionally
// persists them so restarts skip regeneration.
type Engine struct {
	reasoner oracle.SemanticOracle
	store    SpecStore

	mu    sync.Mutex
	cache map[string]*Spec
}

// New creates an engine around the given oracle. store may be nil.
func New(reasoner oracle.SemanticOracle, store SpecStore) *Engine {
	return &Engine{
		reasoner: reasoner,
		store:    store,
		cache:    make(map[string]*Spec),
	}
}

// GenerateSpec returns the mapping spec for the given edge, generating it
// from a live sample of source output and the target's input schema on the
// first request. A response that fails structured decode yields an empty
// spec and is not cached, so the next run retries generation.
func (e *Engine) GenerateSpec(ctx context.Context, edge *graph.Edge, sourceOutput, targetSchema map[string]interface{}) (*Spec, error) {
	key := edge.Key()

	e.mu.Lock()
	cached, ok := e.cache[key]
	e.mu.Unlock()
	if ok {
		return cached, nil
	}

	if spec := e.loadStored(ctx, edge); spec != nil {
		logging.Debug("Translator", "Loaded stored spec for %s", key)
		e.put(key, spec)
		return spec, nil
	}

	raw, err := e.reasoner.Reason(ctx, specPrompt(edge, sourceOutput, targetSchema))
	if err != nil {
		return nil, fmt.Errorf("generating translation spec for %s: %w", key, err)
	}

	spec := &Spec{}
	if res := oracle.Decode(raw, spec); !res.OK {
		metrics.ParseFallback("translation")
		logging.Warn("Translator", "Spec for %s did not decode, passing data through unmapped", key)
		return &Spec{}, nil
	}

	logging.Debug("Translator", "Generated spec for %s with %d mappings", key, len(spec.Mappings))
	e.put(key, spec)
	e.persist(ctx, edge, spec)
	return spec, nil
}

func (e *Engine) put(key string, spec *Spec) {
	e.mu.Lock()
	e.cache[key] = spec
	e.mu.Unlock()
}

func (e *Engine) loadStored(ctx context.Context, edge *graph.Edge) *Spec {
	if e.store == nil {
		return nil
	}
	stored, err := e.store.LoadTranslationSpec(ctx, edge)
	if err != nil || stored == "" {
		return nil
	}
	spec := &Spec{}
	if json.Unmarshal([]byte(stored), spec) != nil {
		return nil
	}
	return spec
}

func (e *Engine) persist(ctx context.Context, edge *graph.Edge, spec *Spec) {
	if e.store == nil {
		return
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return
	}
	if err := e.store.SaveTranslationSpec(ctx, edge, string(data)); err != nil {
		logging.Warn("Translator", "Persisting spec for %s failed: %v", edge.Key(), err)
	}
}

// Apply transforms source output into target input per the spec. Context
// mappings resolve the target field name first and fall back to the source
// field name. Values that are nil or "" are omitted rather than written.
func Apply(spec *Spec, sourceOutput, runContext map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	if spec == nil {
		return result
	}

	for _, mapping := range spec.Mappings {
		var value interface{}
		if mapping.Origin == OriginContext || mapping.SourceField == "" {
			value = runContext[mapping.TargetField]
			if value == nil {
				value = runContext[mapping.SourceField]
			}
		} else {
			value = sourceOutput[mapping.SourceField]
		}

		if value == nil || value == "" {
			continue
		}
		result[mapping.TargetField] = value
	}
	return result
}

// specPrompt renders the generation request for one edge. The live source
// output shows the oracle real field names instead of schema guesses.
func specPrompt(edge *graph.Edge, sourceOutput, targetSchema map[string]interface{}) string {
	required := targetSchema["required"]
	if required == nil {
		required = []interface{}{}
	}
	requiredJSON, err := json.Marshal(required)
	if err != nil {
		requiredJSON = []byte("[]")
	}

	return fmt.Sprintf(`You are a data transformation expert. Generate a mapping specification to transform data from one tool's output to another tool's input.

SOURCE: %s.%s
SOURCE OUTPUT (actual data):
%s

TARGET: %s.%s
TARGET INPUT SCHEMA:
%s

REQUIRED TARGET FIELDS: %s

HINT: %s

Generate a JSON mapping specification in EXACTLY this format:
{
    "mappings": [
        {
            "target_field": "field name in target input",
            "source_field": "field name from source output, or null if from context",
            "transformation": "description of any transformation needed, or 'direct' if just copy",
            "source": "output or context",
            "required": true or false
        }
    ],
    "context_fields_needed": ["list of fields that must come from user/pipeline context"]
}

IMPORTANT RULES:
- ONLY map fields that are in the REQUIRED list, unless there is clear data for optional fields
- Do NOT include optional fields that have defaults (like max_sentences, limit, etc.)
- If a field is optional and you have no specific value for it, LEAVE IT OUT entirely
`,
		edge.SourceServer, edge.SourceOperation, marshalJSON(sourceOutput),
		edge.TargetServer, edge.TargetOperation, marshalJSON(targetSchema),
		requiredJSON, edge.TranslationHint)
}

func marshalJSON(v map[string]interface{}) string {
	if len(v) == 0 {
		return "{}"
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
