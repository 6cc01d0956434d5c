package registry

import (
	"fmt"
	"time"
)

// Server status values. A server moves from registered to profiled once the
// semantic profiler has described it; offline marks servers whose operations
// could not be listed on the last attempt.
const (
	StatusRegistered = "registered"
	StatusProfiled   = "profiled"
	StatusOffline    = "offline"
)

// Transport identifies how a tool server is reached.
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

// Operation describes a single tool exposed by a registered server. The
// schemas are stored as decoded JSON Schema documents so the graph builder
// and executor can inspect field names without re-parsing.
type Operation struct {
	Name         string                 `json:"name" yaml:"name"`
	Description  string                 `json:"description" yaml:"description"`
	InputSchema  map[string]interface{} `json:"input_schema,omitempty" yaml:"inputSchema,omitempty"`
	OutputSchema map[string]interface{} `json:"output_schema,omitempty" yaml:"outputSchema,omitempty"`
}

// SemanticProfile is the oracle-produced description of what a server is
// for. Field names follow the JSON the reasoning prompt requests.
type SemanticProfile struct {
	PlainLanguageSummary string   `json:"plain_language_summary" yaml:"plainLanguageSummary"`
	CapabilityTags       []string `json:"capability_tags" yaml:"capabilityTags"`
	InputConcepts        []string `json:"input_concepts" yaml:"inputConcepts"`
	OutputConcepts       []string `json:"output_concepts" yaml:"outputConcepts"`
	UseCases             []string `json:"use_cases" yaml:"useCases"`
	CompatibleWith       []string `json:"compatible_with" yaml:"compatibleWith"`
	Domain               string   `json:"domain" yaml:"domain"`
}

// ServerRecord is the registry's unit of state: one tool server, how to
// reach it, what it exposes, and what the oracle thinks it is for. Records
// handed out by the registry are snapshots; mutate only through the registry.
type ServerRecord struct {
	Name      string            `json:"name" yaml:"name"`
	Command   string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args      []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Transport string            `json:"transport,omitempty" yaml:"transport,omitempty"`
	URL       string            `json:"url,omitempty" yaml:"url,omitempty"`

	Operations []Operation      `json:"operations,omitempty" yaml:"operations,omitempty"`
	Profile    *SemanticProfile `json:"profile,omitempty" yaml:"profile,omitempty"`
	Status     string           `json:"status" yaml:"status"`

	RegisteredAt time.Time `json:"registered_at" yaml:"registeredAt"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updatedAt"`
}

// Operation returns the named operation, or nil if the server does not
// expose it.
func (r *ServerRecord) Operation(name string) *Operation {
	for i := range r.Operations {
		if r.Operations[i].Name == name {
			return &r.Operations[i]
		}
	}
	return nil
}

// OperationKey returns the "server.operation" key used throughout the graph
// and index for the named operation.
func (r *ServerRecord) OperationKey(operation string) string {
	return fmt.Sprintf("%s.%s", r.Name, operation)
}

// Clone returns a deep copy of the record. The registry clones on every
// mutation so that snapshots held by readers never change underneath them.
func (r *ServerRecord) Clone() *ServerRecord {
	if r == nil {
		return nil
	}
	out := *r

	if r.Args != nil {
		out.Args = append([]string(nil), r.Args...)
	}
	if r.Env != nil {
		out.Env = make(map[string]string, len(r.Env))
		for k, v := range r.Env {
			out.Env[k] = v
		}
	}
	if r.Operations != nil {
		out.Operations = make([]Operation, len(r.Operations))
		for i, op := range r.Operations {
			out.Operations[i] = op.clone()
		}
	}
	if r.Profile != nil {
		p := r.Profile.clone()
		out.Profile = &p
	}
	return &out
}

func (o Operation) clone() Operation {
	out := o
	out.InputSchema = cloneSchema(o.InputSchema)
	out.OutputSchema = cloneSchema(o.OutputSchema)
	return out
}

func (p SemanticProfile) clone() SemanticProfile {
	out := p
	out.CapabilityTags = append([]string(nil), p.CapabilityTags...)
	out.InputConcepts = append([]string(nil), p.InputConcepts...)
	out.OutputConcepts = append([]string(nil), p.OutputConcepts...)
	out.UseCases = append([]string(nil), p.UseCases...)
	out.CompatibleWith = append([]string(nil), p.CompatibleWith...)
	return out
}

// cloneSchema copies the top level of a decoded schema document. Nested
// values are shared; nothing in the codebase mutates schema internals.
func cloneSchema(schema map[string]interface{}) map[string]interface{} {
	if schema == nil {
		return nil
	}
	out := make(map[string]interface{}, len(schema))
	for k, v := range schema {
		out[k] = v
	}
	return out
}
