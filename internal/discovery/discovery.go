// Package discovery plans pipelines from natural language requests.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nexus/internal/graph"
	"nexus/internal/metrics"
	"nexus/internal/oracle"
	"nexus/internal/pipeline"
	"nexus/internal/registry"
	"nexus/pkg/logging"
)

// fallbackRules drive the keyword heuristic used when the planner's
// response cannot be decoded. Order is fixed and mirrors natural data flow:
// acquire, transform, deliver.
var fallbackRules = []struct {
	keywords  []string
	server    string
	operation string
	reason    string
}{
	{[]string{"fetch", "get", "web", "url", "http"}, "web-fetcher", "fetch_url", "Fetch web content"},
	{[]string{"translate", "translation", "language"}, "translator", "translate_text", "Translate content"},
	{[]string{"summar", "condense", "brief"}, "summarizer", "summarize_text", "Summarize content"},
	{[]string{"sentiment", "emotion", "tone", "feel"}, "sentiment-analyzer", "analyze_sentiment", "Analyze sentiment"},
	{[]string{"slack", "post", "send", "message"}, "slack-sender", "send_slack_message", "Post to Slack"},
}

// Engine plans pipelines over a point-in-time view of the registry and the
// capability graph. Engines are cheap; callers build one per request from
// fresh snapshots.
type Engine struct {
	servers  []*registry.ServerRecord
	edges    []*graph.Edge
	reasoner oracle.SemanticOracle
}

// New creates a planner over the given snapshots.
func New(servers []*registry.ServerRecord, edges []*graph.Edge, reasoner oracle.SemanticOracle) *Engine {
	return &Engine{servers: servers, edges: edges, reasoner: reasoner}
}

type plan struct {
	Pipeline   []planStep `json:"pipeline"`
	Confidence *float64   `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
}

type planStep struct {
	Server string `json:"server"`
	Tool   string `json:"tool"`
	Reason string `json:"reason"`
}

// Discover turns a natural language request into an executable pipeline.
// A planner response that fails structured decode falls back to keyword
// matching; an oracle transport failure is the caller's problem.
func (e *Engine) Discover(ctx context.Context, request string) (*pipeline.Pipeline, error) {
	logging.Info("Discovery", "Analyzing request: %q", request)

	raw, err := e.reasoner.Reason(ctx, e.prompt(request))
	if err != nil {
		return nil, fmt.Errorf("planning pipeline: %w", err)
	}

	var parsed plan
	if res := oracle.Decode(raw, &parsed); !res.OK {
		metrics.ParseFallback("discovery")
		logging.Warn("Discovery", "Planner response did not decode, using keyword fallback")
		parsed = keywordPlan(request)
	}

	confidence := 0.5
	if parsed.Confidence != nil {
		confidence = *parsed.Confidence
	}

	result := &pipeline.Pipeline{Confidence: confidence, Reasoning: parsed.Reasoning}
	for _, entry := range parsed.Pipeline {
		if entry.Server == "" || entry.Tool == "" {
			continue
		}
		step := pipeline.Step{Server: entry.Server, Operation: entry.Tool, Reason: entry.Reason}
		if n := len(result.Steps); n > 0 {
			prev := result.Steps[n-1]
			step.Edge = e.findEdge(prev.Server, prev.Operation, entry.Server, entry.Tool)
		}
		result.Steps = append(result.Steps, step)
		logging.Info("Discovery", "Step %d: %s (%s)", len(result.Steps), step.Key(), step.Reason)
	}
	return result, nil
}

// findEdge resolves the connection between two steps: the exact compound
// key when validated, otherwise the first edge between the two servers.
func (e *Engine) findEdge(sourceServer, sourceOperation, targetServer, targetOperation string) *graph.Edge {
	for _, edge := range e.edges {
		if edge.SourceServer == sourceServer && edge.SourceOperation == sourceOperation &&
			edge.TargetServer == targetServer && edge.TargetOperation == targetOperation {
			return edge
		}
	}
	for _, edge := range e.edges {
		if edge.SourceServer == sourceServer && edge.TargetServer == targetServer {
			return edge
		}
	}
	return nil
}

// keywordPlan builds a deterministic pipeline from request keywords.
func keywordPlan(request string) plan {
	lower := strings.ToLower(request)
	confidence := 0.7
	p := plan{Confidence: &confidence, Reasoning: "Fallback pipeline based on keywords"}

	for _, rule := range fallbackRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				p.Pipeline = append(p.Pipeline, planStep{Server: rule.server, Tool: rule.operation, Reason: rule.reason})
				break
			}
		}
	}
	return p
}

// prompt renders the planning request over every registered capability and
// known connection.
func (e *Engine) prompt(request string) string {
	var capabilities strings.Builder
	for _, record := range e.servers {
		fmt.Fprintf(&capabilities, "\nServer: %s\n", record.Name)
		if record.Profile != nil {
			fmt.Fprintf(&capabilities, "  Summary: %s\n", record.Profile.PlainLanguageSummary)
			fmt.Fprintf(&capabilities, "  Tags: %s\n", strings.Join(record.Profile.CapabilityTags, ", "))
		}
		capabilities.WriteString("  Operations:\n")
		for _, op := range record.Operations {
			fmt.Fprintf(&capabilities, "    - %s: %s\n", op.Name, op.Description)
			if len(op.InputSchema) > 0 {
				fmt.Fprintf(&capabilities, "      Input schema: %s\n", compactJSON(op.InputSchema))
			}
			if len(op.OutputSchema) > 0 {
				fmt.Fprintf(&capabilities, "      Output schema: %s\n", compactJSON(op.OutputSchema))
			}
		}
	}

	var connections strings.Builder
	for _, edge := range e.edges {
		fmt.Fprintf(&connections, "\n  %s -> %s [%s, confidence=%.2f]",
			edge.SourceKey(), edge.TargetKey(), edge.Type, edge.Confidence)
		if edge.TranslationHint != "" {
			fmt.Fprintf(&connections, " hint: %s", edge.TranslationHint)
		}
	}

	return fmt.Sprintf(`You are a pipeline planner. Given a user request and available MCP servers, determine the optimal pipeline.

USER REQUEST: %q

AVAILABLE SERVERS:
%s

KNOWN CONNECTIONS:
%s

Return a JSON object with this EXACT structure (no extra text):
{
    "pipeline": [
        {"server": "server-name", "tool": "tool-name", "reason": "why needed"}
    ],
    "confidence": 0.85,
    "reasoning": "brief explanation"
}

Rules:
- Only use servers listed above
- Order steps logically (data flows from one to next)
- Keep the JSON simple and valid
`, request, capabilities.String(), connections.String())
}

func compactJSON(v map[string]interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
