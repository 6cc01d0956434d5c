// Package profile turns raw operation metadata into semantic profiles.
//
// The profiler runs once per registration: it hands the oracle every
// operation the server exposes and asks for a structured description of
// what the server is for. The registry stores the result on the record and
// the embedding index and graph builder reason over it.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nexus/internal/metrics"
	"nexus/internal/oracle"
	"nexus/internal/registry"
	"nexus/pkg/logging"
)

// Profiler asks the reasoning oracle what a server is for.
type Profiler struct {
	reasoner oracle.SemanticOracle
}

var _ registry.Profiler = (*Profiler)(nil)

// New creates a profiler around the given oracle.
func New(reasoner oracle.SemanticOracle) *Profiler {
	return &Profiler{reasoner: reasoner}
}

// Profile describes the named server from its operations. An undecodable
// response is an error; the registry then records the server without a
// profile, and a forced re-registration retries.
func (p *Profiler) Profile(ctx context.Context, serverName string, operations []registry.Operation) (*registry.SemanticProfile, error) {
	logging.Info("Profiler", "Profiling server %s (%d operations)", serverName, len(operations))

	raw, err := p.reasoner.Reason(ctx, profilePrompt(serverName, operations))
	if err != nil {
		return nil, fmt.Errorf("profiling %s: %w", serverName, err)
	}

	var profile registry.SemanticProfile
	if result := oracle.Decode(raw, &profile); !result.OK {
		metrics.ParseFallback("profile")
		return nil, fmt.Errorf("profile response for %s did not decode", serverName)
	}

	logging.Info("Profiler", "Server %s profiled: domain=%s tags=%v", serverName, profile.Domain, profile.CapabilityTags)
	return &profile, nil
}

func profilePrompt(serverName string, operations []registry.Operation) string {
	var tools strings.Builder
	for _, op := range operations {
		fmt.Fprintf(&tools, `
Tool: %s
Description: %s
Input Schema: %s
Output Schema: %s
---
`, op.Name, op.Description, marshalSchema(op.InputSchema), marshalSchema(op.OutputSchema))
	}

	return fmt.Sprintf(`You are analyzing an MCP server's capabilities. Given the following metadata, produce a rich semantic profile.

SERVER NAME: %s

TOOLS:
%s

Produce a JSON response in EXACTLY this format, nothing else:
{
    "plain_language_summary": "What this server does in simple terms",
    "capability_tags": ["tag1", "tag2", "tag3"],
    "input_concepts": ["what real-world things this server needs as input"],
    "output_concepts": ["what real-world things this server produces"],
    "use_cases": ["concrete scenario 1", "concrete scenario 2", "concrete scenario 3"],
    "compatible_with": ["what kinds of other capabilities would chain well with this, both upstream and downstream"],
    "domain": "primary domain like NLP, web, communication, analytics"
}

Be thorough. Think about non-obvious use cases. Think about what OTHER tools would pair well with this one.
`, serverName, tools.String())
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
