package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/graph"
	"nexus/internal/registry"
	"nexus/internal/testing/mock"
)

func planningServers() []*registry.ServerRecord {
	return []*registry.ServerRecord{
		{
			Name: "web-fetcher",
			Operations: []registry.Operation{{
				Name:        "fetch_url",
				Description: "Fetches the content of a web page",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"url": map[string]interface{}{"type": "string"},
					},
				},
			}},
			Profile: &registry.SemanticProfile{
				PlainLanguageSummary: "Fetches web pages",
				CapabilityTags:       []string{"web", "http"},
			},
			Status: registry.StatusProfiled,
		},
		{
			Name: "summarizer",
			Operations: []registry.Operation{{
				Name:        "summarize_text",
				Description: "Summarizes a body of text",
			}},
			Profile: &registry.SemanticProfile{
				PlainLanguageSummary: "Summarizes text",
				CapabilityTags:       []string{"text", "nlp"},
			},
			Status: registry.StatusProfiled,
		},
	}
}

func planningEdges() []*graph.Edge {
	return []*graph.Edge{{
		SourceServer:    "web-fetcher",
		SourceOperation: "fetch_url",
		TargetServer:    "summarizer",
		TargetOperation: "summarize_text",
		Type:            graph.CompatTranslatable,
		Confidence:      0.85,
		TranslationHint: "map content to text",
	}}
}

func TestDiscover(t *testing.T) {
	response := "```json\n{\n  \"pipeline\": [\n    {\"server\": \"web-fetcher\", \"tool\": \"fetch_url\", \"reason\": \"get the page\"},\n    {\"server\": \"summarizer\", \"tool\": \"summarize_text\", \"reason\": \"condense it\"}\n  ],\n  \"confidence\": 0.9,\n  \"reasoning\": \"fetch then summarize\"\n}\n```"
	reasoner := &mock.MockOracle{Responses: []string{response}}
	engine := New(planningServers(), planningEdges(), reasoner)

	p, err := engine.Discover(context.Background(), "fetch example.com and summarize it")
	require.NoError(t, err)

	require.Len(t, p.Steps, 2)
	assert.Equal(t, "web-fetcher.fetch_url", p.Steps[0].Key())
	assert.Nil(t, p.Steps[0].Edge)
	assert.Equal(t, "summarizer.summarize_text", p.Steps[1].Key())
	require.NotNil(t, p.Steps[1].Edge)
	assert.Equal(t, graph.CompatTranslatable, p.Steps[1].Edge.Type)
	assert.Equal(t, 0.9, p.Confidence)
	assert.Equal(t, "fetch then summarize", p.Reasoning)
}

func TestDiscover_PromptEnumeratesCapabilities(t *testing.T) {
	reasoner := &mock.MockOracle{Responses: []string{`{"pipeline": [], "confidence": 0.5}`}}
	engine := New(planningServers(), planningEdges(), reasoner)

	_, err := engine.Discover(context.Background(), "do something")
	require.NoError(t, err)

	require.Len(t, reasoner.ReasonCalls, 1)
	prompt := reasoner.ReasonCalls[0]
	assert.Contains(t, prompt, `USER REQUEST: "do something"`)
	assert.Contains(t, prompt, "Server: web-fetcher")
	assert.Contains(t, prompt, "- fetch_url: Fetches the content of a web page")
	assert.Contains(t, prompt, "Tags: web, http")
	assert.Contains(t, prompt, "web-fetcher.fetch_url -> summarizer.summarize_text [translatable, confidence=0.85]")
	assert.Contains(t, prompt, "hint: map content to text")
}

func TestDiscover_ServerOnlyEdgeMatch(t *testing.T) {
	// The planner picked an operation pair the graph never validated; the
	// engine still attaches the edge between the two servers.
	response := `{"pipeline": [{"server": "web-fetcher", "tool": "fetch_url"}, {"server": "summarizer", "tool": "summarize_brief"}], "confidence": 0.8}`
	engine := New(planningServers(), planningEdges(), &mock.MockOracle{Responses: []string{response}})

	p, err := engine.Discover(context.Background(), "fetch and brief")
	require.NoError(t, err)

	require.Len(t, p.Steps, 2)
	require.NotNil(t, p.Steps[1].Edge)
	assert.Equal(t, "summarize_text", p.Steps[1].Edge.TargetOperation)
}

func TestDiscover_SkipsIncompleteSteps(t *testing.T) {
	response := `{"pipeline": [{"server": "web-fetcher", "tool": "fetch_url"}, {"server": "", "tool": "mystery"}, {"server": "summarizer", "tool": "summarize_text"}], "confidence": 0.8}`
	engine := New(planningServers(), planningEdges(), &mock.MockOracle{Responses: []string{response}})

	p, err := engine.Discover(context.Background(), "fetch and summarize")
	require.NoError(t, err)

	require.Len(t, p.Steps, 2)
	// The edge is resolved against the previous kept step, not the skipped
	// entry.
	require.NotNil(t, p.Steps[1].Edge)
	assert.Equal(t, "web-fetcher", p.Steps[1].Edge.SourceServer)
}

func TestDiscover_DefaultConfidence(t *testing.T) {
	response := `{"pipeline": [{"server": "web-fetcher", "tool": "fetch_url"}]}`
	engine := New(planningServers(), nil, &mock.MockOracle{Responses: []string{response}})

	p, err := engine.Discover(context.Background(), "fetch it")
	require.NoError(t, err)
	assert.Equal(t, 0.5, p.Confidence)
}

func TestDiscover_KeywordFallback(t *testing.T) {
	reasoner := &mock.MockOracle{Responses: []string{"I think you should fetch the page first, then post it."}}
	engine := New(planningServers(), nil, reasoner)

	p, err := engine.Discover(context.Background(), "fetch https://x.com and post to Slack")
	require.NoError(t, err)

	require.Len(t, p.Steps, 2)
	assert.Equal(t, "web-fetcher.fetch_url", p.Steps[0].Key())
	assert.Equal(t, "slack-sender.send_slack_message", p.Steps[1].Key())
	assert.Equal(t, 0.7, p.Confidence)
	assert.Equal(t, "Fallback pipeline based on keywords", p.Reasoning)
}

func TestDiscover_KeywordFallbackOrderIsFixed(t *testing.T) {
	engine := New(nil, nil, &mock.MockOracle{Responses: []string{"not json"}})

	p, err := engine.Discover(context.Background(),
		"post a slack message with the sentiment of a translated summary of https://example.com")
	require.NoError(t, err)

	keys := make([]string, 0, len(p.Steps))
	for _, step := range p.Steps {
		keys = append(keys, step.Key())
	}
	assert.Equal(t, []string{
		"web-fetcher.fetch_url",
		"translator.translate_text",
		"summarizer.summarize_text",
		"sentiment-analyzer.analyze_sentiment",
		"slack-sender.send_slack_message",
	}, keys)
}

func TestDiscover_OracleError(t *testing.T) {
	engine := New(planningServers(), nil, &mock.MockOracle{ReasonErr: errors.New("rate limited")})

	_, err := engine.Discover(context.Background(), "fetch it")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "planning pipeline")
}
