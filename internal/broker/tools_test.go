package broker

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/config"
	"nexus/internal/graph"
	"nexus/internal/index"
	"nexus/internal/oracle"
	"nexus/internal/pipeline"
	"nexus/internal/registry"
	"nexus/internal/store"
	"nexus/internal/testing/mock"
	"nexus/internal/translate"
)

// edgeStore is an in-memory graph.EdgeStore for facade tests.
type edgeStore struct {
	mu    sync.Mutex
	edges []*graph.Edge
}

func (s *edgeStore) SaveEdge(_ context.Context, edge *graph.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.edges {
		if existing.Key() == edge.Key() {
			s.edges[i] = edge
			return nil
		}
	}
	s.edges = append(s.edges, edge)
	return nil
}

func (s *edgeStore) LoadAllEdges(context.Context) ([]*graph.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*graph.Edge(nil), s.edges...), nil
}

func (s *edgeStore) EdgeExists(_ context.Context, sourceServer, sourceOperation, targetServer, targetOperation string) (bool, error) {
	probe := graph.Edge{
		SourceServer:    sourceServer,
		SourceOperation: sourceOperation,
		TargetServer:    targetServer,
		TargetOperation: targetOperation,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.edges {
		if existing.Key() == probe.Key() {
			return true, nil
		}
	}
	return false, nil
}

func (s *edgeStore) ClearEdges(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.edges = nil
	return nil
}

type scriptedLister struct {
	ops map[string][]registry.Operation
	err error
}

func (l *scriptedLister) ListOperations(_ context.Context, record *registry.ServerRecord) ([]registry.Operation, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.ops[record.Name], nil
}

type scriptedProfiler struct {
	profile *registry.SemanticProfile
	err     error
}

func (p *scriptedProfiler) Profile(context.Context, string, []registry.Operation) (*registry.SemanticProfile, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.profile, nil
}

func fetcherRecord() *registry.ServerRecord {
	return &registry.ServerRecord{
		Name:      "web-fetcher",
		Command:   "uv",
		Args:      []string{"run", "python", "servers/web_fetcher.py"},
		Transport: registry.TransportStdio,
		Status:    registry.StatusProfiled,
		Operations: []registry.Operation{
			{
				Name:        "fetch_url",
				Description: "Fetches the content of a web page",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"url": map[string]interface{}{"type": "string"},
					},
					"required": []interface{}{"url"},
				},
			},
		},
		Profile: &registry.SemanticProfile{
			PlainLanguageSummary: "Fetches web pages and returns their text content",
			CapabilityTags:       []string{"web-scraping", "content-retrieval"},
			Domain:               "web-scraping",
		},
	}
}

func summarizerRecord() *registry.ServerRecord {
	return &registry.ServerRecord{
		Name:      "summarizer",
		Command:   "uv",
		Transport: registry.TransportStdio,
		Status:    registry.StatusProfiled,
		Operations: []registry.Operation{
			{
				Name:        "summarize_text",
				Description: "Summarizes text content",
				InputSchema: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"content": map[string]interface{}{"type": "string"},
					},
					"required": []interface{}{"content"},
				},
			},
		},
		Profile: &registry.SemanticProfile{
			PlainLanguageSummary: "Condenses long text into short summaries",
			CapabilityTags:       []string{"text-processing", "summarization"},
			Domain:               "text-processing",
		},
	}
}

func directEdge() *graph.Edge {
	return &graph.Edge{
		SourceServer:    "web-fetcher",
		SourceOperation: "fetch_url",
		TargetServer:    "summarizer",
		TargetOperation: "summarize_text",
		Type:            graph.CompatDirect,
		Confidence:      0.92,
	}
}

func translatableEdge() *graph.Edge {
	return &graph.Edge{
		SourceServer:    "summarizer",
		SourceOperation: "summarize_text",
		TargetServer:    "slack-sender",
		TargetOperation: "send_slack_message",
		Type:            graph.CompatTranslatable,
		Confidence:      0.71,
		TranslationHint: "map summary to text",
	}
}

// loadedGraph builds a graph whose edge set is preloaded from an in-memory
// store.
func loadedGraph(t *testing.T, edges ...*graph.Edge) *graph.Graph {
	t.Helper()

	st := &edgeStore{}
	for _, edge := range edges {
		require.NoError(t, st.SaveEdge(context.Background(), edge))
	}

	embedder := &mock.MockOracle{}
	g := graph.New(st, index.New(embedder), embedder, graph.Options{})
	require.NoError(t, g.Load(context.Background()))
	return g
}

// testBroker wires a facade over in-memory components. The reasoner drives
// discovery; the caller, when nil, answers every operation with an empty
// output.
func testBroker(t *testing.T, records []*registry.ServerRecord, edges []*graph.Edge, reasoner oracle.SemanticOracle, caller pipeline.ToolCaller) *Server {
	t.Helper()

	reg := registry.New()
	for _, record := range records {
		reg.Put(record)
	}

	if caller == nil {
		caller = &mock.MockToolCaller{}
	}
	translator := translate.New(&mock.MockOracle{Responses: []string{`{"mappings": []}`}}, nil)
	exec := pipeline.NewExecutor(reg, caller, translator, nil, pipeline.ExecutionOptions{})

	manager := registry.NewManager(reg, &scriptedLister{}, &scriptedProfiler{}, nil)

	return NewServer(
		Config{Host: "localhost", Port: 8090, DefaultChannel: "#team-updates"},
		Components{Manager: manager, Graph: loadedGraph(t, edges...), Reasoner: reasoner, Executor: exec},
	)
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

// decodeResult unmarshals a facade tool's JSON text payload.
func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()

	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	return decoded
}

// errorText extracts the message of an error result.
func errorText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.True(t, result.IsError)
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return text.Text
}

func TestFacadeToolNames(t *testing.T) {
	b := testBroker(t, nil, nil, &mock.MockOracle{}, nil)

	tools := b.facadeTools()
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Tool.Name)
	}
	assert.Equal(t, []string{
		"nexus_status",
		"list_servers",
		"show_connections",
		"discover_pipeline",
		"execute_pipeline",
		"register_server",
		"build_graph",
		"pipeline_history",
	}, names)
}

func TestStatusHandler(t *testing.T) {
	b := testBroker(t,
		[]*registry.ServerRecord{fetcherRecord(), summarizerRecord()},
		[]*graph.Edge{directEdge(), translatableEdge()},
		&mock.MockOracle{}, nil)

	result, err := b.handleStatus(context.Background(), callRequest(nil))
	require.NoError(t, err)
	decoded := decodeResult(t, result)

	assert.Equal(t, float64(2), decoded["servers_registered"])
	assert.Equal(t, float64(2), decoded["total_connections"])
	assert.Equal(t, float64(1), decoded["direct_connections"])
	assert.Equal(t, float64(1), decoded["translatable_connections"])
	assert.Equal(t, []interface{}{"summarizer", "web-fetcher"}, decoded["server_names"])
	assert.Equal(t, true, decoded["ready"])
	assert.NotContains(t, decoded, "pipeline_runs")
}

func TestStatusHandlerEmpty(t *testing.T) {
	b := testBroker(t, nil, nil, &mock.MockOracle{}, nil)

	result, err := b.handleStatus(context.Background(), callRequest(nil))
	decoded := decodeResult(t, must(t, result, err))

	assert.Equal(t, float64(0), decoded["servers_registered"])
	assert.Equal(t, false, decoded["ready"])
}

func TestListServersHandler(t *testing.T) {
	unprofiled := &registry.ServerRecord{
		Name:       "slack-sender",
		Command:    "node",
		Status:     registry.StatusRegistered,
		Operations: []registry.Operation{{Name: "send_slack_message"}},
	}
	b := testBroker(t, []*registry.ServerRecord{fetcherRecord(), unprofiled}, nil, &mock.MockOracle{}, nil)

	result, err := b.handleListServers(context.Background(), callRequest(nil))
	decoded := decodeResult(t, must(t, result, err))

	assert.Equal(t, float64(2), decoded["total"])
	servers := decoded["servers"].([]interface{})
	require.Len(t, servers, 2)

	// Snapshot order is alphabetical.
	first := servers[0].(map[string]interface{})
	assert.Equal(t, "slack-sender", first["name"])
	assert.Equal(t, "registered", first["status"])
	assert.Nil(t, first["summary"])
	assert.Nil(t, first["domain"])
	assert.Equal(t, []interface{}{}, first["tags"])

	second := servers[1].(map[string]interface{})
	assert.Equal(t, "web-fetcher", second["name"])
	assert.Equal(t, "Fetches web pages and returns their text content", second["summary"])
	assert.Equal(t, "web-scraping", second["domain"])
	assert.Equal(t, []interface{}{"web-scraping", "content-retrieval"}, second["tags"])
	assert.Equal(t, []interface{}{"fetch_url"}, second["tools"])
}

func TestShowConnectionsHandler(t *testing.T) {
	b := testBroker(t, nil, []*graph.Edge{translatableEdge(), directEdge()}, &mock.MockOracle{}, nil)

	result, err := b.handleShowConnections(context.Background(), callRequest(nil))
	decoded := decodeResult(t, must(t, result, err))

	assert.Equal(t, float64(2), decoded["total"])
	connections := decoded["connections"].([]interface{})
	require.Len(t, connections, 2)

	// Highest confidence first.
	first := connections[0].(map[string]interface{})
	assert.Equal(t, "web-fetcher.fetch_url", first["from"])
	assert.Equal(t, "summarizer.summarize_text", first["to"])
	assert.Equal(t, "direct", first["type"])
	assert.Equal(t, 0.92, first["confidence"])
	assert.NotContains(t, first, "hint")

	second := connections[1].(map[string]interface{})
	assert.Equal(t, "translatable", second["type"])
	assert.Equal(t, "map summary to text", second["hint"])
}

func TestDiscoverPipelineRequiresRequest(t *testing.T) {
	b := testBroker(t, []*registry.ServerRecord{fetcherRecord()}, []*graph.Edge{directEdge()}, &mock.MockOracle{}, nil)

	result, err := b.handleDiscoverPipeline(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "request argument is required", errorText(t, result))
}

func TestDiscoverPipelineGuards(t *testing.T) {
	empty := testBroker(t, nil, nil, &mock.MockOracle{}, nil)
	result, err := empty.handleDiscoverPipeline(context.Background(), callRequest(map[string]interface{}{"request": "do things"}))
	require.NoError(t, err)
	assert.Equal(t, "no servers registered", errorText(t, result))

	noEdges := testBroker(t, []*registry.ServerRecord{fetcherRecord()}, nil, &mock.MockOracle{}, nil)
	result, err = noEdges.handleDiscoverPipeline(context.Background(), callRequest(map[string]interface{}{"request": "do things"}))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, result), "capability graph is empty")
}

func TestDiscoverPipelineHandler(t *testing.T) {
	planJSON := `{
		"pipeline": [
			{"server": "web-fetcher", "tool": "fetch_url", "reason": "Fetch the page"},
			{"server": "summarizer", "tool": "summarize_text", "reason": "Summarize it"}
		],
		"confidence": 0.9,
		"reasoning": "Fetch feeds the summarizer directly."
	}`
	b := testBroker(t,
		[]*registry.ServerRecord{fetcherRecord(), summarizerRecord()},
		[]*graph.Edge{directEdge()},
		&mock.MockOracle{Responses: []string{planJSON}}, nil)

	result, err := b.handleDiscoverPipeline(context.Background(), callRequest(map[string]interface{}{
		"request": "Fetch the page and summarize it",
	}))
	decoded := decodeResult(t, must(t, result, err))

	assert.Equal(t, "Fetch the page and summarize it", decoded["request"])
	assert.Equal(t, 0.9, decoded["confidence"])
	assert.Equal(t, "Fetch feeds the summarizer directly.", decoded["reasoning"])

	steps := decoded["steps"].([]interface{})
	require.Len(t, steps, 2)

	entry := steps[0].(map[string]interface{})
	assert.Equal(t, float64(1), entry["step"])
	assert.Equal(t, "web-fetcher", entry["server"])
	assert.Equal(t, "fetch_url", entry["tool"])
	assert.Equal(t, "entry_point", entry["connection_type"])

	chained := steps[1].(map[string]interface{})
	assert.Equal(t, float64(2), chained["step"])
	assert.Equal(t, "direct", chained["connection_type"])
}

func TestExecutePipelineHandler(t *testing.T) {
	planJSON := `{
		"pipeline": [
			{"server": "web-fetcher", "tool": "fetch_url", "reason": "Fetch the page"},
			{"server": "summarizer", "tool": "summarize_text", "reason": "Summarize it"}
		],
		"confidence": 0.88
	}`
	caller := &mock.MockToolCaller{Outputs: map[string]map[string]interface{}{
		"web-fetcher.fetch_url":     {"content": "long article text"},
		"summarizer.summarize_text": {"summary": "short version"},
	}}
	b := testBroker(t,
		[]*registry.ServerRecord{fetcherRecord(), summarizerRecord()},
		[]*graph.Edge{directEdge()},
		&mock.MockOracle{Responses: []string{planJSON}}, caller)

	result, err := b.handleExecutePipeline(context.Background(), callRequest(map[string]interface{}{
		"request": "summarize it",
		"url":     "https://example.com/article",
	}))
	decoded := decodeResult(t, must(t, result, err))

	assert.Equal(t, "summarize it", decoded["request"])
	assert.Equal(t, true, decoded["success"])
	assert.NotEmpty(t, decoded["run_id"])
	assert.Equal(t, 0.88, decoded["confidence"])

	steps := decoded["steps"].([]interface{})
	require.Len(t, steps, 2)
	first := steps[0].(map[string]interface{})
	assert.Equal(t, "web-fetcher", first["server"])
	assert.Equal(t, true, first["success"])
	assert.NotContains(t, first, "error")

	finalOutput := decoded["final_output"].(map[string]interface{})
	assert.Equal(t, "short version", finalOutput["summary"])

	// The URL argument became the fetch step's input.
	require.NotEmpty(t, caller.Calls)
	assert.Equal(t, "https://example.com/article", caller.Calls[0].Input["url"])
}

func TestExecutePipelineReportsFailedSteps(t *testing.T) {
	planJSON := `{"pipeline": [{"server": "web-fetcher", "tool": "fetch_url", "reason": "Fetch"}], "confidence": 0.8}`
	caller := &mock.MockToolCaller{Errors: map[string]error{
		"web-fetcher.fetch_url": errors.New("connection refused"),
	}}
	b := testBroker(t,
		[]*registry.ServerRecord{fetcherRecord()},
		[]*graph.Edge{directEdge()},
		&mock.MockOracle{Responses: []string{planJSON}}, caller)

	result, err := b.handleExecutePipeline(context.Background(), callRequest(map[string]interface{}{
		"request": "fetch https://example.com",
	}))
	decoded := decodeResult(t, must(t, result, err))

	assert.Equal(t, false, decoded["success"])

	steps := decoded["steps"].([]interface{})
	require.Len(t, steps, 1)
	entry := steps[0].(map[string]interface{})
	assert.Equal(t, false, entry["success"])
	assert.Equal(t, "connection refused", entry["error"])
	assert.NotContains(t, entry, "output")

	assert.Equal(t, map[string]interface{}{}, decoded["final_output"])
}

func TestRegisterServerHandler(t *testing.T) {
	lister := &scriptedLister{ops: map[string][]registry.Operation{
		"sentiment-analyzer": {{Name: "analyze_sentiment", Description: "Scores the emotional tone of text"}},
	}}
	profiler := &scriptedProfiler{profile: &registry.SemanticProfile{
		PlainLanguageSummary: "Scores the emotional tone of text",
		Domain:               "text-analysis",
	}}

	b := testBroker(t, nil, nil, &mock.MockOracle{}, nil)
	b.manager = registry.NewManager(b.registry, lister, profiler, nil)

	result, err := b.handleRegisterServer(context.Background(), callRequest(map[string]interface{}{
		"name":    "sentiment-analyzer",
		"command": "uv",
		"args":    []interface{}{"run", "python", "servers/sentiment.py"},
	}))
	require.NoError(t, err)
	b.wg.Wait()

	decoded := decodeResult(t, result)
	assert.Equal(t, "registered", decoded["status"])
	assert.Equal(t, "sentiment-analyzer", decoded["name"])
	assert.Equal(t, "Scores the emotional tone of text", decoded["summary"])
	assert.Equal(t, []interface{}{"analyze_sentiment"}, decoded["tools"])
	assert.Contains(t, decoded["message"], "Graph rebuild started")

	record := b.registry.Get("sentiment-analyzer")
	require.NotNil(t, record)
	assert.Equal(t, registry.StatusProfiled, record.Status)
	assert.Equal(t, []string{"run", "python", "servers/sentiment.py"}, record.Args)
}

func TestRegisterServerRequiresNameAndCommand(t *testing.T) {
	b := testBroker(t, nil, nil, &mock.MockOracle{}, nil)

	result, err := b.handleRegisterServer(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "name argument is required", errorText(t, result))

	result, err = b.handleRegisterServer(context.Background(), callRequest(map[string]interface{}{"name": "web-fetcher"}))
	require.NoError(t, err)
	assert.Equal(t, "command argument is required", errorText(t, result))
}

func TestRegisterServerRejectsDuplicate(t *testing.T) {
	b := testBroker(t, []*registry.ServerRecord{fetcherRecord()}, nil, &mock.MockOracle{}, nil)

	result, err := b.handleRegisterServer(context.Background(), callRequest(map[string]interface{}{
		"name":    "web-fetcher",
		"command": "uv",
	}))
	require.NoError(t, err)
	assert.Contains(t, errorText(t, result), "already registered")
}

func TestBuildGraphHandler(t *testing.T) {
	b := testBroker(t, []*registry.ServerRecord{fetcherRecord()}, nil, &mock.MockOracle{}, nil)

	result, err := b.handleBuildGraph(context.Background(), callRequest(map[string]interface{}{"incremental": false}))
	require.NoError(t, err)
	b.wg.Wait()

	decoded := decodeResult(t, result)
	assert.Equal(t, "rebuild_started", decoded["status"])
	assert.Contains(t, decoded["message"], "background")
}

func TestPipelineHistoryWithoutStore(t *testing.T) {
	b := testBroker(t, nil, nil, &mock.MockOracle{}, nil)

	result, err := b.handlePipelineHistory(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "pipeline history is not available without storage", errorText(t, result))
}

func TestPipelineHistoryHandler(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "nexus.db"))
	require.NoError(t, err)
	defer st.Close()

	run := &pipeline.Run{
		ID:      "run-1",
		Request: "Fetch and summarize",
		Status:  pipeline.StatusCompleted,
		Results: []pipeline.Result{
			{Step: pipeline.Step{Server: "web-fetcher", Operation: "fetch_url"}, Success: true, Duration: 120 * time.Millisecond},
		},
		StartedAt:   time.Now().Add(-time.Minute),
		CompletedAt: time.Now(),
		Duration:    120 * time.Millisecond,
	}
	require.NoError(t, st.RecordRun(context.Background(), run))

	b := testBroker(t, nil, nil, &mock.MockOracle{}, nil)
	b.store = st

	result, err := b.handlePipelineHistory(context.Background(), callRequest(map[string]interface{}{
		"limit": float64(5),
	}))
	decoded := decodeResult(t, must(t, result, err))

	assert.Equal(t, float64(1), decoded["total"])
	runs := decoded["runs"].([]interface{})
	require.Len(t, runs, 1)

	entry := runs[0].(map[string]interface{})
	assert.Equal(t, "run-1", entry["id"])
	assert.Equal(t, "Fetch and summarize", entry["request"])
	assert.Equal(t, "completed", entry["status"])
	assert.Equal(t, float64(1), entry["steps"])
	assert.Equal(t, float64(1), entry["succeeded"])
	assert.Equal(t, 0.12, entry["duration"])
}

func TestGetEndpoint(t *testing.T) {
	b := testBroker(t, nil, nil, &mock.MockOracle{}, nil)

	b.config.Transport = config.MCPTransportStreamableHTTP
	assert.Equal(t, "http://localhost:8090/mcp", b.GetEndpoint())

	b.config.Transport = config.MCPTransportSSE
	assert.Equal(t, "http://localhost:8090/sse", b.GetEndpoint())

	b.config.Transport = config.MCPTransportStdio
	assert.Equal(t, "stdio", b.GetEndpoint())
}

// must unwraps a handler result whose error path is not under test.
func must(t *testing.T, result *mcp.CallToolResult, err error) *mcp.CallToolResult {
	t.Helper()
	require.NoError(t, err)
	return result
}
