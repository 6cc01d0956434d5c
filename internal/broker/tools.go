package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"nexus/internal/discovery"
	"nexus/internal/pipeline"
	"nexus/internal/registry"
)

// defaultHistoryLimit is the pipeline_history page size when the caller
// passes no limit.
const defaultHistoryLimit = 20

// facadeTools builds the eight meta-tools the broker exposes.
func (s *Server) facadeTools() []mcpserver.ServerTool {
	return []mcpserver.ServerTool{
		{
			Tool: mcp.Tool{
				Name:        "nexus_status",
				Description: "Get the current status of nexus: registered servers, discovered connections and readiness.",
				InputSchema: objectSchema(nil, nil),
			},
			Handler: s.handleStatus,
		},
		{
			Tool: mcp.Tool{
				Name:        "list_servers",
				Description: "List all MCP servers registered with nexus, including their semantic profiles and operations.",
				InputSchema: objectSchema(nil, nil),
			},
			Handler: s.handleListServers,
		},
		{
			Tool: mcp.Tool{
				Name:        "show_connections",
				Description: "Show all discovered connections between server operations, sorted by confidence.",
				InputSchema: objectSchema(nil, nil),
			},
			Handler: s.handleShowConnections,
		},
		{
			Tool: mcp.Tool{
				Name:        "discover_pipeline",
				Description: "Discover the pipeline that would fulfill a natural language request. Does not execute, just shows the plan.",
				InputSchema: objectSchema(map[string]interface{}{
					"request": map[string]interface{}{
						"type":        "string",
						"description": "What you want to accomplish (e.g. \"Fetch a webpage, summarize it, and post to Slack\")",
					},
				}, []string{"request"}),
			},
			Handler: s.handleDiscoverPipeline,
		},
		{
			Tool: mcp.Tool{
				Name:        "execute_pipeline",
				Description: "Discover and execute a pipeline to fulfill a natural language request. Calls the registered MCP servers and returns their results.",
				InputSchema: objectSchema(map[string]interface{}{
					"request": map[string]interface{}{
						"type":        "string",
						"description": "What you want to do (e.g. \"summarize it and post to slack\")",
					},
					"url": map[string]interface{}{
						"type":        "string",
						"description": "URL to fetch content from, when the request does not spell one out",
					},
					"channel": map[string]interface{}{
						"type":        "string",
						"description": "Delivery channel for messaging steps",
					},
					"source_language": map[string]interface{}{
						"type":        "string",
						"description": "Source language for translation steps",
					},
					"target_language": map[string]interface{}{
						"type":        "string",
						"description": "Target language for translation steps",
					},
				}, []string{"request"}),
			},
			Handler: s.handleExecutePipeline,
		},
		{
			Tool: mcp.Tool{
				Name:        "register_server",
				Description: "Register a new MCP server: connect to it, read its operations and profile it. Triggers a background graph rebuild.",
				InputSchema: objectSchema(map[string]interface{}{
					"name": map[string]interface{}{
						"type":        "string",
						"description": "Server name (e.g. \"web-fetcher\")",
					},
					"command": map[string]interface{}{
						"type":        "string",
						"description": "Command that starts the server (e.g. \"uv\")",
					},
					"args": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Command arguments (e.g. [\"run\", \"python\", \"server.py\"])",
					},
				}, []string{"name", "command"}),
			},
			Handler: s.handleRegisterServer,
		},
		{
			Tool: mcp.Tool{
				Name:        "build_graph",
				Description: "Rebuild the capability graph in the background. Incremental by default; pass incremental=false to rebuild from scratch.",
				InputSchema: objectSchema(map[string]interface{}{
					"incremental": map[string]interface{}{
						"type":        "boolean",
						"description": "Keep cached edges and only evaluate new pairs (default: true)",
					},
				}, nil),
			},
			Handler: s.handleBuildGraph,
		},
		{
			Tool: mcp.Tool{
				Name:        "pipeline_history",
				Description: "Get recent pipeline execution history, newest first.",
				InputSchema: objectSchema(map[string]interface{}{
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of runs to return (default: 20)",
					},
				}, nil),
			},
			Handler: s.handlePipelineHistory,
		},
	}
}

func (s *Server) handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := s.registry.Names()
	stats := s.graph.Stats()

	status := map[string]interface{}{
		"servers_registered":       len(names),
		"total_connections":        stats.TotalEdges,
		"direct_connections":       stats.DirectEdges,
		"translatable_connections": stats.TranslatableEdges,
		"server_names":             names,
		"ready":                    len(names) > 0 && stats.TotalEdges > 0,
	}
	if s.store != nil {
		if counts, err := s.store.Stats(ctx); err == nil {
			status["pipeline_runs"] = counts.PipelineRuns
		}
	}
	return jsonResult(status)
}

func (s *Server) handleListServers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records := s.registry.Snapshot()
	servers := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		var summary, domain interface{}
		tags := []string{}
		if record.Profile != nil {
			summary = record.Profile.PlainLanguageSummary
			domain = record.Profile.Domain
			if record.Profile.CapabilityTags != nil {
				tags = record.Profile.CapabilityTags
			}
		}
		servers = append(servers, map[string]interface{}{
			"name":    record.Name,
			"status":  record.Status,
			"summary": summary,
			"domain":  domain,
			"tags":    tags,
			"tools":   operationNames(record),
		})
	}
	return jsonResult(map[string]interface{}{"total": len(servers), "servers": servers})
}

func (s *Server) handleShowConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	edges := s.graph.SortedByConfidence()
	connections := make([]map[string]interface{}, 0, len(edges))
	for _, edge := range edges {
		entry := map[string]interface{}{
			"from":       edge.SourceKey(),
			"to":         edge.TargetKey(),
			"type":       edge.Type,
			"confidence": edge.Confidence,
		}
		if edge.TranslationHint != "" {
			entry["hint"] = edge.TranslationHint
		}
		connections = append(connections, entry)
	}
	return jsonResult(map[string]interface{}{"total": len(connections), "connections": connections})
}

func (s *Server) handleDiscoverPipeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(req)
	request, ok := args["request"].(string)
	if !ok || request == "" {
		return mcp.NewToolResultError("request argument is required"), nil
	}
	if err := s.planningReady(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	plan, err := s.discover(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("discovering pipeline: %v", err)), nil
	}
	return jsonResult(discoveryReport(request, plan))
}

func (s *Server) handleExecutePipeline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(req)
	request, ok := args["request"].(string)
	if !ok || request == "" {
		return mcp.NewToolResultError("request argument is required"), nil
	}
	if err := s.planningReady(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	prep := PrepareExecution(Request{
		Request:        request,
		URL:            stringArg(args, "url"),
		Channel:        stringArg(args, "channel"),
		SourceLanguage: stringArg(args, "source_language"),
		TargetLanguage: stringArg(args, "target_language"),
	}, s.config.DefaultChannel)

	plan, err := s.discover(ctx, prep.FullRequest)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("discovering pipeline: %v", err)), nil
	}

	run, err := s.executor.Execute(ctx, prep.FullRequest, plan, prep.InitialInput, prep.Context)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("executing pipeline: %v", err)), nil
	}
	return jsonResult(executionReport(request, plan, run))
}

func (s *Server) handleRegisterServer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(req)
	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("name argument is required"), nil
	}
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return mcp.NewToolResultError("command argument is required"), nil
	}

	def := registry.Definition{
		Name:    name,
		Command: command,
		Args:    stringSliceArg(args, "args"),
	}

	record, err := s.manager.Register(ctx, def, false)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("registering server: %v", err)), nil
	}

	s.ScheduleRebuild(true)

	var summary interface{}
	if record.Profile != nil {
		summary = record.Profile.PlainLanguageSummary
	}
	return jsonResult(map[string]interface{}{
		"status":  "registered",
		"name":    record.Name,
		"summary": summary,
		"tools":   operationNames(record),
		"message": "Server registered. Graph rebuild started in background.",
	})
}

func (s *Server) handleBuildGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(req)
	incremental := boolArg(args, "incremental", true)

	s.ScheduleRebuild(incremental)

	return jsonResult(map[string]interface{}{
		"status":  "rebuild_started",
		"message": "Graph rebuild started in background.",
	})
}

func (s *Server) handlePipelineHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("pipeline history is not available without storage"), nil
	}
	args := toolArgs(req)
	limit := intArg(args, "limit", defaultHistoryLimit)

	runs, err := s.store.PipelineHistory(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading pipeline history: %v", err)), nil
	}

	entries := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		summary := run.Summary()
		entries = append(entries, map[string]interface{}{
			"id":         run.ID,
			"request":    run.Request,
			"status":     run.Status,
			"steps":      summary.TotalSteps,
			"succeeded":  summary.Succeeded,
			"duration":   roundSeconds(run.Duration),
			"started_at": run.StartedAt.Format(time.RFC3339),
		})
	}
	return jsonResult(map[string]interface{}{"total": len(entries), "runs": entries})
}

// planningReady reports whether discovery has anything to plan over.
func (s *Server) planningReady() error {
	if s.registry.Len() == 0 {
		return errors.New("no servers registered")
	}
	if s.graph.Len() == 0 {
		return errors.New("capability graph is empty, register servers and run build_graph first")
	}
	return nil
}

// discover plans over fresh registry and graph snapshots.
func (s *Server) discover(ctx context.Context, request string) (*pipeline.Pipeline, error) {
	engine := discovery.New(s.registry.Snapshot(), s.graph.Edges(), s.reasoner)
	return engine.Discover(ctx, request)
}

// discoveryReport renders a planned pipeline: numbered steps, each with the
// connection that links it to the previous one.
func discoveryReport(request string, plan *pipeline.Pipeline) map[string]interface{} {
	steps := make([]map[string]interface{}, 0, len(plan.Steps))
	for i, step := range plan.Steps {
		entry := map[string]interface{}{
			"step":            i + 1,
			"server":          step.Server,
			"tool":            step.Operation,
			"connection_type": "entry_point",
		}
		if step.Edge != nil {
			entry["connection_type"] = step.Edge.Type
			if step.Edge.TranslationHint != "" {
				entry["translation_hint"] = step.Edge.TranslationHint
			}
		}
		steps = append(steps, entry)
	}

	report := map[string]interface{}{
		"request":    request,
		"confidence": plan.Confidence,
		"steps":      steps,
	}
	if plan.Reasoning != "" {
		report["reasoning"] = plan.Reasoning
	}
	return report
}

// executionReport renders a finished run. Step outputs are included only for
// successful steps; the final output is the last successful step's output.
func executionReport(request string, plan *pipeline.Pipeline, run *pipeline.Run) map[string]interface{} {
	steps := make([]map[string]interface{}, 0, len(run.Results))
	for _, result := range run.Results {
		entry := map[string]interface{}{
			"server":   result.Step.Server,
			"tool":     result.Step.Operation,
			"success":  result.Success,
			"duration": roundSeconds(result.Duration),
		}
		if result.Error != "" {
			entry["error"] = result.Error
		}
		if result.Success {
			entry["output"] = result.Output
		}
		steps = append(steps, entry)
	}

	summary := run.Summary()
	finalOutput := run.FinalOutput()
	if finalOutput == nil {
		finalOutput = map[string]interface{}{}
	}

	return map[string]interface{}{
		"request":        request,
		"run_id":         run.ID,
		"confidence":     plan.Confidence,
		"success":        summary.Status == pipeline.StatusCompleted,
		"total_duration": roundSeconds(summary.Duration),
		"steps":          steps,
		"final_output":   finalOutput,
	}
}

// operationNames lists the record's operation names in declaration order.
func operationNames(record *registry.ServerRecord) []string {
	names := make([]string, 0, len(record.Operations))
	for _, op := range record.Operations {
		names = append(names, op.Name)
	}
	return names
}

// roundSeconds renders a duration as seconds with centisecond precision.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

// objectSchema builds a facade tool's input schema.
func objectSchema(properties map[string]interface{}, required []string) mcp.ToolInputSchema {
	if properties == nil {
		properties = map[string]interface{}{}
	}
	if required == nil {
		required = []string{}
	}
	return mcp.ToolInputSchema{Type: "object", Properties: properties, Required: required}
}

// toolArgs extracts the arguments map from an MCP request.
func toolArgs(req mcp.CallToolRequest) map[string]interface{} {
	args := make(map[string]interface{})
	if req.Params.Arguments != nil {
		if argsMap, ok := req.Params.Arguments.(map[string]interface{}); ok {
			args = argsMap
		}
	}
	return args
}

func stringArg(args map[string]interface{}, key string) string {
	value, _ := args[key].(string)
	return value
}

func boolArg(args map[string]interface{}, key string, fallback bool) bool {
	if value, ok := args[key].(bool); ok {
		return value
	}
	return fallback
}

// intArg reads an integer argument. JSON numbers decode as float64.
func intArg(args map[string]interface{}, key string, fallback int) int {
	switch value := args[key].(type) {
	case float64:
		return int(value)
	case int:
		return value
	}
	return fallback
}

func stringSliceArg(args map[string]interface{}, key string) []string {
	items, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// jsonResult renders a handler result as indented JSON text.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
