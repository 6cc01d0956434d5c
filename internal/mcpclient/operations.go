package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"nexus/internal/config"
	"nexus/internal/pipeline"
	"nexus/internal/registry"
	"nexus/pkg/logging"
)

// OperationCaller reaches downstream servers with one short-lived session
// per exchange: connect, list or call, disconnect. Registered servers are
// commodity subprocesses and remote endpoints; holding sessions open across
// pipeline steps leaks processes when a server crashes mid-run.
type OperationCaller struct {
	timeout time.Duration
}

var (
	_ registry.OperationLister = (*OperationCaller)(nil)
	_ pipeline.ToolCaller      = (*OperationCaller)(nil)
)

// NewOperationCaller creates a caller whose exchanges are bounded by the
// given timeout whenever the caller's context has no deadline. A
// non-positive timeout selects the configured default.
func NewOperationCaller(timeout time.Duration) *OperationCaller {
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultCallTimeoutSeconds) * time.Second
	}
	return &OperationCaller{timeout: timeout}
}

// ListOperations connects to the server and returns the operations it
// exposes, with their schemas decoded for the capability graph.
func (o *OperationCaller) ListOperations(ctx context.Context, record *registry.ServerRecord) ([]registry.Operation, error) {
	mcpClient, err := NewClient(record)
	if err != nil {
		return nil, err
	}

	ctx, cancel := o.exchangeContext(ctx)
	defer cancel()

	if err := mcpClient.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", record.Name, err)
	}
	defer func() {
		if err := mcpClient.Close(); err != nil {
			logging.Debug("MCPClient", "Failed to close session with %s: %v", record.Name, err)
		}
	}()

	tools, err := mcpClient.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tools of %s: %w", record.Name, err)
	}

	operations := make([]registry.Operation, 0, len(tools))
	for _, tool := range tools {
		input, output := toolSchemas(tool)
		operations = append(operations, registry.Operation{
			Name:         tool.Name,
			Description:  tool.Description,
			InputSchema:  input,
			OutputSchema: output,
		})
	}

	logging.Debug("MCPClient", "Server %s exposes %d operations", record.Name, len(operations))
	return operations, nil
}

// Call invokes one operation and decodes the response into the map currency
// the pipeline executor works with.
func (o *OperationCaller) Call(ctx context.Context, server *registry.ServerRecord, operation string, input map[string]interface{}) (map[string]interface{}, error) {
	mcpClient, err := NewClient(server)
	if err != nil {
		return nil, err
	}

	ctx, cancel := o.exchangeContext(ctx)
	defer cancel()

	if err := mcpClient.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", server.Name, err)
	}
	defer func() {
		if err := mcpClient.Close(); err != nil {
			logging.Debug("MCPClient", "Failed to close session with %s: %v", server.Name, err)
		}
	}()

	result, err := mcpClient.CallTool(ctx, operation, input)
	if err != nil {
		return nil, fmt.Errorf("calling %s.%s: %w", server.Name, operation, err)
	}
	return decodeResult(result)
}

func (o *OperationCaller) exchangeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.timeout)
}

// toolSchemas extracts a tool's declared schemas through a JSON round trip,
// which covers both the typed and the raw schema representations a server
// library may populate. A tool without an output schema yields nil, and the
// capability graph falls back to its description.
func toolSchemas(tool mcp.Tool) (input, output map[string]interface{}) {
	data, err := json.Marshal(tool)
	if err != nil {
		return nil, nil
	}
	var doc struct {
		InputSchema  map[string]interface{} `json:"inputSchema"`
		OutputSchema map[string]interface{} `json:"outputSchema"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil
	}
	return doc.InputSchema, doc.OutputSchema
}

// decodeResult turns a tool result into a map. The first text content that
// parses as a JSON object is returned as-is, bare text is wrapped under
// "result", and a result with no text content yields an empty map.
func decodeResult(result *mcp.CallToolResult) (map[string]interface{}, error) {
	text := firstText(result)

	if result.IsError {
		if text == "" {
			text = "tool call failed"
		}
		return nil, errors.New(text)
	}

	if text == "" {
		return map[string]interface{}{}, nil
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil || decoded == nil {
		return map[string]interface{}{"result": text}, nil
	}
	return decoded, nil
}

func firstText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if textContent, ok := mcp.AsTextContent(content); ok {
			return textContent.Text
		}
	}
	return ""
}
