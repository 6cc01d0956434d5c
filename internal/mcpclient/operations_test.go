package mcpclient

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nexus/internal/registry"
)

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
		IsError: isError,
	}
}

func TestToolSchemas(t *testing.T) {
	tool := mcp.Tool{
		Name:        "fetch_url",
		Description: "Fetch a web page",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "The URL to fetch",
				},
			},
			Required: []string{"url"},
		},
	}

	input, output := toolSchemas(tool)

	require.NotNil(t, input)
	assert.Equal(t, "object", input["type"])

	properties, ok := input["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, properties, "url")

	assert.Equal(t, []interface{}{"url"}, input["required"])

	// Nothing declared an output schema, so the graph builder will fall
	// back to the tool description.
	assert.Nil(t, output)
}

func TestDecodeResultJSONObject(t *testing.T) {
	result := textResult(`{"content": "hello", "status_code": 200}`, false)

	decoded, err := decodeResult(result)
	require.NoError(t, err)
	assert.Equal(t, "hello", decoded["content"])
	assert.Equal(t, float64(200), decoded["status_code"])
}

func TestDecodeResultBareText(t *testing.T) {
	decoded, err := decodeResult(textResult("plain answer", false))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"result": "plain answer"}, decoded)
}

func TestDecodeResultJSONArray(t *testing.T) {
	// A top-level array is not the map currency pipelines pass between
	// steps, so it stays wrapped as text.
	decoded, err := decodeResult(textResult(`[1, 2, 3]`, false))
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"result": "[1, 2, 3]"}, decoded)
}

func TestDecodeResultNoContent(t *testing.T) {
	decoded, err := decodeResult(&mcp.CallToolResult{})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{}, decoded)
}

func TestDecodeResultError(t *testing.T) {
	_, err := decodeResult(textResult("connection refused", true))
	require.Error(t, err)
	assert.EqualError(t, err, "connection refused")

	_, err = decodeResult(&mcp.CallToolResult{IsError: true})
	require.Error(t, err)
	assert.EqualError(t, err, "tool call failed")
}

func TestNewClientStdio(t *testing.T) {
	record := &registry.ServerRecord{
		Name:    "web-fetcher",
		Command: "npx",
		Args:    []string{"-y", "@modelcontextprotocol/server-fetch"},
	}

	// An empty transport means stdio.
	mcpClient, err := NewClient(record)
	require.NoError(t, err)
	assert.IsType(t, &StdioClient{}, mcpClient)

	record.Transport = registry.TransportStdio
	mcpClient, err = NewClient(record)
	require.NoError(t, err)
	assert.IsType(t, &StdioClient{}, mcpClient)
}

func TestNewClientStdioRequiresCommand(t *testing.T) {
	_, err := NewClient(&registry.ServerRecord{Name: "broken", Transport: registry.TransportStdio})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command is required")
}

func TestNewClientRemoteTransports(t *testing.T) {
	mcpClient, err := NewClient(&registry.ServerRecord{
		Name:      "summarizer",
		Transport: registry.TransportSSE,
		URL:       "http://localhost:8080/sse",
	})
	require.NoError(t, err)
	assert.IsType(t, &SSEClient{}, mcpClient)

	mcpClient, err = NewClient(&registry.ServerRecord{
		Name:      "notifier",
		Transport: registry.TransportStreamableHTTP,
		URL:       "http://localhost:8080/mcp",
	})
	require.NoError(t, err)
	assert.IsType(t, &StreamableHTTPClient{}, mcpClient)
}

func TestNewClientRemoteTransportsRequireURL(t *testing.T) {
	_, err := NewClient(&registry.ServerRecord{Name: "summarizer", Transport: registry.TransportSSE})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")

	_, err = NewClient(&registry.ServerRecord{Name: "notifier", Transport: registry.TransportStreamableHTTP})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is required")
}

func TestNewClientUnsupportedTransport(t *testing.T) {
	_, err := NewClient(&registry.ServerRecord{Name: "odd", Transport: "websocket"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported transport "websocket"`)
}
