package mcpclient

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"nexus/pkg/logging"
)

// StreamableHTTPClient talks to a remote tool server over the
// streamable-http transport.
type StreamableHTTPClient struct {
	baseClient
	url string
}

// NewStreamableHTTPClient creates a streamable-http client for the given
// URL. No connection is made until Initialize.
func NewStreamableHTTPClient(url string) *StreamableHTTPClient {
	return &StreamableHTTPClient{url: url}
}

// Initialize connects to the endpoint and performs the MCP handshake. The
// streamable-http transport connects lazily, so unlike SSE there is no
// separate start step.
func (c *StreamableHTTPClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	logging.Debug("StreamableHTTPClient", "Connecting to %s", c.url)

	mcpClient, err := client.NewStreamableHttpClient(c.url)
	if err != nil {
		return fmt.Errorf("failed to create streamable-http client: %w", err)
	}

	if _, err := mcpClient.Initialize(ctx, initializeRequest()); err != nil {
		if closeErr := mcpClient.Close(); closeErr != nil {
			logging.Debug("StreamableHTTPClient", "Failed to close client after handshake error: %v", closeErr)
		}
		return fmt.Errorf("failed to initialize MCP protocol: %w", err)
	}

	c.client = mcpClient
	c.connected = true
	return nil
}

// Close shuts down the session.
func (c *StreamableHTTPClient) Close() error {
	return c.closeClient()
}

// ListTools returns the tools the server exposes.
func (c *StreamableHTTPClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return c.listTools(ctx)
}

// CallTool executes a named tool with the given arguments.
func (c *StreamableHTTPClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	return c.callTool(ctx, name, args)
}

// Ping checks that the server is responsive.
func (c *StreamableHTTPClient) Ping(ctx context.Context) error {
	return c.ping(ctx)
}
