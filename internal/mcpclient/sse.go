package mcpclient

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"nexus/pkg/logging"
)

// SSEClient talks to a remote tool server over Server-Sent Events.
type SSEClient struct {
	baseClient
	url string
}

// NewSSEClient creates an SSE client for the given base URL. No connection
// is made until Initialize.
func NewSSEClient(url string) *SSEClient {
	return &SSEClient{url: url}
}

// Initialize connects to the SSE endpoint and performs the MCP handshake.
func (c *SSEClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	logging.Debug("SSEClient", "Connecting to %s", c.url)

	mcpClient, err := client.NewSSEMCPClient(c.url)
	if err != nil {
		return fmt.Errorf("failed to create SSE client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("failed to start SSE transport: %w", err)
	}

	if _, err := mcpClient.Initialize(ctx, initializeRequest()); err != nil {
		if closeErr := mcpClient.Close(); closeErr != nil {
			logging.Debug("SSEClient", "Failed to close client after handshake error: %v", closeErr)
		}
		return fmt.Errorf("failed to initialize MCP protocol: %w", err)
	}

	c.client = mcpClient
	c.connected = true
	return nil
}

// Close shuts down the SSE session.
func (c *SSEClient) Close() error {
	return c.closeClient()
}

// ListTools returns the tools the server exposes.
func (c *SSEClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return c.listTools(ctx)
}

// CallTool executes a named tool with the given arguments.
func (c *SSEClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	return c.callTool(ctx, name, args)
}

// Ping checks that the server is responsive.
func (c *SSEClient) Ping(ctx context.Context) error {
	return c.ping(ctx)
}
