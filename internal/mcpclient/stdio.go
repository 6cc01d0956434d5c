package mcpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"nexus/pkg/logging"
)

// DefaultStdioInitTimeout bounds subprocess startup plus the MCP handshake
// when the caller's context carries no deadline of its own.
const DefaultStdioInitTimeout = 10 * time.Second

// StdioClient runs a tool server as a local subprocess and talks to it over
// stdin/stdout.
type StdioClient struct {
	baseClient
	command string
	args    []string
	env     map[string]string
}

// NewStdioClient creates a stdio client. The subprocess starts on
// Initialize, not here.
func NewStdioClient(command string, args []string, env map[string]string) *StdioClient {
	return &StdioClient{
		command: command,
		args:    args,
		env:     env,
	}
}

// Initialize starts the subprocess and performs the MCP handshake.
func (c *StdioClient) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	logging.Debug("StdioClient", "Starting %s %v", c.command, c.args)

	var envStrings []string
	for key, value := range c.env {
		envStrings = append(envStrings, fmt.Sprintf("%s=%s", key, value))
	}

	mcpClient, err := client.NewStdioMCPClient(c.command, envStrings, c.args...)
	if err != nil {
		return fmt.Errorf("failed to create stdio client: %w", err)
	}

	initCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		initCtx, cancel = context.WithTimeout(ctx, DefaultStdioInitTimeout)
		defer cancel()
	}

	if _, err := mcpClient.Initialize(initCtx, initializeRequest()); err != nil {
		if closeErr := mcpClient.Close(); closeErr != nil {
			logging.Debug("StdioClient", "Failed to close client after handshake error: %v", closeErr)
		}
		return fmt.Errorf("failed to initialize MCP protocol: %w", err)
	}

	c.client = mcpClient
	c.connected = true
	return nil
}

// Close terminates the subprocess session.
func (c *StdioClient) Close() error {
	return c.closeClient()
}

// ListTools returns the tools the server exposes.
func (c *StdioClient) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	return c.listTools(ctx)
}

// CallTool executes a named tool with the given arguments.
func (c *StdioClient) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	return c.callTool(ctx, name, args)
}

// Ping checks that the server is responsive.
func (c *StdioClient) Ping(ctx context.Context) error {
	return c.ping(ctx)
}
