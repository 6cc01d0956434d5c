package mcpclient

import (
	"fmt"

	"nexus/internal/registry"
)

// NewClient creates the transport-appropriate client for a server record.
// An empty transport means stdio, matching the registration default.
func NewClient(record *registry.ServerRecord) (MCPClient, error) {
	switch record.Transport {
	case "", registry.TransportStdio:
		if record.Command == "" {
			return nil, fmt.Errorf("server %s: command is required for stdio transport", record.Name)
		}
		return NewStdioClient(record.Command, record.Args, record.Env), nil

	case registry.TransportSSE:
		if record.URL == "" {
			return nil, fmt.Errorf("server %s: url is required for sse transport", record.Name)
		}
		return NewSSEClient(record.URL), nil

	case registry.TransportStreamableHTTP:
		if record.URL == "" {
			return nil, fmt.Errorf("server %s: url is required for streamable-http transport", record.Name)
		}
		return NewStreamableHTTPClient(record.URL), nil

	default:
		return nil, fmt.Errorf("server %s: unsupported transport %q", record.Name, record.Transport)
	}
}
