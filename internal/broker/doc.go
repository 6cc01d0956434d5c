// Package broker exposes nexus itself as an MCP server.
//
// The broker is the facade downstream clients talk to: one MCP server whose
// tools wrap the registry, the capability graph, pipeline discovery and
// pipeline execution. It serves the same transports tool servers use
// (streamable-http, sse, stdio), plus an optional dedicated Prometheus
// listener that works regardless of transport.
package broker
