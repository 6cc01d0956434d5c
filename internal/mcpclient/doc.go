// Package mcpclient connects the broker to registered tool servers over the
// MCP protocol.
//
// Three transports are supported: stdio for local subprocesses, sse and
// streamable-http for remote endpoints. NewClient picks the right one from a
// server record. OperationCaller is the production implementation of the
// registry's operation lister and the pipeline executor's tool caller; it
// opens one short-lived session per listing or call rather than keeping
// connections warm.
package mcpclient
