// Package mock provides test doubles for nexus components.
//
// It contains three groups of helpers:
//
// Clock: an injectable time source (Clock, RealClock, MockClock) used by the
// oracle rate limiter so call spacing and backoff can be tested without
// real sleeps.
//
// Oracle and tool caller doubles: MockOracle scripts reasoning responses and
// produces deterministic embeddings; MockToolCaller returns canned outputs
// keyed by "server.operation" and records every invocation. Together they
// let graph construction, discovery and pipeline execution run entirely
// offline.
//
// Server: a YAML-configured mock MCP server served over stdio. It simulates
// downstream servers with predefined tools and behaviors:
//   - Mock tools with configurable responses and input schemas
//   - Conditional responses based on input parameters
//   - Simulated delays and error conditions
//   - Template-based response generation
//
// Run one with `nexus mock-server <file.yaml>` and register it like any
// other stdio server to exercise discovery and execution end to end without
// real downstream dependencies.
package mock
