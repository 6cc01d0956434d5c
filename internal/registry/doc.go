// Package registry manages the catalog of tool servers the broker knows
// about.
//
// The Registry is the in-memory, thread-safe catalog of ServerRecord values.
// The Manager drives the registration lifecycle around it: it connects to a
// server, lists its operations, asks the semantic profiler to describe it,
// persists the record, and publishes it. Definitions are YAML files in the
// servers directory (see LoadDefinitions), and the Watcher turns filesystem
// changes in that directory into debounced ChangeEvents so running brokers
// pick up edits without a restart.
//
// The capability graph, discovery, and execution layers all consume records
// from here read-only; every mutation flows through the Registry so that
// published record snapshots never change underneath a reader.
package registry
