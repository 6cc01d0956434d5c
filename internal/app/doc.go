// Package app provides application bootstrap and lifecycle management for nexus.
//
// This package is the composition root: it loads configuration, initializes
// logging, wires every subsystem into one explicit dependency container, and
// runs the broker until shutdown. Commands and the serve loop share the same
// container, so a pipeline executed from the CLI goes through exactly the
// code path the MCP facade uses.
//
// # Architecture Overview
//
// The app package has four components:
//
//  1. Configuration (`config.go`): runtime flags plus the loaded NexusConfig
//  2. Bootstrap (`bootstrap.go`): Application initialization and lifecycle
//  3. Components (`components.go`): explicit wiring of store, oracle,
//     registry, graph, translator, executor, and broker
//  4. Run loop (`run.go`): definition sync, broker startup, definitions
//     watcher, signal handling, graceful shutdown
//
// # Initialization Sequence
//
// NewApplication performs the complete bootstrap:
//
//  1. Logging setup from the debug and silent flags. Logs go to stderr:
//     stdout carries command output, and under the stdio transport it
//     carries MCP protocol frames.
//  2. Configuration loading from the config directory (or the default
//     ~/.config/nexus). A missing config.yaml means defaults.
//  3. Component wiring in dependency order: SQLite store, oracle client,
//     registry warmed from persisted servers, operation caller, registration
//     manager, embedding index, capability graph loaded from storage,
//     translation engine, pipeline executor, broker facade.
//
// Initialization is fail-fast: a store that cannot open, a provider with no
// API key, or a database that cannot be read aborts the bootstrap. There is
// no degraded half-wired mode.
//
// # Serve Lifecycle
//
// Application.Run drives the broker:
//
//   - Refresh the operations of every server warmed from storage
//     (concurrently; unreachable servers go offline).
//   - Sync definition files from <config>/servers: new definitions are
//     registered, changed ones re-registered. Servers registered through the
//     facade keep living without a file.
//   - Start the broker on the configured transport and, when anything was
//     registered, schedule an incremental graph rebuild.
//   - Watch the definitions directory and apply create/update/delete events
//     while serving.
//   - Block until SIGINT/SIGTERM or context cancellation, then stop the
//     broker and wait for background rebuilds.
//
// # Usage
//
//	cfg := app.NewConfig(debug, silent, configPath)
//	application, err := app.NewApplication(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to initialize application: %w", err)
//	}
//	defer application.Close()
//	return application.Run(ctx)
//
// One-shot commands use the same bootstrap but skip Run, working directly
// against Application.Components().
package app
