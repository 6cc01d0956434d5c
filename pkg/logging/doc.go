// Package logging provides a structured logging system for nexus with unified
// log handling and level filtering.
//
// This package implements a logging system built on Go's standard slog package,
// providing consistent logging behavior with structured output across all
// subsystems.
//
// # Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about application operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// # Structured Logging
//
// All log entries include:
//   - Timestamp with nanosecond precision
//   - Log level (Debug, Info, Warn, Error)
//   - Subsystem identifier for categorization
//   - Message content with optional formatting
//   - Optional error information
//
// # Usage
//
//	import "nexus/pkg/logging"
//
//	// Initialize with Info level logging to stdout
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//
//	// Log messages
//	logging.Info("Bootstrap", "Application starting up")
//	logging.Debug("Config", "Loaded configuration from %s", configPath)
//	logging.Warn("Registry", "Server %s has no semantic profile", name)
//	logging.Error("Store", err, "Failed to open database")
//
// Subsystem names group related log output so broker, graph, and pipeline
// activity can be filtered independently when reading logs.
package logging
