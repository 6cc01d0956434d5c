// Package config provides configuration management for nexus.
//
// This package implements a simple configuration system that loads configuration
// from a single directory. The default configuration directory is ~/.config/nexus,
// but users can specify a custom directory using the --config-path flag in commands.
//
// # Configuration Directory
//
// Configuration is loaded from a single directory containing:
//   - config.yaml (main configuration file)
//   - servers/ (MCP server definition files, one YAML document per server)
//   - nexus.db (SQLite database, created on first use unless storage.path points elsewhere)
//
// # Loading Behavior
//
// LoadConfig starts from GetDefaultConfig and overlays whatever config.yaml
// provides. A missing config.yaml is not an error; a malformed one is. The
// loaded configuration is validated before being returned, so commands can
// rely on enumerated fields (transport, provider, failure policy) holding
// accepted values or being empty.
//
// # Configuration Sections
//
//   - broker: host, port and transport of the MCP facade
//   - oracle: language model provider selection and rate limit tuning
//   - graph: similarity threshold, candidate cap and path depth
//   - execution: failure policy, delivery channel and call timeout
//   - storage: SQLite database location
package config
