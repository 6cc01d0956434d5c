package app

import (
	"nexus/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// Silent suppresses all log output
	Silent bool

	// Custom configuration path (optional)
	// When unset, the default user configuration directory is used.
	ConfigPath string

	// Environment configuration
	NexusConfig *config.NexusConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug, silent bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		ConfigPath: configPath,
	}
}
