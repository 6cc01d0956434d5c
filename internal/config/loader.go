package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"nexus/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir    = ".config/nexus"
	configFileName   = "config.yaml"
	serversDirName   = "servers"
	databaseFileName = "nexus.db"
)

func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// ServersPath returns the directory holding MCP server definition files
// under the given configuration directory.
func ServersPath(configPath string) string {
	return filepath.Join(configPath, serversDirName)
}

// DatabasePath resolves the SQLite database location. An explicit
// storage.path wins; otherwise the database lives next to config.yaml.
func DatabasePath(configPath string, cfg NexusConfig) string {
	if cfg.Storage.Path != "" {
		return cfg.Storage.Path
	}
	return filepath.Join(configPath, databaseFileName)
}

// LoadConfig loads configuration from a single specified directory.
// The directory should contain config.yaml and a servers/ subdirectory with
// MCP server definitions. A missing config.yaml is not an error; defaults
// apply and files can be added later.
func LoadConfig(configPath string) (NexusConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig() // Start with default config

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return NexusConfig{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		// config malformed
		return NexusConfig{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	if err := config.Validate(); err != nil {
		return NexusConfig{}, fmt.Errorf("invalid config at %s: %w", configFilePath, err)
	}
	logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}
