package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"nexus/internal/config"
	"nexus/pkg/logging"
)

// Application represents the main application structure that bootstraps and
// runs nexus. It encapsulates the loaded configuration and the component
// container shared by the broker serve loop and the one-shot CLI commands.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: load configuration, initialize logging, wire components
//  2. Execution phase: run the broker, or hand the components to a command
//
// Example usage:
//
//	cfg := app.NewConfig(false, false, "")
//	application, err := app.NewApplication(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	defer application.Close()
//	return application.Run(ctx)
type Application struct {
	config     *Config
	components *Components
}

// NewApplication creates and initializes a new application instance with the
// provided configuration. This function performs the complete bootstrap
// sequence:
//
//  1. Configures logging based on debug and silent settings
//  2. Loads nexus configuration from the config directory
//  3. Wires all components in dependency order
//
// Configuration Loading Behavior:
//   - If cfg.ConfigPath is set: loads from the specified directory
//   - If cfg.ConfigPath is empty: uses the default user config directory
//     (~/.config/nexus), which is also written back to cfg.ConfigPath so
//     later path lookups (servers directory, database) resolve consistently
//
// The context bounds provider client construction and the initial storage
// reads. The function returns an error if any critical initialization step
// fails, including configuration loading or component wiring failures.
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	// Configure logging based on debug flag
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}

	// Logs go to stderr: stdout carries command output, and under the stdio
	// transport it carries MCP protocol frames.
	var logOutput io.Writer = os.Stderr
	if cfg.Silent {
		logOutput = io.Discard
	}
	logging.InitForCLI(appLogLevel, logOutput)

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	nexusCfg, err := config.LoadConfig(configPath)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to load nexus configuration from path: %s", configPath)
		return nil, fmt.Errorf("failed to load nexus configuration from path %s: %w", configPath, err)
	}

	cfg.ConfigPath = configPath
	cfg.NexusConfig = &nexusCfg

	components, err := InitializeComponents(ctx, cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize components")
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return &Application{
		config:     cfg,
		components: components,
	}, nil
}

// Components returns the wired component container. One-shot commands work
// against it directly instead of going through Run.
func (a *Application) Components() *Components {
	return a.components
}

// Config returns the application configuration, including the loaded
// NexusConfig.
func (a *Application) Config() *Config {
	return a.config
}

// Run executes the application: it brings the broker online and blocks
// until the application is terminated by a signal or context cancellation.
//
// Returns an error if the broker fails to start or encounters a runtime
// error during shutdown.
func (a *Application) Run(ctx context.Context) error {
	return runBroker(ctx, a.config, a.components)
}

// Close releases the resources held by the component container.
func (a *Application) Close() error {
	return a.components.Close()
}
