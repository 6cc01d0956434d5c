package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nexus/internal/app"
)

// serveCmd defines the serve command structure.
// This is the main command of nexus: it starts the broker facade that AI
// assistants connect to.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the nexus broker",
	Long: `Starts the MCP broker facade and keeps it running until interrupted.

The broker exposes the nexus meta-tools (register_server, build_graph,
discover_pipeline, execute_pipeline, ...) over the configured transport
(streamable-http, sse or stdio). Server definitions in the configuration
directory's servers/ folder are registered at startup and watched for
changes while serving.

Configuration:
  nexus loads config.yaml from the user configuration directory
  (~/.config/nexus by default). Use --config-path to point at a different
  directory; server definitions are read from <config-path>/servers and the
  catalog database lives at <config-path>/nexus.db unless the config file
  says otherwise.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command.
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(rootDebug, rootSilent, rootConfigPath)

	application, err := app.NewApplication(commandContext(cmd), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer application.Close()

	return application.Run(commandContext(cmd))
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
