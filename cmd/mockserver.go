package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nexus/internal/testing/mock"
)

// mockServerCmd runs a scripted MCP server over stdio. It stands in for a
// real downstream server during development: register it like any other
// stdio server and pipelines will call its scripted tools.
var mockServerCmd = &cobra.Command{
	Use:   "mock-server <config.yaml>",
	Short: "Run a scripted mock MCP server over stdio",
	Long: `Serves the tools defined in a YAML file over the stdio transport, answering
calls with scripted responses. The server name is derived from the file name.

Register a mock server against nexus to exercise registration, profiling,
graph builds and pipeline execution without any real downstream servers:

  nexus register web-fetcher --command nexus --arg mock-server --arg ./web-fetcher.yaml

Each tool entry declares a name, description, input_schema and one or more
responses. Responses may carry a condition on the call arguments, a simulated
delay, and either a response payload or an error; {{ .arg }} templates in the
payload are filled from the call arguments.`,
	Args: cobra.ExactArgs(1),
	RunE: runMockServer,
}

// runMockServer loads the tool definitions and serves until stdin closes.
func runMockServer(cmd *cobra.Command, args []string) error {
	server, err := mock.NewServerFromFile(args[0], rootDebug)
	if err != nil {
		return fmt.Errorf("failed to create mock MCP server: %w", err)
	}
	return server.Start(commandContext(cmd))
}

func init() {
	rootCmd.AddCommand(mockServerCmd)
}
