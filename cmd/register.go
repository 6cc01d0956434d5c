package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nexus/internal/cli"
	"nexus/internal/registry"
)

// registerCommand is the executable that launches a stdio tool server.
var registerCommand string

// registerArgs are the arguments passed to the launch command.
var registerArgs []string

// registerEnv holds extra environment variables for the launched server.
var registerEnv map[string]string

// registerTransport selects how the server is reached (stdio, sse,
// streamable-http). Empty means stdio for command servers and
// streamable-http for URL servers.
var registerTransport string

// registerURL is the endpoint of a remote tool server.
var registerURL string

// registerForce allows re-registering an existing name, refreshing its
// operations and semantic profile.
var registerForce bool

var registerOutput cli.OutputFlags

// registerCmd defines the register command structure.
var registerCmd = &cobra.Command{
	Use:   "register NAME",
	Short: "Register an MCP tool server",
	Long: `Connects to the tool server, lists its operations, asks the oracle for a
semantic profile, and persists the record in the catalog. Stdio servers are
launched from --command and its --arg values; remote servers are reached via
--url.

Re-registering an existing name requires --force and refreshes the server's
operations and profile in place.

After registering, run 'nexus graph build' to connect the new operations to
the rest of the capability graph.

Examples:
  nexus register web-fetcher --command node --arg fetch-server.js
  nexus register slack-sender --url http://localhost:9400/mcp
  nexus register summarizer --command python --arg summarize.py --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

// runRegister connects, profiles, and persists one tool server.
func runRegister(cmd *cobra.Command, args []string) error {
	application, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	def := registry.Definition{
		Name:      args[0],
		Command:   registerCommand,
		Args:      registerArgs,
		Env:       registerEnv,
		Transport: registerTransport,
		URL:       registerURL,
	}
	if def.Command == "" && def.URL == "" {
		return fmt.Errorf("either --command or --url is required")
	}

	ctx := commandContext(cmd)
	var record *registry.ServerRecord
	err = cli.RunWithSpinner(rootSilent, fmt.Sprintf("Registering %s", def.Name), func() error {
		var registerErr error
		record, registerErr = application.Components().Manager.Register(ctx, def, registerForce)
		return registerErr
	})
	if err != nil {
		return err
	}

	renderer, err := registerOutput.Renderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return renderer.ServerDetail(record)
}

func init() {
	rootCmd.AddCommand(registerCmd)

	// Register command flags
	registerCmd.Flags().StringVar(&registerCommand, "command", "", "Executable that launches the tool server")
	registerCmd.Flags().StringArrayVar(&registerArgs, "arg", nil, "Argument for the launch command (repeatable)")
	registerCmd.Flags().StringToStringVar(&registerEnv, "env", nil, "Environment variable for the server as KEY=VALUE (repeatable)")
	registerCmd.Flags().StringVar(&registerTransport, "transport", "", "Transport to the server: stdio, sse or streamable-http")
	registerCmd.Flags().StringVar(&registerURL, "url", "", "Endpoint of a remote tool server")
	registerCmd.Flags().BoolVar(&registerForce, "force", false, "Replace an existing registration")
	cli.RegisterOutputFlags(registerCmd, &registerOutput)
}
