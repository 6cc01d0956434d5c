package cmd

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"nexus/internal/app"
)

// rootDebug enables verbose logging across the application.
var rootDebug bool

// rootSilent suppresses log output and progress spinners. Command output
// still goes to stdout.
var rootSilent bool

// rootConfigPath specifies a custom configuration directory path.
// When unset, commands use the default user configuration directory.
var rootConfigPath string

// rootCmd represents the base command for the nexus application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Semantic broker for MCP tool servers",
	Long: `nexus registers MCP tool servers, profiles what each one can do, and builds
a capability graph connecting their operations. Natural language requests are
planned as pipelines across that graph and executed step by step, translating
data between servers where schemas differ.

AI assistants connect to the single broker endpoint started by 'nexus serve'
instead of managing every tool server separately.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors
	// that are handled by the application.
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Oracle API keys commonly live in a .env next to the process.
		// A missing file is not an error.
		_ = godotenv.Load()
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles subcommands and flags.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "nexus version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap builds the application for a one-shot command invocation.
// The caller owns the returned application and must Close it.
func bootstrap(cmd *cobra.Command) (*app.Application, error) {
	return app.NewApplication(commandContext(cmd), app.NewConfig(rootDebug, rootSilent, rootConfigPath))
}

// commandContext returns the command's context, falling back to Background
// when cobra was invoked without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&rootSilent, "silent", false, "Suppress log output and spinners")
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config-path", "", "Custom configuration directory path (default ~/.config/nexus)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
