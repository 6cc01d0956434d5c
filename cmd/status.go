package cmd

import (
	"github.com/spf13/cobra"

	"nexus/internal/cli"
)

var statusOutput cli.OutputFlags

// statusCmd defines the status command structure.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog statistics",
	Long: `Shows counts of registered servers, operations, capability graph
connections, and recorded pipeline runs from the persistent catalog.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

// runStatus renders the catalog statistics.
func runStatus(cmd *cobra.Command, args []string) error {
	application, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	stats, err := application.Components().Store.Stats(commandContext(cmd))
	if err != nil {
		return err
	}

	renderer, err := statusOutput.Renderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return renderer.Stats(stats)
}

func init() {
	rootCmd.AddCommand(statusCmd)

	cli.RegisterOutputFlags(statusCmd, &statusOutput)
}
