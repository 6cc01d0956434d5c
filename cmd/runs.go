package cmd

import (
	"github.com/spf13/cobra"

	"nexus/internal/cli"
)

// runsLimit caps how many runs the history listing shows.
var runsLimit int

var runsOutput cli.OutputFlags

// runsCmd defines the runs command structure.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show pipeline run history",
	Long: `Lists recorded pipeline runs, newest first. Use -o wide for full run IDs and
untruncated requests, or -o json for the complete step results.`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

// runRuns renders the recorded pipeline history.
func runRuns(cmd *cobra.Command, args []string) error {
	application, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	history, err := application.Components().Store.PipelineHistory(commandContext(cmd), runsLimit)
	if err != nil {
		return err
	}

	renderer, err := runsOutput.Renderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return renderer.Runs(history)
}

func init() {
	rootCmd.AddCommand(runsCmd)

	// Register command flags
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to show")
	cli.RegisterOutputFlags(runsCmd, &runsOutput)
}
