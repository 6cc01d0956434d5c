package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nexus/internal/app"
	"nexus/internal/cli"
	"nexus/internal/discovery"
	"nexus/internal/pipeline"
)

var discoverOutput cli.OutputFlags

// discoverCmd defines the discover command structure.
var discoverCmd = &cobra.Command{
	Use:   "discover REQUEST...",
	Short: "Plan a pipeline for a natural language request",
	Long: `Asks the oracle to plan a pipeline over the registered servers and the
capability graph without executing anything. All arguments are joined into
one request, so quoting is optional.

Example:
  nexus discover summarize hackernews and post it to slack`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDiscover,
}

// runDiscover plans a pipeline and renders it.
func runDiscover(cmd *cobra.Command, args []string) error {
	application, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	c := application.Components()
	if err := planningGuard(c); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	request := strings.Join(args, " ")

	var plan *pipeline.Pipeline
	err = cli.RunWithSpinner(rootSilent, "Planning pipeline", func() error {
		var planErr error
		plan, planErr = discovery.New(c.Registry.Snapshot(), c.Graph.Edges(), c.Oracle).Discover(ctx, request)
		return planErr
	})
	if err != nil {
		return err
	}

	renderer, err := discoverOutput.Renderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return renderer.Plan(plan)
}

// planningGuard mirrors the broker's readiness checks with CLI wording, so
// discover and execute fail with an actionable message instead of an empty
// plan.
func planningGuard(c *app.Components) error {
	if c.Registry.Len() == 0 {
		return fmt.Errorf("no servers registered (run: nexus register)")
	}
	if c.Graph.Len() == 0 {
		return fmt.Errorf("capability graph is empty (run: nexus graph build)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(discoverCmd)

	cli.RegisterOutputFlags(discoverCmd, &discoverOutput)
}
