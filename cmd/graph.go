package cmd

import (
	"github.com/spf13/cobra"

	"nexus/internal/cli"
	"nexus/internal/graph"
)

// graphBuildFull forces a full rebuild instead of the incremental default.
var graphBuildFull bool

// graphMaxHops bounds path searches; zero means the configured limit.
var graphMaxHops int

var (
	graphBuildOutput cli.OutputFlags
	graphShowOutput  cli.OutputFlags
	graphPathsOutput cli.OutputFlags
)

// graphCmd groups the capability-graph subcommands.
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect and rebuild the capability graph",
	Long: `The capability graph connects operations whose outputs can feed other
operations' inputs, either directly or through translation. Discovery plans
pipelines along its edges.`,
}

// graphBuildCmd defines the graph build subcommand.
var graphBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Validate operation pairs and rebuild the graph",
	Long: `Embeds every registered operation, selects candidate pairs by embedding
similarity, and asks the oracle to validate each pair's compatibility.

By default the build is incremental: pairs that already have a stored edge
are kept without re-validation. --full clears the stored edges first and
revalidates everything, which costs one oracle call per candidate pair.`,
	Args: cobra.NoArgs,
	RunE: runGraphBuild,
}

// runGraphBuild rebuilds the edge set from the current registrations.
func runGraphBuild(cmd *cobra.Command, args []string) error {
	application, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	c := application.Components()
	ctx := commandContext(cmd)

	var stats graph.BuildStats
	err = cli.RunWithSpinner(rootSilent, "Building capability graph", func() error {
		var buildErr error
		stats, buildErr = c.Graph.BuildEdges(ctx, c.Registry.Snapshot(), !graphBuildFull)
		return buildErr
	})
	if err != nil {
		return err
	}

	renderer, err := graphBuildOutput.Renderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return renderer.BuildReport(stats)
}

// graphShowCmd defines the graph show subcommand.
var graphShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show discovered connections",
	Long: `Lists every edge in the capability graph ordered by confidence. Use -o wide
to include the oracle's translation hints.`,
	Args: cobra.NoArgs,
	RunE: runGraphShow,
}

// runGraphShow renders the edge list.
func runGraphShow(cmd *cobra.Command, args []string) error {
	application, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	renderer, err := graphShowOutput.Renderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return renderer.Connections(application.Components().Graph.SortedByConfidence())
}

// graphPathsCmd defines the graph paths subcommand.
var graphPathsCmd = &cobra.Command{
	Use:   "paths SOURCE TARGET",
	Short: "Find routes between two servers",
	Long: `Searches the capability graph for server-level routes from SOURCE to TARGET,
shortest first. A route exists when each consecutive pair of servers shares
at least one compatible operation edge.`,
	Args: cobra.ExactArgs(2),
	RunE: runGraphPaths,
}

// runGraphPaths renders the routes between two servers.
func runGraphPaths(cmd *cobra.Command, args []string) error {
	application, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	maxHops := graphMaxHops
	if maxHops <= 0 {
		maxHops = application.Config().NexusConfig.Graph.MaxHops
	}

	renderer, err := graphPathsOutput.Renderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return renderer.Paths(application.Components().Graph.FindPaths(args[0], args[1], maxHops))
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.AddCommand(graphBuildCmd)
	graphCmd.AddCommand(graphShowCmd)
	graphCmd.AddCommand(graphPathsCmd)

	// Register command flags
	graphBuildCmd.Flags().BoolVar(&graphBuildFull, "full", false, "Clear stored edges and revalidate every pair")
	graphPathsCmd.Flags().IntVar(&graphMaxHops, "max-hops", 0, "Route length limit in servers (0 uses the configured graph.maxHops)")
	cli.RegisterOutputFlags(graphBuildCmd, &graphBuildOutput)
	cli.RegisterOutputFlags(graphShowCmd, &graphShowOutput)
	cli.RegisterOutputFlags(graphPathsCmd, &graphPathsOutput)
}
