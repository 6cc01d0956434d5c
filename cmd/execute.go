package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"nexus/internal/broker"
	"nexus/internal/cli"
	"nexus/internal/discovery"
	"nexus/internal/pipeline"
)

// executeURL seeds the first step's input when the request text does not
// already carry a URL.
var executeURL string

// executeChannel overrides the delivery channel for steps that post messages.
var executeChannel string

// executeSourceLanguage and executeTargetLanguage steer translation steps.
var (
	executeSourceLanguage string
	executeTargetLanguage string
)

var executeOutput cli.OutputFlags

// executeCmd defines the execute command structure.
var executeCmd = &cobra.Command{
	Use:   "execute REQUEST...",
	Short: "Discover and run a pipeline",
	Long: `Plans a pipeline for the request and executes it step by step, translating
data between steps where the capability graph says translation is needed.
All arguments are joined into one request.

URLs mentioned in the request are promoted to the first step's input
automatically; --url does the same explicitly. Failed steps are reported in
the run detail; by default execution continues past them (execution.failurePolicy).

Examples:
  nexus execute fetch https://hn.algolia.com/api/v1/search?tags=front_page and summarize it
  nexus execute summarize cnn.com in german --target-language de --channel "#news"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExecute,
}

// runExecute plans, runs, and renders one pipeline.
func runExecute(cmd *cobra.Command, args []string) error {
	application, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	c := application.Components()
	if err := planningGuard(c); err != nil {
		return err
	}

	execution := broker.PrepareExecution(broker.Request{
		Request:        strings.Join(args, " "),
		URL:            executeURL,
		Channel:        executeChannel,
		SourceLanguage: executeSourceLanguage,
		TargetLanguage: executeTargetLanguage,
	}, application.Config().NexusConfig.Execution.DefaultChannel)

	ctx := commandContext(cmd)
	var run *pipeline.Run
	err = cli.RunWithSpinner(rootSilent, "Executing pipeline", func() error {
		plan, planErr := discovery.New(c.Registry.Snapshot(), c.Graph.Edges(), c.Oracle).Discover(ctx, execution.FullRequest)
		if planErr != nil {
			return planErr
		}
		var execErr error
		run, execErr = c.Executor.Execute(ctx, execution.FullRequest, plan, execution.InitialInput, execution.Context)
		return execErr
	})
	if err != nil {
		return err
	}

	renderer, err := executeOutput.Renderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return renderer.RunDetail(run)
}

func init() {
	rootCmd.AddCommand(executeCmd)

	// Register command flags
	executeCmd.Flags().StringVar(&executeURL, "url", "", "URL handed to the first pipeline step")
	executeCmd.Flags().StringVar(&executeChannel, "channel", "", "Delivery channel for message-posting steps")
	executeCmd.Flags().StringVar(&executeSourceLanguage, "source-language", "", "Source language hint for translation steps")
	executeCmd.Flags().StringVar(&executeTargetLanguage, "target-language", "", "Target language for translation steps")
	cli.RegisterOutputFlags(executeCmd, &executeOutput)
}
