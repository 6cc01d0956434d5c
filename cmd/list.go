package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"nexus/internal/cli"
)

var listOutput cli.OutputFlags

// listCmd defines the list command structure.
var listCmd = &cobra.Command{
	Use:   "list [NAME]",
	Short: "List registered tool servers",
	Long: `Without arguments, lists every registered server with its status, transport
and operation count. With a name, shows that server's semantic profile and
full operation list.

Use -o wide for endpoints and capability tags, or -o json / -o yaml for
machine-readable output.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

// runList renders the server listing or a single server's detail.
func runList(cmd *cobra.Command, args []string) error {
	application, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	renderer, err := listOutput.Renderer(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	reg := application.Components().Registry
	if len(args) == 1 {
		record := reg.Get(args[0])
		if record == nil {
			return fmt.Errorf("server %q is not registered", args[0])
		}
		return renderer.ServerDetail(record)
	}
	return renderer.Servers(reg.Snapshot())
}

func init() {
	rootCmd.AddCommand(listCmd)

	cli.RegisterOutputFlags(listCmd, &listOutput)
}
