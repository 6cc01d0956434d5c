package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// unregisterCmd defines the unregister command structure.
var unregisterCmd = &cobra.Command{
	Use:   "unregister NAME",
	Short: "Remove a registered tool server",
	Long: `Removes the server from the catalog and from persistent storage. Capability
edges touching the server's operations are removed with it, so the graph
never routes through an unregistered server.`,
	Args: cobra.ExactArgs(1),
	RunE: runUnregister,
}

// runUnregister removes one server and its edges.
func runUnregister(cmd *cobra.Command, args []string) error {
	application, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.Components().Manager.Unregister(commandContext(cmd), args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Unregistered %s\n", args[0])
	return nil
}

func init() {
	rootCmd.AddCommand(unregisterCmd)
}
