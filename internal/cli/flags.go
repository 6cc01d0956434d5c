package cli

import (
	"io"

	"github.com/spf13/cobra"

	"nexus/internal/formatting"
)

// OutputFlags holds the output-format flag shared by the commands that
// render listings or details.
type OutputFlags struct {
	Format string
}

// RegisterOutputFlags registers --output/-o on the command.
func RegisterOutputFlags(cmd *cobra.Command, flags *OutputFlags) {
	cmd.Flags().StringVarP(&flags.Format, "output", "o", string(formatting.FormatTable), "Output format (table, wide, json, yaml)")
}

// Renderer validates the selected format and builds a renderer for it.
func (f *OutputFlags) Renderer(out io.Writer) (*formatting.Renderer, error) {
	if err := formatting.ValidateOutputFormat(f.Format); err != nil {
		return nil, err
	}
	return formatting.NewRenderer(out, formatting.OutputFormat(f.Format)), nil
}
