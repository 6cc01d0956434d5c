package formatting

import "fmt"

// OutputFormat selects how CLI commands render their results.
type OutputFormat string

const (
	// FormatTable renders a table with the most useful columns.
	FormatTable OutputFormat = "table"
	// FormatWide renders a table with additional detail columns.
	FormatWide OutputFormat = "wide"
	// FormatJSON renders the raw data as indented JSON.
	FormatJSON OutputFormat = "json"
	// FormatYAML renders the raw data as YAML.
	FormatYAML OutputFormat = "yaml"
)

// ValidOutputFormats lists every format accepted by --output.
var ValidOutputFormats = []OutputFormat{
	FormatTable,
	FormatWide,
	FormatJSON,
	FormatYAML,
}

// ValidateOutputFormat validates that the given format string is a supported
// output format.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case FormatTable, FormatWide, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %q (valid: table, wide, json, yaml)", format)
	}
}
