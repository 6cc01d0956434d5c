package formatting

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"nexus/internal/graph"
	"nexus/internal/pipeline"
	"nexus/internal/registry"
)

// Renderer writes broker entities to one destination in the selected output
// format. Every table method falls through to JSON or YAML rendering of the
// same value when a machine format is selected.
type Renderer struct {
	out    io.Writer
	format OutputFormat
}

// NewRenderer creates a renderer. The format is assumed to have passed
// ValidateOutputFormat.
func NewRenderer(out io.Writer, format OutputFormat) *Renderer {
	return &Renderer{out: out, format: format}
}

// structured reports whether the renderer emits a machine format, in which
// case table methods hand the raw value to renderStructured instead.
func (r *Renderer) structured() bool {
	return r.format == FormatJSON || r.format == FormatYAML
}

// wide reports whether the detail columns should be included.
func (r *Renderer) wide() bool {
	return r.format == FormatWide
}

func (r *Renderer) renderStructured(v interface{}) error {
	switch r.format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		fmt.Fprintln(r.out, string(data))
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		fmt.Fprint(r.out, string(data))
	default:
		return fmt.Errorf("unsupported output format: %s", r.format)
	}
	return nil
}

// newTable creates a table writer with the house style.
func (r *Renderer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	return t
}

// empty prints the message shown when a listing has nothing to show.
func (r *Renderer) empty(message string) {
	fmt.Fprintln(r.out, text.FgYellow.Sprint(message))
}

// statusCell colors a server or run status for table cells.
func statusCell(status string) string {
	switch status {
	case registry.StatusProfiled, pipeline.StatusCompleted:
		return text.FgGreen.Sprint(status)
	case registry.StatusRegistered, pipeline.StatusPartial:
		return text.FgYellow.Sprint(status)
	case registry.StatusOffline, pipeline.StatusFailed:
		return text.FgRed.Sprint(status)
	default:
		return status
	}
}

// compatCell colors an edge compatibility type for table cells.
func compatCell(compatibility string) string {
	switch compatibility {
	case graph.CompatDirect:
		return text.FgGreen.Sprint(compatibility)
	case graph.CompatTranslatable:
		return text.FgYellow.Sprint(compatibility)
	default:
		return compatibility
	}
}
