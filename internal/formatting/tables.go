package formatting

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"

	"nexus/internal/graph"
	"nexus/internal/pipeline"
	"nexus/internal/registry"
	"nexus/internal/store"
	pkgstrings "nexus/pkg/strings"
)

// Servers renders the registry listing. Wide output adds how each server is
// reached and its capability tags.
func (r *Renderer) Servers(records []*registry.ServerRecord) error {
	if r.structured() {
		return r.renderStructured(records)
	}
	if len(records) == 0 {
		r.empty("No servers registered")
		return nil
	}

	t := r.newTable()
	header := []interface{}{"NAME", "STATUS", "TRANSPORT", "OPERATIONS", "DOMAIN"}
	if r.wide() {
		header = append(header, "ENDPOINT", "TAGS")
	}
	t.AppendHeader(header)

	for _, record := range records {
		var domain, tags string
		if record.Profile != nil {
			domain = record.Profile.Domain
			tags = strings.Join(record.Profile.CapabilityTags, ", ")
		}
		transport := record.Transport
		if transport == "" {
			transport = registry.TransportStdio
		}
		row := []interface{}{
			record.Name,
			statusCell(record.Status),
			transport,
			len(record.Operations),
			domain,
		}
		if r.wide() {
			row = append(row, endpoint(record), tags)
		}
		t.AppendRow(row)
	}
	t.Render()
	return nil
}

// ServerDetail renders one server with its profile and operations.
func (r *Renderer) ServerDetail(record *registry.ServerRecord) error {
	if r.structured() {
		return r.renderStructured(record)
	}

	t := r.newTable()
	t.AppendHeader([]interface{}{"KEY", "VALUE"})
	t.AppendRow([]interface{}{"Name", record.Name})
	t.AppendRow([]interface{}{"Status", statusCell(record.Status)})
	t.AppendRow([]interface{}{"Transport", record.Transport})
	t.AppendRow([]interface{}{"Endpoint", endpoint(record)})
	t.AppendRow([]interface{}{"Registered", record.RegisteredAt.Format(time.RFC3339)})
	if record.Profile != nil {
		t.AppendRow([]interface{}{"Domain", record.Profile.Domain})
		t.AppendRow([]interface{}{"Summary", pkgstrings.TruncateDescription(record.Profile.PlainLanguageSummary, 100)})
		t.AppendRow([]interface{}{"Tags", strings.Join(record.Profile.CapabilityTags, ", ")})
	}
	t.Render()

	if len(record.Operations) == 0 {
		return nil
	}
	ops := r.newTable()
	ops.AppendHeader([]interface{}{"OPERATION", "DESCRIPTION"})
	for _, op := range record.Operations {
		ops.AppendRow([]interface{}{op.Name, pkgstrings.TruncateDescription(op.Description, pkgstrings.DefaultDescriptionMaxLen)})
	}
	ops.Render()
	return nil
}

// Connections renders the capability graph's edge list.
func (r *Renderer) Connections(edges []*graph.Edge) error {
	if r.structured() {
		return r.renderStructured(edges)
	}
	if len(edges) == 0 {
		r.empty("No connections discovered yet (run: nexus graph build)")
		return nil
	}

	t := r.newTable()
	header := []interface{}{"SOURCE", "TARGET", "TYPE", "CONFIDENCE"}
	if r.wide() {
		header = append(header, "HINT")
	}
	t.AppendHeader(header)

	for _, edge := range edges {
		row := []interface{}{
			edge.SourceKey(),
			edge.TargetKey(),
			compatCell(edge.Type),
			fmt.Sprintf("%.2f", edge.Confidence),
		}
		if r.wide() {
			row = append(row, pkgstrings.TruncateDescription(edge.TranslationHint, pkgstrings.DefaultDescriptionMaxLen))
		}
		t.AppendRow(row)
	}
	t.Render()
	return nil
}

// Paths renders server-level routes found between two servers.
func (r *Renderer) Paths(paths [][]string) error {
	if r.structured() {
		return r.renderStructured(paths)
	}
	if len(paths) == 0 {
		r.empty("No path between those servers")
		return nil
	}
	for i, path := range paths {
		fmt.Fprintf(r.out, "%d. %s\n", i+1, strings.Join(path, " -> "))
	}
	return nil
}

// Plan renders a discovered pipeline before execution.
func (r *Renderer) Plan(plan *pipeline.Pipeline) error {
	if r.structured() {
		return r.renderStructured(plan)
	}
	if plan == nil || len(plan.Steps) == 0 {
		r.empty("No viable pipeline found")
		return nil
	}

	t := r.newTable()
	t.AppendHeader([]interface{}{"#", "SERVER", "OPERATION", "VIA", "REASON"})
	for i, step := range plan.Steps {
		via := ""
		if step.Edge != nil {
			via = compatCell(step.Edge.Type)
		}
		t.AppendRow([]interface{}{
			i + 1,
			step.Server,
			step.Operation,
			via,
			pkgstrings.TruncateDescription(step.Reason, pkgstrings.DefaultDescriptionMaxLen),
		})
	}
	t.Render()

	fmt.Fprintf(r.out, "Confidence: %.2f\n", plan.Confidence)
	if plan.Reasoning != "" {
		fmt.Fprintf(r.out, "Reasoning: %s\n", plan.Reasoning)
	}
	return nil
}

// Runs renders pipeline history, newest first as the store returns it.
func (r *Renderer) Runs(runs []*pipeline.Run) error {
	if r.structured() {
		return r.renderStructured(runs)
	}
	if len(runs) == 0 {
		r.empty("No pipeline runs recorded")
		return nil
	}

	t := r.newTable()
	t.AppendHeader([]interface{}{"ID", "STATUS", "STEPS", "DURATION", "STARTED", "REQUEST"})
	for _, run := range runs {
		id := run.ID
		if !r.wide() && len(id) > 8 {
			id = id[:8]
		}
		request := run.Request
		if !r.wide() {
			request = pkgstrings.TruncateDescription(request, pkgstrings.DefaultDescriptionMaxLen)
		}
		t.AppendRow([]interface{}{
			id,
			statusCell(run.Status),
			len(run.Steps),
			run.Duration.Round(time.Millisecond),
			run.StartedAt.Format(time.RFC3339),
			request,
		})
	}
	t.Render()
	return nil
}

// RunDetail renders a finished run: one line per step result, then a bounded
// preview of the final output.
func (r *Renderer) RunDetail(run *pipeline.Run) error {
	if r.structured() {
		return r.renderStructured(run)
	}

	fmt.Fprintf(r.out, "Run %s: %s (%s)\n", run.ID, statusCell(run.Status), run.Duration.Round(time.Millisecond))
	for _, result := range run.Results {
		mark := text.FgGreen.Sprint("✅")
		if !result.Success {
			mark = text.FgRed.Sprint("❌")
		}
		fmt.Fprintf(r.out, "  %s %s (%s)", mark, result.Step.Key(), result.Duration.Round(time.Millisecond))
		if result.Error != "" {
			fmt.Fprintf(r.out, " %s", text.FgRed.Sprint(result.Error))
		}
		fmt.Fprintln(r.out)
	}

	output := run.FinalOutput()
	if len(output) == 0 {
		return nil
	}
	fmt.Fprintln(r.out, "Final output:")
	keys := make([]string, 0, len(output))
	for key := range output {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		value := pkgstrings.TruncateDescription(fmt.Sprintf("%v", output[key]), 120)
		fmt.Fprintf(r.out, "  %s: %s\n", key, value)
	}
	return nil
}

// BuildReport renders the outcome of a graph build.
func (r *Renderer) BuildReport(stats graph.BuildStats) error {
	if r.structured() {
		return r.renderStructured(stats)
	}
	fmt.Fprintf(r.out, "Evaluated %d candidate pairs: %d new edges, %d cached, %d rejected, %d failed (%d edges total)\n",
		stats.Candidates, stats.NewEdges, stats.Cached, stats.Rejected, stats.Failed, stats.Total)
	return nil
}

// Stats renders broker statistics.
func (r *Renderer) Stats(stats store.Stats) error {
	if r.structured() {
		return r.renderStructured(stats)
	}

	t := r.newTable()
	t.AppendHeader([]interface{}{"METRIC", "COUNT"})
	t.AppendRow([]interface{}{"Servers", stats.Servers})
	t.AppendRow([]interface{}{"Operations", stats.Operations})
	t.AppendRow([]interface{}{"Connections", stats.Edges})
	t.AppendRow([]interface{}{"  direct", stats.DirectEdges})
	t.AppendRow([]interface{}{"  translatable", stats.TranslatableEdges})
	t.AppendRow([]interface{}{"Pipeline runs", stats.PipelineRuns})
	t.Render()
	return nil
}

// endpoint is the single-cell summary of how a server is reached.
func endpoint(record *registry.ServerRecord) string {
	if record.URL != "" {
		return record.URL
	}
	return strings.TrimSpace(record.Command + " " + strings.Join(record.Args, " "))
}
