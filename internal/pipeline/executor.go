package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"nexus/internal/config"
	"nexus/internal/metrics"
	"nexus/internal/registry"
	"nexus/internal/translate"
	"nexus/pkg/logging"
	pkgstrings "nexus/pkg/strings"
)

// maxInlineDump bounds serialized payloads dropped into message bodies and
// repaired fields.
const maxInlineDump = 500

// textAliases are the output fields scanned, in order, when a required text
// field has no mapped value.
var textAliases = []string{"content", "translated_text", "summary", "text", "result"}

// ServerDirectory resolves server names to live records. *registry.Registry
// satisfies it.
type ServerDirectory interface {
	Get(name string) *registry.ServerRecord
}

// ToolCaller invokes one operation on a downstream server. Sessions are
// per call: implementations connect, call, and disconnect.
type ToolCaller interface {
	Call(ctx context.Context, server *registry.ServerRecord, operation string, input map[string]interface{}) (map[string]interface{}, error)
}

// ExecutionOptions tune the executor.
type ExecutionOptions struct {
	FailurePolicy FailurePolicy
}

// Executor runs discovered pipelines one step at a time, translating data
// between steps and recording every run.
type Executor struct {
	servers    ServerDirectory
	caller     ToolCaller
	translator *translate.Engine
	history    HistoryRecorder
	policy     FailurePolicy
}

// NewExecutor wires an executor. history may be nil, in which case runs are
// not persisted.
func NewExecutor(servers ServerDirectory, caller ToolCaller, translator *translate.Engine, history HistoryRecorder, opts ExecutionOptions) *Executor {
	policy := opts.FailurePolicy
	if policy == "" {
		policy = FailureContinue
	}
	return &Executor{
		servers:    servers,
		caller:     caller,
		translator: translator,
		history:    history,
		policy:     policy,
	}
}

// Execute runs the pipeline. Step failures never surface as an error; they
// are recorded in the run's results and handled per the failure policy. The
// returned error is non-nil only when the context ends mid-run.
func (e *Executor) Execute(ctx context.Context, request string, p *Pipeline, initialInput, runContext map[string]interface{}) (*Run, error) {
	if initialInput == nil {
		initialInput = map[string]interface{}{}
	}
	if runContext == nil {
		runContext = map[string]interface{}{}
	}

	run := &Run{
		ID:        uuid.New().String(),
		Request:   request,
		Steps:     p.Steps,
		Context:   runContext,
		StartedAt: time.Now(),
	}

	current := initialInput
	outputs := make(map[string]map[string]interface{})

	logging.Info("Executor", "Executing pipeline of %d steps (run %s)", len(p.Steps), run.ID)

	for i, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			logging.Warn("Executor", "Run %s interrupted before step %d: %v", run.ID, i+1, err)
			e.finish(ctx, run)
			return run, err
		}

		logging.Info("Executor", "Step %d/%d: %s", i+1, len(p.Steps), step.Key())

		server := e.servers.Get(step.Server)
		if server == nil {
			run.Results = append(run.Results, Result{
				Step:   step,
				Input:  current,
				Output: map[string]interface{}{},
				Error:  fmt.Sprintf("server %q not registered", step.Server),
			})
			metrics.TimeStep(step.Server, step.Operation)(false)
			if e.policy == FailureAbort {
				break
			}
			continue
		}

		schema := map[string]interface{}{}
		if operation := server.Operation(step.Operation); operation != nil {
			schema = operation.InputSchema
		}

		input := e.resolveInput(ctx, step, schema, current, outputs, runContext)
		repairRequired(input, schema, current)
		mergeContext(input, schema, runContext)

		done := metrics.TimeStep(step.Server, step.Operation)
		start := time.Now()
		output, err := e.caller.Call(ctx, server, step.Operation, input)
		duration := time.Since(start)
		if err != nil {
			done(false)
			logging.Warn("Executor", "Step %s failed after %s: %v", step.Key(), duration.Round(time.Millisecond), err)
			run.Results = append(run.Results, Result{
				Step:     step,
				Input:    input,
				Output:   map[string]interface{}{},
				Duration: duration,
				Error:    err.Error(),
			})
			if e.policy == FailureAbort {
				break
			}
			continue
		}
		done(true)

		run.Results = append(run.Results, Result{
			Step:     step,
			Input:    input,
			Output:   output,
			Duration: duration,
			Success:  true,
		})
		outputs[step.Server] = output
		current = output
		logging.Debug("Executor", "Step %s completed in %s", step.Key(), duration.Round(time.Millisecond))
	}

	e.finish(ctx, run)
	return run, nil
}

// finish stamps the run, bumps metrics, and persists history.
func (e *Executor) finish(ctx context.Context, run *Run) {
	summary := run.Summary()
	run.Status = summary.Status
	run.CompletedAt = time.Now()
	run.Duration = run.CompletedAt.Sub(run.StartedAt)
	metrics.PipelineRun(run.Status)

	logging.Info("Executor", "Pipeline %s: %d/%d steps succeeded in %s",
		run.Status, summary.Succeeded, summary.TotalSteps, run.Duration.Round(time.Millisecond))

	if e.history == nil {
		return
	}
	// History survives a canceled run.
	if err := e.history.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		logging.Warn("Executor", "Recording run %s failed: %v", run.ID, err)
	}
}

// resolveInput builds the step's input. Entry steps take the flowing data
// verbatim, delivery sinks take the composed message, everything else goes
// through translation. A translation failure degrades to an empty input so
// the repair pass can still salvage required fields.
func (e *Executor) resolveInput(ctx context.Context, step Step, schema map[string]interface{}, current map[string]interface{}, outputs map[string]map[string]interface{}, runContext map[string]interface{}) map[string]interface{} {
	if step.Edge == nil {
		return copyMap(current)
	}
	if declaresField(schema, "message_body") {
		return e.deliveryInput(outputs, current, runContext)
	}

	spec, err := e.translator.GenerateSpec(ctx, step.Edge, current, schema)
	if err != nil {
		logging.Warn("Executor", "Translation for %s unavailable: %v", step.Key(), err)
		return map[string]interface{}{}
	}
	return translate.Apply(spec, current, runContext)
}

// deliveryInput composes the message for a delivery sink from everything
// the run produced so far: the summary with its key points, the sentiment
// verdict, or failing both a bounded dump of the latest output.
func (e *Executor) deliveryInput(outputs map[string]map[string]interface{}, latest map[string]interface{}, runContext map[string]interface{}) map[string]interface{} {
	var parts []string

	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		output := outputs[name]
		summary, _ := output["summary"].(string)
		if summary == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("📝 *Summary:*\n%s", summary))
		if points := stringItems(output["key_points"]); len(points) > 0 {
			for i, point := range points {
				points[i] = "  • " + point
			}
			parts = append(parts, fmt.Sprintf("\n🔑 *Key Points:*\n%s", strings.Join(points, "\n")))
		}
		break
	}

	for _, name := range names {
		output := outputs[name]
		sentiment, _ := output["sentiment"].(string)
		if sentiment == "" {
			continue
		}
		emoji := "😟"
		switch sentiment {
		case "positive":
			emoji = "😊"
		case "neutral":
			emoji = "😐"
		}
		parts = append(parts, fmt.Sprintf("\n%s *Sentiment:* %s (%.0f%% confidence)",
			emoji, title(sentiment), floatValue(output["confidence"])*100))
		if explanation, _ := output["explanation"].(string); explanation != "" {
			parts = append(parts, fmt.Sprintf("_%s_", explanation))
		}
		break
	}

	messageBody := strings.Join(parts, "\n")
	if messageBody == "" {
		if data, err := json.MarshalIndent(latest, "", "  "); err == nil {
			messageBody = pkgstrings.Bound(string(data), maxInlineDump)
		}
	}

	channel, _ := runContext["channel"].(string)
	if channel == "" {
		channel = config.DefaultChannel
	}
	return map[string]interface{}{
		"channel":      channel,
		"message_body": messageBody,
	}
}

// repairRequired fills required fields the translation left missing or
// empty, pulling from the previous step's output.
func repairRequired(input, schema, previous map[string]interface{}) {
	for _, field := range requiredFields(schema) {
		if value, ok := input[field]; ok && value != nil && value != "" {
			continue
		}
		if value := repairValue(field, previous); value != nil {
			logging.Debug("Executor", "Filled required field %q from previous output", field)
			input[field] = value
		}
	}
}

func requiredFields(schema map[string]interface{}) []string {
	raw, ok := schema["required"].([]interface{})
	if !ok {
		return nil
	}
	fields := make([]string, 0, len(raw))
	for _, entry := range raw {
		if field, ok := entry.(string); ok {
			fields = append(fields, field)
		}
	}
	return fields
}

// repairValue finds a stand-in for one missing required field. URL fields
// only ever take a real URL; text fields take the first alias present, or a
// bounded dump of the whole previous output.
func repairValue(field string, previous map[string]interface{}) interface{} {
	if value, ok := previous[field]; ok && value != nil && value != "" {
		return value
	}
	if field == "url" {
		if value, ok := previous["source_url"]; ok && value != nil && value != "" {
			return value
		}
		return nil
	}
	for _, alias := range textAliases {
		if value, ok := previous[alias]; ok && value != nil && value != "" {
			return value
		}
	}
	if len(previous) > 0 {
		if data, err := json.Marshal(previous); err == nil {
			return pkgstrings.Bound(string(data), maxInlineDump)
		}
	}
	return nil
}

// mergeContext adds run context values for keys the target schema mentions
// and the input does not already carry.
func mergeContext(input, schema map[string]interface{}, runContext map[string]interface{}) {
	if len(runContext) == 0 {
		return
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return
	}
	schemaText := string(data)

	for key, value := range runContext {
		if _, ok := input[key]; ok {
			continue
		}
		if strings.Contains(schemaText, key) {
			input[key] = value
		}
	}
}

func declaresField(schema map[string]interface{}, field string) bool {
	properties, ok := schema["properties"].(map[string]interface{})
	if !ok {
		return false
	}
	_, ok = properties[field]
	return ok
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func stringItems(v interface{}) []string {
	switch items := v.(type) {
	case []string:
		return append([]string(nil), items...)
	case []interface{}:
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	default:
		return nil
	}
}

func floatValue(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
