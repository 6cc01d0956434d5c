package pipeline

import (
	"context"
	"fmt"
	"time"

	"nexus/internal/graph"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// FailurePolicy decides what happens to the steps after a failed one.
type FailurePolicy string

const (
	// FailureContinue keeps executing with the last successful output.
	FailureContinue FailurePolicy = "continue"
	// FailureAbort stops the run at the first failed step.
	FailureAbort FailurePolicy = "abort"
)

// Step is one operation call in a pipeline. Edge is the graph edge feeding
// this step; nil for the entry step.
type Step struct {
	Server    string      `json:"server"`
	Operation string      `json:"operation"`
	Edge      *graph.Edge `json:"edge,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

// Key returns the step's compound operation key.
func (s Step) Key() string {
	return fmt.Sprintf("%s.%s", s.Server, s.Operation)
}

// Pipeline is a discovered chain of steps. Confidence and Reasoning are the
// planner's own report, not recomputed.
type Pipeline struct {
	Steps      []Step  `json:"steps"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// Result records one executed step. The full Result list is the execution
// record; entries are never rewritten after the step finishes.
type Result struct {
	Step     Step                   `json:"step"`
	Input    map[string]interface{} `json:"input"`
	Output   map[string]interface{} `json:"output"`
	Duration time.Duration          `json:"duration"`
	Success  bool                   `json:"success"`
	Error    string                 `json:"error,omitempty"`
}

// Summary condenses a result list for status surfaces.
type Summary struct {
	TotalSteps int           `json:"total_steps"`
	Succeeded  int           `json:"succeeded"`
	Duration   time.Duration `json:"duration"`
	Status     string        `json:"status"`
}

// Summarize folds results into a Summary. All steps succeeded is completed,
// none is failed, anything between is partial. An empty run counts as failed.
func Summarize(results []Result) Summary {
	summary := Summary{TotalSteps: len(results), Status: StatusFailed}
	for _, result := range results {
		summary.Duration += result.Duration
		if result.Success {
			summary.Succeeded++
		}
	}
	switch {
	case summary.TotalSteps > 0 && summary.Succeeded == summary.TotalSteps:
		summary.Status = StatusCompleted
	case summary.Succeeded > 0:
		summary.Status = StatusPartial
	}
	return summary
}

// Run is one pipeline execution, persisted as history.
type Run struct {
	ID          string                 `json:"id"`
	Request     string                 `json:"request"`
	Steps       []Step                 `json:"steps"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Status      string                 `json:"status"`
	Results     []Result               `json:"results"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at"`
	Duration    time.Duration          `json:"duration"`
}

// FinalOutput returns the last successful step's output, or nil.
func (r *Run) FinalOutput() map[string]interface{} {
	for i := len(r.Results) - 1; i >= 0; i-- {
		if r.Results[i].Success {
			return r.Results[i].Output
		}
	}
	return nil
}

// Summary condenses the run's results.
func (r *Run) Summary() Summary {
	return Summarize(r.Results)
}

// HistoryRecorder persists finished runs. internal/store provides the
// SQLite implementation.
type HistoryRecorder interface {
	RecordRun(ctx context.Context, run *Run) error
}
