// Package metrics provides a minimal instrumentation interface with a no-op
// default and an optional Prometheus-backed implementation exposed through
// the broker's HTTP mux.
package metrics

import (
	"sync"
	"time"
)

// Recorder defines the metrics surface used across the codebase.
type Recorder interface {
	IncOracleCall(kind string, success bool)
	IncOracleRetry()
	IncParseFallback(site string)
	IncEdgeValidated(compatibility string)
	IncPipelineRun(status string)
	IncPipelineStep(server, operation string, success bool)
	ObserveStepSeconds(server, operation string, success bool, seconds float64)
}

// noopRecorder implements Recorder with no-ops.
type noopRecorder struct{}

func (n *noopRecorder) IncOracleCall(string, bool)                       {}
func (n *noopRecorder) IncOracleRetry()                                  {}
func (n *noopRecorder) IncParseFallback(string)                          {}
func (n *noopRecorder) IncEdgeValidated(string)                          {}
func (n *noopRecorder) IncPipelineRun(string)                            {}
func (n *noopRecorder) IncPipelineStep(string, string, bool)             {}
func (n *noopRecorder) ObserveStepSeconds(string, string, bool, float64) {}

var (
	recMu    sync.RWMutex
	recorder Recorder = &noopRecorder{}
)

// Default returns the current recorder.
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder implementation.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	recorder = r
}

// OracleCall counts one provider call of the given kind (reason, embed).
func OracleCall(kind string, success bool) {
	Default().IncOracleCall(kind, success)
}

// OracleRetry counts one rate limit retry.
func OracleRetry() {
	Default().IncOracleRetry()
}

// ParseFallback counts one oracle response that failed to decode at the
// named call site (edge, discovery, translation, profile).
func ParseFallback(site string) {
	Default().IncParseFallback(site)
}

// EdgeValidated counts one validated candidate by compatibility verdict.
func EdgeValidated(compatibility string) {
	Default().IncEdgeValidated(compatibility)
}

// PipelineRun counts one finished run by status.
func PipelineRun(status string) {
	Default().IncPipelineRun(status)
}

// TimeStep is a helper to time pipeline step execution.
func TimeStep(server, operation string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		dur := time.Since(start).Seconds()
		Default().IncPipelineStep(server, operation, success)
		Default().ObserveStepSeconds(server, operation, success, dur)
	}
}
