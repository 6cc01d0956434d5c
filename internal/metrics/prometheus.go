//go:build !noprom

package metrics

import (
	"fmt"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

type promRecorder struct {
	oracleCalls   *prom.CounterVec
	oracleRetries prom.Counter
	parseFallback *prom.CounterVec
	edgesChecked  *prom.CounterVec
	runs          *prom.CounterVec
	steps         *prom.CounterVec
	stepSeconds   *prom.HistogramVec
}

func (p *promRecorder) IncOracleCall(kind string, success bool) {
	p.oracleCalls.WithLabelValues(kind, fmt.Sprintf("%t", success)).Inc()
}

func (p *promRecorder) IncOracleRetry() {
	p.oracleRetries.Inc()
}

func (p *promRecorder) IncParseFallback(site string) {
	p.parseFallback.WithLabelValues(site).Inc()
}

func (p *promRecorder) IncEdgeValidated(compatibility string) {
	p.edgesChecked.WithLabelValues(compatibility).Inc()
}

func (p *promRecorder) IncPipelineRun(status string) {
	p.runs.WithLabelValues(status).Inc()
}

func (p *promRecorder) IncPipelineStep(server, operation string, success bool) {
	p.steps.WithLabelValues(server, operation, fmt.Sprintf("%t", success)).Inc()
}

func (p *promRecorder) ObserveStepSeconds(server, operation string, success bool, seconds float64) {
	p.stepSeconds.WithLabelValues(server, operation, fmt.Sprintf("%t", success)).Observe(seconds)
}

// Enable installs a Prometheus recorder and returns the /metrics handler
// for mounting on the broker's HTTP mux. Building with -tags noprom turns
// this into a no-op.
func Enable() (http.Handler, error) {
	registry := prom.NewRegistry()
	p := &promRecorder{
		oracleCalls: prom.NewCounterVec(prom.CounterOpts{
			Name: "nexus_oracle_calls_total",
			Help: "Total number of oracle provider calls",
		}, []string{"kind", "success"}),
		oracleRetries: prom.NewCounter(prom.CounterOpts{
			Name: "nexus_oracle_retries_total",
			Help: "Total number of rate limit retries",
		}),
		parseFallback: prom.NewCounterVec(prom.CounterOpts{
			Name: "nexus_parse_fallbacks_total",
			Help: "Oracle responses that failed to decode, by call site",
		}, []string{"site"}),
		edgesChecked: prom.NewCounterVec(prom.CounterOpts{
			Name: "nexus_edges_validated_total",
			Help: "Candidate pairs validated, by compatibility verdict",
		}, []string{"compatibility"}),
		runs: prom.NewCounterVec(prom.CounterOpts{
			Name: "nexus_pipeline_runs_total",
			Help: "Finished pipeline runs by status",
		}, []string{"status"}),
		steps: prom.NewCounterVec(prom.CounterOpts{
			Name: "nexus_pipeline_steps_total",
			Help: "Executed pipeline steps",
		}, []string{"server", "operation", "success"}),
		stepSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "nexus_pipeline_step_seconds",
			Help:    "Pipeline step duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"server", "operation", "success"}),
	}

	registry.MustRegister(
		p.oracleCalls, p.oracleRetries, p.parseFallback,
		p.edgesChecked, p.runs, p.steps, p.stepSeconds,
	)
	SetRecorder(p)

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
