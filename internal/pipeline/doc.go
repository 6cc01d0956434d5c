// Package pipeline executes discovered operation chains against live MCP
// servers. Each step's input is resolved from the previous step's output
// (verbatim, translated, or composed into a delivery message), required
// fields are repaired from the data already in hand, and every run is
// summarized and persisted as history.
//
// Execution is strictly sequential. Step failures are recorded, not
// raised; the failure policy decides whether the run keeps going with the
// last good data or stops.
package pipeline
