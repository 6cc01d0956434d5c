//go:build noprom

package metrics

import "net/http"

// When built with -tags noprom, Enable keeps the no-op recorder and mounts
// nothing.
func Enable() (http.Handler, error) { return nil, nil }
