package template

import (
	"os"
	"strings"
)

// MergeContexts merges multiple contexts into a single context
// Later contexts override values from earlier contexts
func MergeContexts(contexts ...map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for _, ctx := range contexts {
		for key, value := range ctx {
			result[key] = value
		}
	}

	return result
}

// EnvContext exposes the process environment as a template context, so
// server definition files can reference secrets like {{ .SLACK_BOT_TOKEN }}
// without writing them to disk.
func EnvContext() map[string]interface{} {
	result := make(map[string]interface{})

	for _, kv := range os.Environ() {
		if idx := strings.Index(kv, "="); idx > 0 {
			result[kv[:idx]] = kv[idx+1:]
		}
	}

	return result
}
