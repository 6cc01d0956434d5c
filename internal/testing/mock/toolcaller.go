package mock

import (
	"context"
	"fmt"
	"sync"

	"nexus/internal/registry"
)

// ToolCall records one downstream invocation observed by MockToolCaller.
type ToolCall struct {
	Server    string
	Operation string
	Input     map[string]interface{}
}

// MockToolCaller satisfies the pipeline executor's ToolCaller interface with
// canned outputs keyed by "server.operation". Every call is recorded so
// tests can assert on invocation order and the exact inputs each operation
// received.
type MockToolCaller struct {
	mu sync.Mutex

	// Outputs maps "server.operation" to the output returned for it.
	Outputs map[string]map[string]interface{}

	// Errors maps "server.operation" to an error returned instead.
	Errors map[string]error

	// CallFunc overrides Outputs/Errors when set.
	CallFunc func(server, operation string, input map[string]interface{}) (map[string]interface{}, error)

	// Calls holds every invocation in order.
	Calls []ToolCall
}

// Call returns the scripted output for the operation. Unknown operations
// yield an empty output rather than an error, mirroring a downstream tool
// that returned no content.
func (c *MockToolCaller) Call(ctx context.Context, server *registry.ServerRecord, operation string, input map[string]interface{}) (map[string]interface{}, error) {
	key := fmt.Sprintf("%s.%s", server.Name, operation)

	c.mu.Lock()
	c.Calls = append(c.Calls, ToolCall{Server: server.Name, Operation: operation, Input: input})
	callFunc := c.CallFunc
	c.mu.Unlock()

	if callFunc != nil {
		return callFunc(server.Name, operation, input)
	}
	if err, ok := c.Errors[key]; ok {
		return nil, err
	}
	if out, ok := c.Outputs[key]; ok {
		return out, nil
	}
	return map[string]interface{}{}, nil
}

// CalledOperations returns the "server.operation" keys in call order.
func (c *MockToolCaller) CalledOperations() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.Calls))
	for _, call := range c.Calls {
		keys = append(keys, fmt.Sprintf("%s.%s", call.Server, call.Operation))
	}
	return keys
}
