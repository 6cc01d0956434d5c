package config

import "fmt"

// NexusConfig is the top-level configuration structure for nexus.
type NexusConfig struct {
	Broker    BrokerConfig    `yaml:"broker"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Graph     GraphConfig     `yaml:"graph"`
	Execution ExecutionConfig `yaml:"execution"`
	Storage   StorageConfig   `yaml:"storage"`
}

const (
	// MCPTransportStreamableHTTP is the streamable HTTP transport.
	MCPTransportStreamableHTTP = "streamable-http"
	// MCPTransportSSE is the Server-Sent Events transport.
	MCPTransportSSE = "sse"
	// MCPTransportStdio is the standard I/O transport.
	MCPTransportStdio = "stdio"
)

// Oracle provider names accepted in OracleConfig.Provider.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Failure policies accepted in ExecutionConfig.FailurePolicy.
const (
	FailurePolicyContinue = "continue"
	FailurePolicyAbort    = "abort"
)

// BrokerConfig defines the configuration for the MCP broker facade.
type BrokerConfig struct {
	Port        int    `yaml:"port,omitempty"`        // Port for the broker endpoint (default: 8090)
	Host        string `yaml:"host,omitempty"`        // Host to bind to (default: localhost)
	Transport   string `yaml:"transport,omitempty"`   // Transport to use (default: streamable-http)
	Metrics     bool   `yaml:"metrics,omitempty"`     // Expose Prometheus metrics on a dedicated listener
	MetricsPort int    `yaml:"metricsPort,omitempty"` // Metrics listener port (default: 9090)
}

// OracleConfig selects and tunes the language model provider used for
// semantic reasoning and embeddings.
type OracleConfig struct {
	Provider       string `yaml:"provider,omitempty"`       // gemini, openai or anthropic (default: gemini)
	ReasoningModel string `yaml:"reasoningModel,omitempty"` // Overrides the provider's default reasoning model
	EmbeddingModel string `yaml:"embeddingModel,omitempty"` // Overrides the provider's default embedding model
	APIKey         string `yaml:"apiKey,omitempty"`         // Falls back to the provider's environment variable

	// Rate limit handling. Free-tier quotas on the hosted providers are
	// tight, so calls are spaced out and retried with a linear backoff.
	MinCallIntervalSeconds int `yaml:"minCallIntervalSeconds,omitempty"` // Spacing between consecutive calls (default: 4)
	MaxRetries             int `yaml:"maxRetries,omitempty"`             // Attempts per call on rate limit errors (default: 5)
	BackoffStepSeconds     int `yaml:"backoffStepSeconds,omitempty"`     // Linear backoff step per attempt (default: 15)
}

// GraphConfig tunes capability graph construction.
type GraphConfig struct {
	SimilarityThreshold float64 `yaml:"similarityThreshold,omitempty"` // Cosine cutoff for candidate pairs (default: 0.45)
	TopKPerNode         int     `yaml:"topKPerNode,omitempty"`         // Candidate cap multiplier per operation (default: 10)
	MaxHops             int     `yaml:"maxHops,omitempty"`             // Path search depth limit (default: 5)
}

// ExecutionConfig tunes pipeline execution.
type ExecutionConfig struct {
	FailurePolicy      string `yaml:"failurePolicy,omitempty"`      // continue or abort (default: continue)
	DefaultChannel     string `yaml:"defaultChannel,omitempty"`     // Delivery channel used when the request names none
	CallTimeoutSeconds int    `yaml:"callTimeoutSeconds,omitempty"` // Per-operation invocation timeout (default: 60)
}

// StorageConfig locates the SQLite database backing the registry and graph.
type StorageConfig struct {
	Path string `yaml:"path,omitempty"` // Database file (default: <config dir>/nexus.db)
}

// Validate checks enumerated fields against their accepted values. Zero
// values are allowed everywhere; defaults fill them in at load time.
func (c NexusConfig) Validate() error {
	switch c.Broker.Transport {
	case "", MCPTransportStreamableHTTP, MCPTransportSSE, MCPTransportStdio:
	default:
		return fmt.Errorf("invalid broker transport %q (valid: %s, %s, %s)",
			c.Broker.Transport, MCPTransportStreamableHTTP, MCPTransportSSE, MCPTransportStdio)
	}

	switch c.Oracle.Provider {
	case "", ProviderGemini, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("invalid oracle provider %q (valid: %s, %s, %s)",
			c.Oracle.Provider, ProviderGemini, ProviderOpenAI, ProviderAnthropic)
	}

	switch c.Execution.FailurePolicy {
	case "", FailurePolicyContinue, FailurePolicyAbort:
	default:
		return fmt.Errorf("invalid failure policy %q (valid: %s, %s)",
			c.Execution.FailurePolicy, FailurePolicyContinue, FailurePolicyAbort)
	}

	if t := c.Graph.SimilarityThreshold; t < 0 || t > 1 {
		return fmt.Errorf("similarity threshold %v out of range [0, 1]", t)
	}

	return nil
}
