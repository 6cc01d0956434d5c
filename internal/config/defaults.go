package config

const (
	// DefaultSimilarityThreshold is the cosine similarity cutoff below which
	// an operation pair is never shown to the oracle for edge validation.
	DefaultSimilarityThreshold = 0.45

	// DefaultTopKPerNode caps the candidate list at topK times the number of
	// indexed operations during graph construction.
	DefaultTopKPerNode = 10

	// DefaultMaxHops bounds path searches through the capability graph.
	DefaultMaxHops = 5

	// DefaultChannel is the delivery channel used when a request does not
	// name one.
	DefaultChannel = "#team-updates"

	// DefaultCallTimeoutSeconds bounds a single downstream operation call.
	DefaultCallTimeoutSeconds = 60

	// DefaultMetricsPort is the dedicated Prometheus listener port, used when
	// broker.metrics is enabled without a port.
	DefaultMetricsPort = 9090

	// Oracle rate limit defaults, sized for free-tier provider quotas.
	DefaultMinCallIntervalSeconds = 4
	DefaultMaxRetries             = 5
	DefaultBackoffStepSeconds     = 15
)

// GetDefaultConfig returns the default configuration for nexus.
func GetDefaultConfig() NexusConfig {
	return NexusConfig{
		Broker: BrokerConfig{
			Port:        8090,
			Host:        "localhost",
			Transport:   MCPTransportStreamableHTTP,
			Metrics:     false, // Disabled by default, requires explicit enablement
			MetricsPort: DefaultMetricsPort,
		},
		Oracle: OracleConfig{
			Provider:               ProviderGemini,
			MinCallIntervalSeconds: DefaultMinCallIntervalSeconds,
			MaxRetries:             DefaultMaxRetries,
			BackoffStepSeconds:     DefaultBackoffStepSeconds,
		},
		Graph: GraphConfig{
			SimilarityThreshold: DefaultSimilarityThreshold,
			TopKPerNode:         DefaultTopKPerNode,
			MaxHops:             DefaultMaxHops,
		},
		Execution: ExecutionConfig{
			FailurePolicy:      FailurePolicyContinue,
			DefaultChannel:     DefaultChannel,
			CallTimeoutSeconds: DefaultCallTimeoutSeconds,
		},
	}
}
