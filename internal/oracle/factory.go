package oracle

import (
	"context"
	"fmt"
	"os"
	"time"

	"nexus/internal/config"
)

// Default models per provider. Config can override both sides.
const (
	DefaultGeminiModel          = "gemini-2.0-flash"
	DefaultGeminiEmbeddingModel = "gemini-embedding-001"
	DefaultOpenAIModel          = "gpt-4o-mini"
	DefaultOpenAIEmbeddingModel = "text-embedding-3-small"
	DefaultAnthropicModel       = "claude-3-5-haiku-latest"
)

// API key environment variables, consulted when the config carries no key.
const (
	geminiAPIKeyEnv    = "GEMINI_API_KEY"
	openaiAPIKeyEnv    = "OPENAI_API_KEY"
	anthropicAPIKeyEnv = "ANTHROPIC_API_KEY"
)

// NewProvider builds the configured provider. The API key comes from the
// config, falling back to the provider's environment variable.
func NewProvider(ctx context.Context, cfg config.OracleConfig) (Oracle, error) {
	switch cfg.Provider {
	case "", config.ProviderGemini:
		key, err := apiKey(cfg, geminiAPIKeyEnv)
		if err != nil {
			return nil, err
		}
		return NewGeminiOracle(ctx, key,
			orDefault(cfg.ReasoningModel, DefaultGeminiModel),
			orDefault(cfg.EmbeddingModel, DefaultGeminiEmbeddingModel))

	case config.ProviderOpenAI:
		key, err := apiKey(cfg, openaiAPIKeyEnv)
		if err != nil {
			return nil, err
		}
		return NewOpenAIOracle(key,
			orDefault(cfg.ReasoningModel, DefaultOpenAIModel),
			orDefault(cfg.EmbeddingModel, DefaultOpenAIEmbeddingModel)), nil

	case config.ProviderAnthropic:
		key, err := apiKey(cfg, anthropicAPIKeyEnv)
		if err != nil {
			return nil, err
		}
		return NewAnthropicOracle(key,
			orDefault(cfg.ReasoningModel, DefaultAnthropicModel)), nil

	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
}

// NewFromConfig builds the configured provider and wraps it in a rate
// limited Client. This is the constructor everything above the oracle
// layer should use.
func NewFromConfig(ctx context.Context, cfg config.OracleConfig) (*Client, error) {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(provider, Options{
		MinCallInterval: time.Duration(cfg.MinCallIntervalSeconds) * time.Second,
		MaxRetries:      cfg.MaxRetries,
		BackoffStep:     time.Duration(cfg.BackoffStepSeconds) * time.Second,
	}), nil
}

func apiKey(cfg config.OracleConfig, envVar string) (string, error) {
	if cfg.APIKey != "" {
		return cfg.APIKey, nil
	}
	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("no API key for provider %q: set oracle.apiKey or %s", cfg.Provider, envVar)
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
