// Package llm routes completion requests to hosted and local model providers
// with per-task fallback chains and decodes their structured output.
package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/event-scout/internal/core/embeddings"
	"github.com/lueurxax/event-scout/internal/platform/config"
)

// Request is a single completion request.
type Request struct {
	Task       TaskType
	Prompt     string
	Structured bool // ask the provider for JSON output
	MaxTokens  int
}

// Client sends completion requests through the provider chain of their task.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	GetProviderStatuses() []ProviderStatus
}

// New creates a registry with every configured provider. When none is
// configured the mock provider is registered so the pipeline still runs.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	registry := NewRegistry(DefaultTaskConfig(ModelSet{
		OpenAI:    cfg.LLMModel,
		Ollama:    cfg.OllamaModel,
		Anthropic: cfg.AnthropicModel,
		Google:    cfg.GoogleModel,
	}), logger)

	cbCfg := buildCircuitConfig(cfg)

	if cfg.LLMAPIKey != "" && cfg.LLMAPIKey != llmAPIKeyMock {
		registry.Register(NewOpenAIProvider(OpenAIProviderConfig{
			Name:      ProviderOpenAI,
			APIKey:    cfg.LLMAPIKey,
			BaseURL:   cfg.LLMBaseURL,
			Model:     cfg.LLMModel,
			RateLimit: cfg.RateLimitRPS,
			Priority:  PriorityPrimary,
		}, logger), cbCfg)
	}

	if cfg.OllamaBaseURL != "" {
		registry.Register(NewOpenAIProvider(OpenAIProviderConfig{
			Name:     ProviderOllama,
			BaseURL:  cfg.OllamaBaseURL,
			Model:    cfg.OllamaModel,
			Priority: PriorityLocal,
		}, logger), cbCfg)
	}

	if cfg.AnthropicAPIKey != "" {
		registry.Register(NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.RateLimitRPS, logger), cbCfg)
	}

	if cfg.GoogleAPIKey != "" {
		googleProvider, err := NewGoogleProvider(ctx, cfg.GoogleAPIKey, cfg.GoogleModel, cfg.RateLimitRPS, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialize Google provider, skipping")
		} else {
			registry.Register(googleProvider, cbCfg)
		}
	}

	if registry.ProviderCount() == 0 {
		logger.Warn().Msg("no LLM providers configured, using mock provider")
		registry.Register(NewMockProvider(), cbCfg)
	}

	return registry
}

func buildCircuitConfig(cfg *config.Config) embeddings.CircuitBreakerConfig {
	threshold := cfg.LLMCircuitThreshold
	if threshold <= 0 {
		threshold = defaultCircuitThreshold
	}

	timeout := cfg.LLMCircuitTimeout
	if timeout <= 0 {
		timeout = defaultCircuitTimeout
	}

	return embeddings.CircuitBreakerConfig{
		Threshold:  threshold,
		ResetAfter: timeout,
	}
}
