package llm

import "context"

// ProviderName identifies an LLM provider.
type ProviderName string

// Provider name constants.
const (
	ProviderOpenAI    ProviderName = "openai" // OpenAI-compatible hosted endpoint (DeepSeek by default)
	ProviderOllama    ProviderName = "ollama" // OpenAI-compatible local endpoint
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGoogle    ProviderName = "google"
	ProviderMock      ProviderName = "mock"
)

// Priority constants for provider ordering.
const (
	PriorityPrimary        = 100 // Hosted OpenAI-compatible endpoint
	PriorityFallback       = 50  // Anthropic
	PrioritySecondFallback = 25  // Google
	PriorityLocal          = 10  // Ollama; preferred only by local tasks
	PriorityMock           = 0   // Mock provider for testing
)

// Provider defines the interface for LLM providers.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// IsAvailable returns true if the provider is configured and available.
	IsAvailable() bool

	// Priority returns the provider priority (higher = preferred).
	Priority() int

	// Complete sends one prompt and returns the raw completion text.
	// When req.Structured is set the provider requests JSON output.
	Complete(ctx context.Context, req Request, model string) (string, error)
}
