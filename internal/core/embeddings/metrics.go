package embeddings

import (
	"time"

	"github.com/lueurxax/event-scout/internal/platform/observability"
)

// Metric status constants.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RecordEmbeddingRequest records an embedding request metric.
func RecordEmbeddingRequest(provider, model string, success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}

	observability.EmbeddingRequests.WithLabelValues(provider, model, status).Inc()
}

// RecordEmbeddingTokens records estimated embedding token usage.
func RecordEmbeddingTokens(provider, model string, tokens int) {
	if tokens > 0 {
		observability.EmbeddingTokens.WithLabelValues(provider, model).Add(float64(tokens))
	}
}

// RecordEmbeddingLatency records embedding request latency.
func RecordEmbeddingLatency(provider, model string, duration time.Duration) {
	observability.EmbeddingLatency.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordCircuitOpen counts a transition of the provider breaker into the open state.
func RecordCircuitOpen(provider string) {
	observability.EmbeddingCircuitBreakerOpens.WithLabelValues(provider).Inc()
}

// SetEmbeddingProviderAvailable sets the availability status of a provider.
func SetEmbeddingProviderAvailable(provider string, available bool) {
	value := 0.0
	if available {
		value = 1.0
	}

	observability.EmbeddingProviderAvailable.WithLabelValues(provider).Set(value)
}

// estimateTokens uses a rough approximation of ~4 characters per token.
func estimateTokens(text string) int {
	const charsPerToken = 4
	return (len(text) + charsPerToken - 1) / charsPerToken
}
