package llm

import "time"

// Error message templates
const (
	errRateLimiter           = "rate limiter: %w"
	errOpenAIChatCompletion  = "openai chat completion: %w"
	errAnthropicCompletion   = "anthropic messages: %w"
	errGoogleGenAICompletion = "google genai completion: %w"
)

// Model defaults
const (
	defaultOpenAIModel    = "deepseek-chat"
	defaultOllamaModel    = "llama3"
	defaultOllamaBaseURL  = "http://localhost:11434/v1"
	ollamaPlaceholderKey  = "ollama"
	modelPrefixClaude     = "claude"
	modelPrefixGemini     = "gemini"
	llmAPIKeyMock         = "mock"
	defaultMaxTokens      = 4096
	contentTypeText       = "text"
	jsonOnlyInstruction   = "\n\nRespond with JSON only. No markdown, no commentary."
	structuredSystemRole  = "You are a precise data extraction assistant. You only output valid JSON."
	plainTextSystemPrompt = "You are a precise research assistant."
)

// Log message strings
const (
	logMsgCircuitBreakerOpen = "skipping provider - circuit breaker open"
	logMsgProviderFailed     = "LLM provider failed, trying fallback"
)

// Log key strings
const (
	logKeyProvider = "provider"
	logKeyTask     = "task"
	logKeyModel    = "model"
)

// Numeric constants
const (
	rateLimiterBurst = 5
)

// Circuit breaker defaults
const (
	defaultCircuitThreshold = 5
	defaultCircuitTimeout   = time.Minute
)

// Request status for metrics.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metric gauge values.
const (
	MetricValueAvailable   = 1.0
	MetricValueUnavailable = 0.0
	MetricValueCBOpen      = 1.0 // Circuit breaker is open (blocking requests)
	MetricValueCBClosed    = 0.0 // Circuit breaker is closed (allowing requests)
)
