package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
)

// OpenAIProviderConfig configures an OpenAI-compatible chat endpoint.
type OpenAIProviderConfig struct {
	Name      ProviderName
	APIKey    string
	BaseURL   string
	Model     string
	RateLimit int
	Priority  int
}

// openaiProvider talks to any OpenAI-compatible chat completion API.
// It serves both the hosted endpoint and a local Ollama server.
type openaiProvider struct {
	name        ProviderName
	model       string
	priority    int
	available   bool
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible endpoint.
func NewOpenAIProvider(cfg OpenAIProviderConfig, logger *zerolog.Logger) *openaiProvider {
	if cfg.Name == "" {
		cfg.Name = ProviderOpenAI
	}

	apiKey := cfg.APIKey

	if cfg.Name == ProviderOllama {
		if apiKey == "" {
			apiKey = ollamaPlaceholderKey
		}

		if cfg.BaseURL == "" {
			cfg.BaseURL = defaultOllamaBaseURL
		}

		if cfg.Model == "" {
			cfg.Model = defaultOllamaModel
		}
	}

	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	limiter := rate.NewLimiter(rate.Inf, rateLimiterBurst)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RateLimit)), rateLimiterBurst)
	}

	return &openaiProvider{
		name:        cfg.Name,
		model:       cfg.Model,
		priority:    cfg.Priority,
		available:   apiKey != "",
		client:      openai.NewClientWithConfig(clientCfg),
		logger:      logger,
		rateLimiter: limiter,
	}
}

// Name returns the provider identifier.
func (p *openaiProvider) Name() ProviderName {
	return p.name
}

// IsAvailable returns true if the provider is configured.
func (p *openaiProvider) IsAvailable() bool {
	return p.available
}

// Priority returns the provider priority.
func (p *openaiProvider) Priority() int {
	return p.priority
}

// Complete sends one chat completion request.
func (p *openaiProvider) Complete(ctx context.Context, req Request, model string) (string, error) {
	if model == "" {
		model = p.model
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	chatReq := openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens(req),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}

	if req.Structured {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf(errOpenAIChatCompletion, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf(errOpenAIChatCompletion, coreerrors.ErrEmptyResponse)
	}

	RecordTokenUsage(string(p.name), model, string(req.Task), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}

func systemPrompt(req Request) string {
	if req.Structured {
		return structuredSystemRole
	}

	return plainTextSystemPrompt
}

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}

	return defaultMaxTokens
}

// Ensure openaiProvider implements Provider interface.
var _ Provider = (*openaiProvider)(nil)
