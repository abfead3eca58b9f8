package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
)

const defaultAnthropicModel = "claude-haiku-4-5"

// anthropicProvider implements the Provider interface for Anthropic Claude.
type anthropicProvider struct {
	apiKey      string
	model       string
	client      anthropic.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewAnthropicProvider creates a new Anthropic LLM provider.
func NewAnthropicProvider(apiKey, model string, rateLimit int, logger *zerolog.Logger) *anthropicProvider {
	if rateLimit <= 0 {
		rateLimit = 1
	}

	if model == "" {
		model = defaultAnthropicModel
	}

	return &anthropicProvider{
		apiKey:      apiKey,
		model:       model,
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rateLimit)), rateLimiterBurst),
	}
}

// Name returns the provider identifier.
func (p *anthropicProvider) Name() ProviderName {
	return ProviderAnthropic
}

// IsAvailable returns true if the provider is configured and available.
func (p *anthropicProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Priority returns the provider priority.
func (p *anthropicProvider) Priority() int {
	return PriorityFallback
}

// resolveModel keeps Claude model names and maps anything else to the configured one.
func (p *anthropicProvider) resolveModel(model string) string {
	if strings.HasPrefix(model, modelPrefixClaude) {
		return model
	}

	return p.model
}

// Complete sends one message and returns the concatenated text blocks.
func (p *anthropicProvider) Complete(ctx context.Context, req Request, model string) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	resolved := p.resolveModel(model)

	prompt := req.Prompt
	if req.Structured {
		prompt += jsonOnlyInstruction
	}

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(resolved),
		MaxTokens: int64(maxTokens(req)),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt(req)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf(errAnthropicCompletion, err)
	}

	RecordTokenUsage(string(ProviderAnthropic), resolved, string(req.Task), int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens))

	text := extractTextFromResponse(resp)
	if text == "" {
		return "", fmt.Errorf(errAnthropicCompletion, coreerrors.ErrEmptyResponse)
	}

	return text, nil
}

// extractTextFromResponse extracts text content from Anthropic response.
func extractTextFromResponse(resp *anthropic.Message) string {
	var result strings.Builder

	for _, block := range resp.Content {
		if block.Type == contentTypeText {
			result.WriteString(block.Text)
		}
	}

	return result.String()
}

// Ensure anthropicProvider implements Provider interface.
var _ Provider = (*anthropicProvider)(nil)
