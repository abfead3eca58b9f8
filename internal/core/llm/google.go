package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	coreerrors "github.com/lueurxax/event-scout/internal/core/errors"
)

const (
	defaultGoogleModel  = "gemini-2.5-flash-lite"
	mimeApplicationJSON = "application/json"
)

// sanitizeUTF8 replaces invalid UTF-8 sequences.
// Google's protobuf API requires valid UTF-8, and crawled pages may contain invalid bytes.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	return strings.ToValidUTF8(s, string(utf8.RuneError))
}

// googleProvider implements the Provider interface for Google Gemini.
type googleProvider struct {
	apiKey      string
	model       string
	client      *genai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewGoogleProvider creates a new Google Gemini LLM provider.
func NewGoogleProvider(ctx context.Context, apiKey, model string, rateLimit int, logger *zerolog.Logger) (*googleProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating google genai client: %w", err)
	}

	if rateLimit <= 0 {
		rateLimit = 1
	}

	if model == "" {
		model = defaultGoogleModel
	}

	return &googleProvider{
		apiKey:      apiKey,
		model:       model,
		client:      client,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rateLimit)), rateLimiterBurst),
	}, nil
}

// Close closes the Google client.
func (p *googleProvider) Close() error {
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			return fmt.Errorf("closing google genai client: %w", err)
		}
	}

	return nil
}

// Name returns the provider identifier.
func (p *googleProvider) Name() ProviderName {
	return ProviderGoogle
}

// IsAvailable returns true if the provider is configured and available.
func (p *googleProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Priority returns the provider priority.
func (p *googleProvider) Priority() int {
	return PrioritySecondFallback
}

func (p *googleProvider) resolveModel(model string) string {
	if strings.HasPrefix(model, modelPrefixGemini) {
		return model
	}

	return p.model
}

// Complete generates content for one prompt.
func (p *googleProvider) Complete(ctx context.Context, req Request, model string) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	resolved := p.resolveModel(model)

	genModel := p.client.GenerativeModel(resolved)
	genModel.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt(req)))

	tokens := int32(maxTokens(req)) //nolint:gosec // bounded by defaultMaxTokens or caller input
	genModel.MaxOutputTokens = &tokens

	if req.Structured {
		genModel.ResponseMIMEType = mimeApplicationJSON
	}

	resp, err := genModel.GenerateContent(ctx, genai.Text(sanitizeUTF8(req.Prompt)))
	if err != nil {
		return "", fmt.Errorf(errGoogleGenAICompletion, err)
	}

	if resp.UsageMetadata != nil {
		RecordTokenUsage(string(ProviderGoogle), resolved, string(req.Task),
			int(resp.UsageMetadata.PromptTokenCount),
			int(resp.UsageMetadata.CandidatesTokenCount))
	}

	text := extractGoogleResponseText(resp)
	if text == "" {
		return "", fmt.Errorf(errGoogleGenAICompletion, coreerrors.ErrEmptyResponse)
	}

	return text, nil
}

// extractGoogleResponseText extracts text content from Google Gemini response.
func extractGoogleResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var result strings.Builder

	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					result.WriteString(string(text))
				}
			}
		}
	}

	return result.String()
}

// Ensure googleProvider implements Provider interface.
var _ Provider = (*googleProvider)(nil)
