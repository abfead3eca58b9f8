package embeddings

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

const mockModel = "feature-hash-v1"

// MockProvider implements the embedding Provider interface without network access.
// It hashes lowercased word tokens into signed buckets, so texts that share words
// score higher than unrelated ones and identical text is always identical.
type MockProvider struct {
	dimensions int
}

// NewMockProvider creates a mock provider producing vectors of dims width.
func NewMockProvider(dims int) *MockProvider {
	if dims <= 0 {
		dims = DefaultDimensions
	}

	return &MockProvider{dimensions: dims}
}

// Name returns the provider identifier.
func (p *MockProvider) Name() ProviderName {
	return ProviderMock
}

// Model returns the hashing scheme identifier.
func (p *MockProvider) Model() string {
	return mockModel
}

// Dimensions returns the output dimensions.
func (p *MockProvider) Dimensions() int {
	return p.dimensions
}

// IsAvailable returns true (mock is always available).
func (p *MockProvider) IsAvailable() bool {
	return true
}

// GetEmbedding generates a deterministic unit vector from the text tokens.
func (p *MockProvider) GetEmbedding(_ context.Context, text string) (EmbeddingResult, error) {
	vec := make([]float32, p.dimensions)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok)) // fnv.Write never returns an error
		sum := h.Sum64()

		idx := int(sum % uint64(p.dimensions)) //nolint:gosec // dimensions is positive
		if sum&(1<<63) != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}

	return EmbeddingResult{
		Vector:     normalizeVector(vec),
		Dimensions: p.dimensions,
		Provider:   ProviderMock,
	}, nil
}
