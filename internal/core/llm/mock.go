package llm

import "context"

const (
	mockEmptyList     = `{"events": []}`
	mockEmptyObject   = `{}`
	mockCategoryMatch = `{"is_match": true, "reason": "mock provider accepts every event"}`
)

// mockProvider answers every task with an empty but well-formed reply.
type mockProvider struct{}

// NewMockProvider creates a new mock LLM provider.
func NewMockProvider() *mockProvider {
	return &mockProvider{}
}

// Name returns the provider identifier.
func (p *mockProvider) Name() ProviderName {
	return ProviderMock
}

// IsAvailable returns true as mock is always available.
func (p *mockProvider) IsAvailable() bool {
	return true
}

// Priority returns the provider priority.
func (p *mockProvider) Priority() int {
	return PriorityMock
}

// Complete returns an empty list, an empty object, or a positive category match.
func (p *mockProvider) Complete(_ context.Context, req Request, _ string) (string, error) {
	switch req.Task {
	case TaskTypeCategoryCheck:
		return mockCategoryMatch, nil
	case TaskTypeRefine:
		return mockEmptyObject, nil
	default:
		return mockEmptyList, nil
	}
}

// Ensure mockProvider implements Provider interface.
var _ Provider = (*mockProvider)(nil)
