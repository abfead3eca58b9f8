package embeddings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testDims = 64

var errProviderDown = errors.New("provider down")

type failingProvider struct {
	calls int
}

func (p *failingProvider) Name() ProviderName { return ProviderOpenAI }
func (p *failingProvider) Model() string      { return ModelTextEmbedding3Small }
func (p *failingProvider) IsAvailable() bool  { return true }
func (p *failingProvider) Dimensions() int    { return testDims }

func (p *failingProvider) GetEmbedding(context.Context, string) (EmbeddingResult, error) {
	p.calls++
	return EmbeddingResult{}, errProviderDown
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "scale invariant", a: []float32{1, 1}, b: []float32{5, 5}, want: 1},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestPadToTargetDimensions(t *testing.T) {
	require.Equal(t, []float32{1, 2, 0, 0}, PadToTargetDimensions([]float32{1, 2}, 4))
	require.Equal(t, []float32{1, 2}, PadToTargetDimensions([]float32{1, 2, 3}, 2))
	require.Equal(t, []float32{1, 2}, PadToTargetDimensions([]float32{1, 2}, 2))
}

func TestMockProviderDeterministic(t *testing.T) {
	p := NewMockProvider(testDims)

	a, err := p.GetEmbedding(context.Background(), "NVIDIA GTC 2026")
	require.NoError(t, err)

	b, err := p.GetEmbedding(context.Background(), "NVIDIA GTC 2026")
	require.NoError(t, err)

	require.Equal(t, a.Vector, b.Vector)
	require.Len(t, a.Vector, testDims)
	require.InDelta(t, 1, CosineSimilarity(a.Vector, b.Vector), 1e-6)
}

func TestMockProviderSharedWordsScoreHigher(t *testing.T) {
	p := NewMockProvider(DefaultDimensions)
	ctx := context.Background()

	query, _ := p.GetEmbedding(ctx, "AI conference")
	related, _ := p.GetEmbedding(ctx, "Global AI conference in Paris")
	unrelated, _ := p.GetEmbedding(ctx, "Quarterly dairy auction")

	require.Greater(t,
		CosineSimilarity(query.Vector, related.Vector),
		CosineSimilarity(query.Vector, unrelated.Vector))
}

func TestNewClientFallsBackToMock(t *testing.T) {
	enc := NewClient(context.Background(), Config{
		ProviderOrder:    []string{"openai", "google"},
		TargetDimensions: testDims,
	}, nil)

	require.Equal(t, ProviderMock, enc.ProviderName())

	vec, err := enc.GetEmbedding(context.Background(), "CES 2026")
	require.NoError(t, err)
	require.Len(t, vec, testDims)
}

func TestNewClientBindsFirstConfigured(t *testing.T) {
	enc := NewClient(context.Background(), Config{
		OpenAIAPIKey:     "sk-test",
		ProviderOrder:    []string{"unknown", "openai"},
		TargetDimensions: testDims,
	}, nil)

	require.Equal(t, ProviderOpenAI, enc.ProviderName())
	require.Equal(t, ModelTextEmbedding3Small, enc.Model())
}

func TestEncoderOpensCircuit(t *testing.T) {
	p := &failingProvider{}
	enc := NewEncoder(p, testDims, CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Hour}, nil)

	for range 2 {
		_, err := enc.GetEmbedding(context.Background(), "x")
		require.ErrorIs(t, err, errProviderDown)
	}

	require.False(t, enc.Healthy())

	_, err := enc.GetEmbedding(context.Background(), "x")
	require.ErrorIs(t, err, ErrCircuitBreakerOpen)
	require.Equal(t, 2, p.calls)
}
