package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lueurxax/event-scout/internal/core/embeddings"
	"github.com/lueurxax/event-scout/internal/platform/config"
)

var errFakeProvider = errors.New("fake provider failure")

type fakeProvider struct {
	name     ProviderName
	priority int
	reply    string
	fail     bool
	calls    int
	models   []string
}

func (p *fakeProvider) Name() ProviderName { return p.name }
func (p *fakeProvider) IsAvailable() bool  { return true }
func (p *fakeProvider) Priority() int      { return p.priority }

func (p *fakeProvider) Complete(_ context.Context, _ Request, model string) (string, error) {
	p.calls++
	p.models = append(p.models, model)

	if p.fail {
		return "", errFakeProvider
	}

	return p.reply, nil
}

var testBreaker = embeddings.CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Hour}

func TestRegistryUsesTaskChain(t *testing.T) {
	reg := NewRegistry(DefaultTaskConfig(ModelSet{OpenAI: "deepseek-chat", Ollama: "llama3"}), nil)

	hosted := &fakeProvider{name: ProviderOpenAI, priority: PriorityPrimary, reply: "hosted"}
	local := &fakeProvider{name: ProviderOllama, priority: PriorityLocal, reply: "local"}

	reg.Register(hosted, testBreaker)
	reg.Register(local, testBreaker)

	got, err := reg.Complete(context.Background(), Request{Task: TaskTypeKeywords})
	require.NoError(t, err)
	require.Equal(t, "local", got)
	require.Equal(t, []string{"llama3"}, local.models)

	got, err = reg.Complete(context.Background(), Request{Task: TaskTypeExtract})
	require.NoError(t, err)
	require.Equal(t, "hosted", got)
	require.Equal(t, []string{"deepseek-chat"}, hosted.models)
}

func TestRegistryFallsBack(t *testing.T) {
	reg := NewRegistry(DefaultTaskConfig(ModelSet{}), nil)

	primary := &fakeProvider{name: ProviderOpenAI, priority: PriorityPrimary, fail: true}
	backup := &fakeProvider{name: ProviderGoogle, priority: PrioritySecondFallback, reply: "ok"}

	reg.Register(primary, testBreaker)
	reg.Register(backup, testBreaker)

	got, err := reg.Complete(context.Background(), Request{Task: TaskTypeVerify})
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 1, primary.calls)
}

func TestRegistryAllFail(t *testing.T) {
	reg := NewRegistry(nil, nil)
	reg.Register(&fakeProvider{name: ProviderOpenAI, fail: true}, testBreaker)

	_, err := reg.Complete(context.Background(), Request{Task: TaskTypeQueryPlan})
	require.ErrorIs(t, err, ErrAllProvidersFailed)
	require.ErrorIs(t, err, errFakeProvider)
}

func TestRegistryEmpty(t *testing.T) {
	reg := NewRegistry(nil, nil)

	_, err := reg.Complete(context.Background(), Request{Task: TaskTypeQueryPlan})
	require.ErrorIs(t, err, ErrNoProvidersAvailable)
}

func TestRegistrySkipsOpenCircuit(t *testing.T) {
	reg := NewRegistry(nil, nil)

	flaky := &fakeProvider{name: ProviderOpenAI, priority: PriorityPrimary, fail: true}
	reg.Register(flaky, testBreaker)

	for range 2 {
		_, _ = reg.Complete(context.Background(), Request{Task: TaskTypeExtract})
	}

	require.Equal(t, 2, flaky.calls)

	_, err := reg.Complete(context.Background(), Request{Task: TaskTypeExtract})
	require.ErrorIs(t, err, ErrNoProvidersAvailable)
	require.Equal(t, 2, flaky.calls)

	statuses := reg.GetProviderStatuses()
	require.Len(t, statuses, 1)
	require.False(t, statuses[0].CircuitBreakerOK)
}

func TestNewFallsBackToMock(t *testing.T) {
	reg := New(context.Background(), &config.Config{}, nil)

	statuses := reg.GetProviderStatuses()
	require.Len(t, statuses, 1)
	require.Equal(t, ProviderMock, statuses[0].Name)

	got, err := reg.Complete(context.Background(), Request{Task: TaskTypeCategoryCheck})
	require.NoError(t, err)
	require.Contains(t, got, "is_match")
}

func TestNewRegistersConfiguredProviders(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLMAPIKey = "sk-test"
	cfg.OllamaBaseURL = "http://localhost:11434/v1"
	cfg.AnthropicAPIKey = "sk-ant"

	reg := New(context.Background(), cfg, nil)

	names := make([]ProviderName, 0)
	for _, s := range reg.GetProviderStatuses() {
		names = append(names, s.Name)
	}

	require.Equal(t, []ProviderName{ProviderOpenAI, ProviderAnthropic, ProviderOllama}, names)
}

func TestTaskTimeout(t *testing.T) {
	require.Equal(t, 20*time.Second, TaskTimeout(TaskTypeQueryPlan))
	require.Equal(t, 10*time.Second, TaskTimeout(TaskTypeCategoryCheck))
	require.Equal(t, 120*time.Second, TaskTimeout(TaskTypeKeywords))
	require.Equal(t, defaultTaskTimeout, TaskTimeout("unknown"))
}

func TestPrompts(t *testing.T) {
	tests := []struct {
		name         string
		prompt       string
		wantContains []string
	}{
		{
			name:         "query plan",
			prompt:       QueryPlanPrompt("AI, Robotics", 2026),
			wantContains: []string{"AI, Robotics", "2026", "earnings", "workshops", "conferences", `"queries"`},
		},
		{
			name:         "extract",
			prompt:       ExtractPrompt("page text", 2026),
			wantContains: []string{"takes place in 2026", "2026-01-00", "2025 or earlier", "page text"},
		},
		{
			name:         "refine",
			prompt:       RefinePrompt("NVIDIA GTC", "content", 2027),
			wantContains: []string{`"NVIDIA GTC"`, "2027", "content"},
		},
		{
			name:         "keywords",
			prompt:       KeywordsPrompt([]string{"CES 2026"}, 2026),
			wantContains: []string{`["CES 2026"]`, "10 NEW", "2026"},
		},
		{
			name:         "category check",
			prompt:       CategoryCheckPrompt("AI", "GTC", "GPU conference"),
			wantContains: []string{"User interests: AI", "Event title: GTC", "is_match"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.wantContains {
				if !strings.Contains(tt.prompt, want) {
					t.Errorf("prompt missing %q:\n%s", want, tt.prompt)
				}
			}
		})
	}
}
