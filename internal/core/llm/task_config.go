package llm

import "time"

// TaskType identifies the type of LLM task.
type TaskType string

// Task type constants.
const (
	TaskTypeQueryPlan     TaskType = "query_plan"
	TaskTypeExtract       TaskType = "extract"
	TaskTypeLocalExtract  TaskType = "local_extract"
	TaskTypeRefine        TaskType = "refine"
	TaskTypeVerify        TaskType = "verify"
	TaskTypeKeywords      TaskType = "keywords"
	TaskTypeCategoryCheck TaskType = "category_check"
)

// Per-task call timeouts. Each provider attempt gets the full budget.
var taskTimeouts = map[TaskType]time.Duration{
	TaskTypeQueryPlan:     20 * time.Second,
	TaskTypeExtract:       60 * time.Second,
	TaskTypeLocalExtract:  120 * time.Second,
	TaskTypeRefine:        30 * time.Second,
	TaskTypeVerify:        60 * time.Second,
	TaskTypeKeywords:      120 * time.Second,
	TaskTypeCategoryCheck: 10 * time.Second,
}

const defaultTaskTimeout = 60 * time.Second

// TaskTimeout returns the per-attempt timeout for a task.
func TaskTimeout(task TaskType) time.Duration {
	if d, ok := taskTimeouts[task]; ok {
		return d
	}

	return defaultTaskTimeout
}

// ProviderModel specifies a provider and model combination.
type ProviderModel struct {
	Provider ProviderName
	Model    string
}

// TaskProviderChain defines the provider/model fallback chain for a task.
type TaskProviderChain struct {
	Default   ProviderModel
	Fallbacks []ProviderModel
}

// ModelSet names the model each provider uses.
type ModelSet struct {
	OpenAI    string
	Ollama    string
	Anthropic string
	Google    string
}

// DefaultTaskConfig returns the provider/model fallback chain per task.
// Hosted tasks go to the OpenAI-compatible endpoint first. The scheduler's
// local tasks go to Ollama first and fall back to the hosted endpoint.
func DefaultTaskConfig(m ModelSet) map[TaskType]TaskProviderChain {
	hosted := TaskProviderChain{
		Default: ProviderModel{Provider: ProviderOpenAI, Model: m.OpenAI},
		Fallbacks: []ProviderModel{
			{Provider: ProviderAnthropic, Model: m.Anthropic},
			{Provider: ProviderGoogle, Model: m.Google},
		},
	}

	local := TaskProviderChain{
		Default: ProviderModel{Provider: ProviderOllama, Model: m.Ollama},
		Fallbacks: []ProviderModel{
			{Provider: ProviderOpenAI, Model: m.OpenAI},
		},
	}

	return map[TaskType]TaskProviderChain{
		TaskTypeQueryPlan:    hosted,
		TaskTypeExtract:      hosted,
		TaskTypeRefine:       hosted,
		TaskTypeVerify:       hosted,
		TaskTypeLocalExtract: local,
		TaskTypeKeywords:     local,

		// Category check is latency bound; skip the slower Anthropic hop.
		TaskTypeCategoryCheck: {
			Default: ProviderModel{Provider: ProviderOpenAI, Model: m.OpenAI},
			Fallbacks: []ProviderModel{
				{Provider: ProviderGoogle, Model: m.Google},
			},
		},
	}
}

// GetProviderChain returns the ordered list of provider/model combinations for a task.
func (tc TaskProviderChain) GetProviderChain() []ProviderModel {
	chain := make([]ProviderModel, 0, 1+len(tc.Fallbacks))
	chain = append(chain, tc.Default)
	chain = append(chain, tc.Fallbacks...)

	return chain
}
