package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/lueurxax/event-scout/internal/core/embeddings"
	"github.com/lueurxax/event-scout/internal/platform/observability"
)

// Registry errors.
var (
	ErrNoProvidersAvailable = errors.New("no LLM providers available")
	ErrAllProvidersFailed   = errors.New("all LLM providers failed")
	errUnexpectedResultType = errors.New("unexpected provider result type")
)

// Registry manages LLM providers with per-task fallback chains.
type Registry struct {
	mu              sync.RWMutex
	providers       map[ProviderName]Provider
	order           []ProviderName // Priority order (highest first)
	circuitBreakers map[ProviderName]*gobreaker.CircuitBreaker[any]
	taskConfig      map[TaskType]TaskProviderChain
	logger          *zerolog.Logger
}

// NewRegistry creates a new provider registry.
func NewRegistry(taskConfig map[TaskType]TaskProviderChain, logger *zerolog.Logger) *Registry {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if taskConfig == nil {
		taskConfig = DefaultTaskConfig(ModelSet{})
	}

	return &Registry{
		providers:       make(map[ProviderName]Provider),
		order:           make([]ProviderName, 0),
		circuitBreakers: make(map[ProviderName]*gobreaker.CircuitBreaker[any]),
		taskConfig:      taskConfig,
		logger:          logger,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider, cfg embeddings.CircuitBreakerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	r.providers[name] = p
	r.order = append(r.order, name)
	r.circuitBreakers[name] = embeddings.NewCircuitBreaker[any]("llm-"+string(name), cfg, r.logger, func() {
		observability.LLMCircuitBreakerOpens.WithLabelValues(string(name)).Inc()
		observability.LLMCircuitBreakerState.WithLabelValues(string(name)).Set(MetricValueCBOpen)
		observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(MetricValueUnavailable)
	})

	r.sortProvidersByPriority()

	available := MetricValueUnavailable
	if p.IsAvailable() {
		available = MetricValueAvailable
	}

	observability.LLMProviderAvailable.WithLabelValues(string(name)).Set(available)

	r.logger.Info().
		Str(logKeyProvider, string(name)).
		Int("priority", p.Priority()).
		Msg("registered LLM provider")
}

// ProviderCount returns the number of registered providers.
func (r *Registry) ProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.providers)
}

// Complete implements Client with task-aware fallback and the task timeout.
func (r *Registry) Complete(ctx context.Context, req Request) (string, error) {
	return executeWithTaskFallback[string](ctx, r, req.Task, func(ctx context.Context, p Provider, m string) (string, error) {
		return p.Complete(ctx, req, m)
	})
}

// getProviderChainForTask returns task-specific providers first, then every
// other registered provider in priority order.
func (r *Registry) getProviderChainForTask(taskType TaskType) []ProviderModel {
	r.mu.RLock()
	taskChain, hasConfig := r.taskConfig[taskType]
	order := r.order
	r.mu.RUnlock()

	var providerModels []ProviderModel

	if hasConfig {
		providerModels = taskChain.GetProviderChain()
	}

	seen := make(map[ProviderName]bool)

	for _, pm := range providerModels {
		seen[pm.Provider] = true
	}

	for _, name := range order {
		if !seen[name] {
			providerModels = append(providerModels, ProviderModel{Provider: name, Model: ""})
			seen[name] = true
		}
	}

	return providerModels
}

type execFunc[T any] func(ctx context.Context, p Provider, model string) (T, error)

func executeWithTaskFallback[T any](ctx context.Context, r *Registry, taskType TaskType, fn execFunc[T]) (T, error) {
	providerModels := r.getProviderChainForTask(taskType)

	var zero T

	if len(providerModels) == 0 {
		return zero, ErrNoProvidersAvailable
	}

	var lastErr error

	var firstFailed ProviderName

	for _, pm := range providerModels {
		if ctx.Err() != nil {
			return zero, fmt.Errorf("llm %s: %w", taskType, ctx.Err())
		}

		result, success, err := tryProviderExec(ctx, r, pm, taskType, fn)
		if err != nil {
			lastErr = err

			if firstFailed == "" {
				firstFailed = pm.Provider
			}

			continue
		}

		if !success {
			continue
		}

		if firstFailed != "" {
			observability.LLMFallbacks.WithLabelValues(
				string(firstFailed),
				string(pm.Provider),
				string(taskType),
			).Inc()

			r.logger.Info().
				Str(logKeyProvider, string(pm.Provider)).
				Str("from_provider", string(firstFailed)).
				Str(logKeyTask, string(taskType)).
				Msg("used fallback LLM provider")
		}

		return result, nil
	}

	if lastErr != nil {
		return zero, errors.Join(ErrAllProvidersFailed, lastErr)
	}

	return zero, ErrNoProvidersAvailable
}

// tryProviderExec returns success=false with a nil error when the provider is
// skipped (unregistered, unavailable or circuit open).
func tryProviderExec[T any](ctx context.Context, r *Registry, pm ProviderModel, taskType TaskType, fn execFunc[T]) (T, bool, error) {
	var zero T

	r.mu.RLock()
	p, exists := r.providers[pm.Provider]
	cb := r.circuitBreakers[pm.Provider]
	r.mu.RUnlock()

	if !exists || !p.IsAvailable() {
		return zero, false, nil
	}

	if cb.State() == gobreaker.StateOpen {
		observability.LLMCircuitBreakerState.WithLabelValues(string(pm.Provider)).Set(MetricValueCBOpen)
		observability.LLMProviderAvailable.WithLabelValues(string(pm.Provider)).Set(MetricValueUnavailable)

		r.logger.Debug().
			Str(logKeyProvider, string(pm.Provider)).
			Str(logKeyTask, string(taskType)).
			Msg(logMsgCircuitBreakerOpen)

		return zero, false, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, TaskTimeout(taskType))
	defer cancel()

	start := time.Now()

	raw, err := cb.Execute(func() (any, error) {
		return fn(callCtx, p, pm.Model)
	})

	duration := time.Since(start)

	observability.LLMRequestLatency.WithLabelValues(
		string(pm.Provider),
		pm.Model,
		string(taskType),
	).Observe(duration.Seconds())

	if err != nil {
		recordRequest(string(pm.Provider), pm.Model, string(taskType), false)

		if embeddings.IsBreakerRejection(err) {
			return zero, false, nil
		}

		r.logger.Warn().
			Err(err).
			Str(logKeyProvider, string(pm.Provider)).
			Str(logKeyModel, pm.Model).
			Str(logKeyTask, string(taskType)).
			Float64("duration_seconds", duration.Seconds()).
			Msg(logMsgProviderFailed)

		return zero, false, fmt.Errorf("%s: %w", pm.Provider, err)
	}

	result, ok := raw.(T)
	if !ok {
		return zero, false, fmt.Errorf("%s: %w", pm.Provider, errUnexpectedResultType)
	}

	recordRequest(string(pm.Provider), pm.Model, string(taskType), true)

	observability.LLMCircuitBreakerState.WithLabelValues(string(pm.Provider)).Set(MetricValueCBClosed)
	observability.LLMProviderAvailable.WithLabelValues(string(pm.Provider)).Set(MetricValueAvailable)

	return result, true, nil
}

func recordRequest(provider, model, task string, success bool) {
	status := StatusSuccess
	if !success {
		status = StatusError
	}

	observability.LLMRequests.WithLabelValues(provider, model, task, status).Inc()
}

// RecordTokenUsage records token counts reported by a provider.
func RecordTokenUsage(provider, model, task string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		observability.LLMTokensPrompt.WithLabelValues(provider, model, task).Add(float64(promptTokens))
	}

	if completionTokens > 0 {
		observability.LLMTokensCompletion.WithLabelValues(provider, model, task).Add(float64(completionTokens))
	}
}

// sortProvidersByPriority sorts providers by priority in descending order.
func (r *Registry) sortProvidersByPriority() {
	sort.SliceStable(r.order, func(i, j int) bool {
		pi := r.providers[r.order[i]].Priority()
		pj := r.providers[r.order[j]].Priority()

		return pi > pj
	})
}

// ProviderStatus holds status information for a provider.
type ProviderStatus struct {
	Name             ProviderName
	Priority         int
	Available        bool
	CircuitBreakerOK bool
}

// GetProviderStatuses returns status information for all registered providers.
func (r *Registry) GetProviderStatuses() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make([]ProviderStatus, 0, len(r.order))

	for _, name := range r.order {
		p := r.providers[name]
		cb := r.circuitBreakers[name]

		statuses = append(statuses, ProviderStatus{
			Name:             name,
			Priority:         p.Priority(),
			Available:        p.IsAvailable(),
			CircuitBreakerOK: cb.State() != gobreaker.StateOpen,
		})
	}

	return statuses
}

// Ensure Registry implements Client interface.
var _ Client = (*Registry)(nil)
