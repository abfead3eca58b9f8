package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LLM metrics.
var (
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_llm_requests_total",
		Help: "Total LLM requests by provider, model, task and status",
	}, []string{"provider", "model", "task", "status"})

	LLMTokensPrompt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_llm_tokens_prompt_total",
		Help: "Prompt tokens consumed by provider, model and task",
	}, []string{"provider", "model", "task"})

	LLMTokensCompletion = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_llm_tokens_completion_total",
		Help: "Completion tokens produced by provider, model and task",
	}, []string{"provider", "model", "task"})

	LLMRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "event_scout_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"provider", "model", "task"})

	LLMFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_llm_fallbacks_total",
		Help: "LLM provider fallbacks by source provider, target provider and task",
	}, []string{"from", "to", "task"})

	LLMCircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "event_scout_llm_circuit_breaker_state",
		Help: "LLM circuit breaker state (0=closed, 1=open)",
	}, []string{"provider"})

	LLMCircuitBreakerOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_llm_circuit_breaker_opens_total",
		Help: "Number of times an LLM circuit breaker opened",
	}, []string{"provider"})

	LLMProviderAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "event_scout_llm_provider_available",
		Help: "Whether an LLM provider is available (1) or not (0)",
	}, []string{"provider"})

	LLMParseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_llm_parse_failures_total",
		Help: "Structured outputs that could not be decoded, by task",
	}, []string{"task"})
)

// Embedding metrics.
var (
	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_embedding_requests_total",
		Help: "Total embedding requests by provider, model and status",
	}, []string{"provider", "model", "status"})

	EmbeddingTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_embedding_tokens_total",
		Help: "Tokens embedded by provider and model",
	}, []string{"provider", "model"})

	EmbeddingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "event_scout_embedding_request_duration_seconds",
		Help:    "Duration of embedding requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider", "model"})

	EmbeddingProviderAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "event_scout_embedding_provider_available",
		Help: "Whether the embedding provider is available (1) or not (0)",
	}, []string{"provider"})

	EmbeddingCircuitBreakerOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_embedding_circuit_breaker_opens_total",
		Help: "Number of times the embedding circuit breaker opened",
	}, []string{"provider"})
)

// Discovery metrics.
var (
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_search_requests_total",
		Help: "Search backend requests by backend and status",
	}, []string{"backend", "status"})

	SearchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "event_scout_search_request_duration_seconds",
		Help:    "Duration of search backend requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})

	SearchFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_search_fallbacks_total",
		Help: "Searches served by a fallback backend",
	}, []string{"from", "to"})

	SearchCircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "event_scout_search_circuit_breaker_state",
		Help: "Search circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"backend"})

	CrawlRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_crawl_requests_total",
		Help: "Page fetches by status",
	}, []string{"status"})

	CrawlLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "event_scout_crawl_duration_seconds",
		Help:    "Duration of page fetch and text extraction",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	})
)

// Pipeline metrics.
var (
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_pipeline_runs_total",
		Help: "Ingestion runs by mode and status",
	}, []string{"mode", "status"})

	PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "event_scout_pipeline_duration_seconds",
		Help:    "Duration of an ingestion run",
		Buckets: []float64{5, 10, 30, 60, 120, 300, 600, 1200},
	}, []string{"mode"})

	PipelineStageItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_pipeline_stage_items_total",
		Help: "Items produced or dropped per pipeline stage",
	}, []string{"stage"})

	MergeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_merge_outcomes_total",
		Help: "Catalog merge outcomes (inserted, merged, skipped)",
	}, []string{"outcome"})

	CatalogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_scout_catalog_events",
		Help: "Number of events in the catalog",
	})
)

// Recommendation metrics.
var (
	RecommendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_recommend_requests_total",
		Help: "Recommendation requests by source (catalog or refreshed)",
	}, []string{"source"})

	TriggerDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_trigger_decisions_total",
		Help: "Adaptive trigger decisions (sufficient or ingest)",
	}, []string{"decision"})

	CategoryChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_category_checks_total",
		Help: "Category relevance checks by result (match, reject, error)",
	}, []string{"result"})
)

// Scheduler metrics.
var (
	SchedulerCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_scout_scheduler_cycles_total",
		Help: "Scheduler cycles by status",
	}, []string{"status"})

	SchedulerKeywords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "event_scout_scheduler_keywords_total",
		Help: "Keywords generated and searched by the scheduler",
	})

	SchedulerHistorySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_scout_scheduler_history_size",
		Help: "Number of keywords in the persisted search history",
	})
)
