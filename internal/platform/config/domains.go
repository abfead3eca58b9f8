package config

import "time"

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	PostgresDSN         string        `env:"POSTGRES_DSN,required"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"1"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// TelegramBotConfig holds Telegram bot settings.
type TelegramBotConfig struct {
	BotToken string  `env:"BOT_TOKEN"`
	AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`
}

// LLMConfig holds completion provider settings.
// LLM_BASE_URL points the OpenAI-compatible client at DeepSeek by default.
type LLMConfig struct {
	LLMAPIKey       string `env:"LLM_API_KEY"`
	LLMBaseURL      string `env:"LLM_BASE_URL" envDefault:"https://api.deepseek.com/v1"`
	LLMModel        string `env:"LLM_MODEL" envDefault:"deepseek-chat"`
	OllamaBaseURL   string `env:"OLLAMA_BASE_URL" envDefault:""`
	OllamaModel     string `env:"OLLAMA_MODEL" envDefault:"llama3"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL" envDefault:"claude-haiku-4-5"`
	GoogleAPIKey    string `env:"GOOGLE_API_KEY"`
	GoogleModel     string `env:"GOOGLE_MODEL" envDefault:"gemini-2.5-flash-lite"`
	RateLimitRPS    int    `env:"RATE_LIMIT_RPS" envDefault:"1"`

	LLMCircuitThreshold int           `env:"LLM_CIRCUIT_THRESHOLD" envDefault:"5"`
	LLMCircuitTimeout   time.Duration `env:"LLM_CIRCUIT_TIMEOUT" envDefault:"1m"`
}

// EmbeddingConfig holds encoder settings. Exactly one provider is bound at startup.
type EmbeddingConfig struct {
	OpenAIEmbeddingAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIEmbeddingModel      string        `env:"OPENAI_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimensions       int           `env:"EMBEDDING_DIMENSIONS" envDefault:"384" validate:"gte=1"`
	EmbeddingProviderOrder    string        `env:"EMBEDDING_PROVIDER_ORDER" envDefault:"openai,google"`
	EmbeddingCircuitThreshold int           `env:"EMBEDDING_CIRCUIT_THRESHOLD" envDefault:"5"`
	EmbeddingCircuitTimeout   time.Duration `env:"EMBEDDING_CIRCUIT_TIMEOUT" envDefault:"1m"`
}

// SearchConfig holds discovery backend settings.
type SearchConfig struct {
	SearxNGEnabled      bool          `env:"SEARXNG_ENABLED" envDefault:"true"`
	SearxNGBaseURL      string        `env:"SEARXNG_BASE_URL" envDefault:"http://localhost:8888"`
	SearxNGEngines      string        `env:"SEARXNG_ENGINES" envDefault:""`
	DuckDuckGoEnabled   bool          `env:"DUCKDUCKGO_ENABLED" envDefault:"true"`
	DuckDuckGoBaseURL   string        `env:"DUCKDUCKGO_BASE_URL" envDefault:"https://html.duckduckgo.com/html/"`
	DuckDuckGoRPS       float64       `env:"DUCKDUCKGO_RPS" envDefault:"0.5"`
	SearchTimeout       time.Duration `env:"SEARCH_TIMEOUT" envDefault:"30s"`
	SearchMaxResults    int           `env:"SEARCH_MAX_RESULTS" envDefault:"10"`
	SearchCircuitWindow time.Duration `env:"SEARCH_CIRCUIT_WINDOW" envDefault:"1m"`
	SearchCircuitReset  time.Duration `env:"SEARCH_CIRCUIT_RESET" envDefault:"2m"`
	DomainAllowlist     string        `env:"DISCOVERY_DOMAIN_ALLOWLIST"`
	DomainDenylist      string        `env:"DISCOVERY_DOMAIN_DENYLIST"`
	WebFetchRPS         float64       `env:"WEB_FETCH_RPS" envDefault:"2"`
	WebFetchTimeout     time.Duration `env:"WEB_FETCH_TIMEOUT" envDefault:"30s"`
	MaxContentLength    int           `env:"MAX_CONTENT_LENGTH" envDefault:"20000"`
}

// PipelineConfig holds ingestion bounds and merge thresholds.
type PipelineConfig struct {
	TargetYear            int     `env:"TARGET_YEAR" envDefault:"2026" validate:"gte=2000,lte=2100"`
	MaxQueries            int     `env:"PIPELINE_MAX_QUERIES" envDefault:"8" validate:"gte=1"`
	MaxCrawlURLs          int     `env:"PIPELINE_MAX_CRAWL_URLS" envDefault:"6" validate:"gte=1"`
	MaxRefinements        int     `env:"PIPELINE_MAX_REFINEMENTS" envDefault:"5" validate:"gte=0"`
	ExtractMaxChars       int     `env:"EXTRACT_MAX_CHARS" envDefault:"10000"`
	LocalExtractMaxChars  int     `env:"LOCAL_EXTRACT_MAX_CHARS" envDefault:"5000"`
	RefineMaxChars        int     `env:"REFINE_MAX_CHARS" envDefault:"6000"`
	MergeSimilarity       float32 `env:"MERGE_SIMILARITY" envDefault:"0.88" validate:"gt=0,lte=1"`
	MergeDescriptionDelta int     `env:"MERGE_DESCRIPTION_DELTA" envDefault:"20"`
}

// RecommendConfig holds the engine gate, the trigger thresholds and the display filter.
// The three score thresholds are independent.
type RecommendConfig struct {
	RecommendTopK          int     `env:"RECOMMEND_TOP_K" envDefault:"10" validate:"gte=1"`
	CategoryCheckThreshold float32 `env:"CATEGORY_CHECK_THRESHOLD" envDefault:"0.25" validate:"gte=-1,lte=1"`
	StrongMatchScore       float32 `env:"STRONG_MATCH_SCORE" envDefault:"0.35" validate:"gte=-1,lte=1"`
	MinStrongMatches       int     `env:"MIN_STRONG_MATCHES" envDefault:"4"`
	DisplayMinScore        float32 `env:"DISPLAY_MIN_SCORE" envDefault:"0.25" validate:"gte=-1,lte=1"`
	DefaultUsername        string  `env:"DEFAULT_USERNAME" envDefault:"default_user"`
}

// SchedulerConfig holds the periodic keyword cycle settings.
type SchedulerConfig struct {
	KeywordHistoryPath         string        `env:"KEYWORD_HISTORY_PATH" envDefault:"./searched_keywords.json"`
	SchedulerInterval          time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"10m" validate:"gt=0"`
	SchedulerErrorBackoff      time.Duration `env:"SCHEDULER_ERROR_BACKOFF" envDefault:"1m"`
	SchedulerResultsPerKeyword int           `env:"SCHEDULER_RESULTS_PER_KEYWORD" envDefault:"3"`
	SchedulerKeywordsPerCycle  int           `env:"SCHEDULER_KEYWORDS_PER_CYCLE" envDefault:"10"`
	SchedulerHistoryWindow     int           `env:"SCHEDULER_HISTORY_WINDOW" envDefault:"20"`
}
