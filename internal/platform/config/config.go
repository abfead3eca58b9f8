package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv     string `env:"APP_ENV" envDefault:"local"`
	HealthPort int    `env:"HEALTH_PORT" envDefault:"8080" validate:"gte=0,lte=65535"`

	DatabaseConfig
	TelegramBotConfig
	LLMConfig
	EmbeddingConfig
	SearchConfig
	PipelineConfig
	RecommendConfig
	SchedulerConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyAliases(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// EmbeddingProviders returns the configured encoder order as trimmed names.
func (c *Config) EmbeddingProviders() []string {
	var names []string

	for _, name := range strings.Split(c.EmbeddingProviderOrder, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, strings.ToLower(name))
		}
	}

	return names
}

// IsLocal reports whether the process runs in a developer environment.
func (c *Config) IsLocal() bool {
	return c.AppEnv == "local"
}

func applyAliases(cfg *Config) {
	applyLLMAliases(cfg)
	applySearchAliases(cfg)
	applySchedulerAliases(cfg)
}

func applyLLMAliases(cfg *Config) {
	if !hasEnv("LLM_API_KEY") {
		setStringFromEnv("DEEPSEEK_API_KEY", &cfg.LLMAPIKey)
	}

	if !hasEnv("LLM_BASE_URL") {
		setStringFromEnv("DEEPSEEK_BASE_URL", &cfg.LLMBaseURL)
	}

	if !hasEnv("OLLAMA_BASE_URL") {
		setStringFromEnv("OLLAMA_HOST", &cfg.OllamaBaseURL)
	}
}

func applySearchAliases(cfg *Config) {
	if !hasEnv("SEARXNG_BASE_URL") {
		setStringFromEnv("SEARXNG_URL", &cfg.SearxNGBaseURL)
	}

	if !hasEnv("SEARXNG_ENABLED") {
		setBoolFromEnv("SEARCH_SEARXNG_ENABLED", &cfg.SearxNGEnabled)
	}

	if !hasEnv("PIPELINE_MAX_QUERIES") {
		setIntFromEnv("MAX_QUERIES", &cfg.MaxQueries)
	}

	if !hasEnv("MERGE_SIMILARITY") {
		setFloat32FromEnv("DEDUP_SIMILARITY_THRESHOLD", &cfg.MergeSimilarity)
	}
}

func applySchedulerAliases(cfg *Config) {
	if !hasEnv("SCHEDULER_INTERVAL") {
		setSecondsAsDuration("SCHEDULER_INTERVAL_SECONDS", &cfg.SchedulerInterval)
	}

	if !hasEnv("SCHEDULER_ERROR_BACKOFF") {
		setDurationFromEnv("SCHEDULER_RETRY_DELAY", &cfg.SchedulerErrorBackoff)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}

func setBoolFromEnv(key string, target *bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}

func setIntFromEnv(key string, target *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}

func setFloat32FromEnv(key string, target *float32) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 32)
	if err != nil {
		return
	}

	*target = float32(parsed)
}

func setDurationFromEnv(key string, target *time.Duration) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}

func setSecondsAsDuration(key string, target *time.Duration) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || parsed <= 0 {
		return
	}

	*target = time.Duration(parsed) * time.Second
}
