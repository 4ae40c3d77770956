package config

import (
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration for the embedding service.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Model
	EmbeddingModel  string `env:"EMBEDDING_MODEL" envDefault:"intfloat/e5-base-v2"`
	MaxBatch        int    `env:"EMBEDDING_MAX_BATCH" envDefault:"32"`
	Backend         string `env:"EMBEDDING_BACKEND" envDefault:"tei"` // "tei" or "openai"
	StartupAttempts int    `env:"EMBEDDING_STARTUP_ATTEMPTS" envDefault:"5"`
	TimeoutSeconds  int    `env:"EMBEDDING_TIMEOUT_SECONDS" envDefault:"0"` // 0 disables the backend client timeout

	// Backends
	TEIURL        string `env:"TEI_URL" envDefault:"http://localhost:8081"`
	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	// Tokenizer
	TokenizerBackend  string `env:"TOKENIZER_BACKEND" envDefault:"tei"` // "tei" or "tiktoken"
	TokenizerEncoding string `env:"TOKENIZER_ENCODING" envDefault:"cl100k_base"`

	// Usage accounting, every sink is optional
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	UsageTTLHours int    `env:"USAGE_TTL_HOURS" envDefault:"72"`
	NATSURL       string `env:"NATS_URL"`
	DBURL         string `env:"DB_URL"`

	// Per-event deadline for background usage recording
	UsageTimeoutSeconds int `env:"USAGE_TIMEOUT_SECONDS" envDefault:"5"`
}

// Load reads configuration from environment variables with defaults.
// EMBEDDING_MAX_BATCH is always a positive limit: zero, negative or
// unparsable values fall back to 32 rather than disabling the check.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	if cfg.MaxBatch <= 0 {
		slog.Warn("EMBEDDING_MAX_BATCH must be positive; using 32", "value", cfg.MaxBatch)
		cfg.MaxBatch = 32
	}
	if cfg.StartupAttempts <= 0 {
		cfg.StartupAttempts = 1
	}
	if cfg.UsageTimeoutSeconds <= 0 {
		cfg.UsageTimeoutSeconds = 5
	}
	return cfg
}
