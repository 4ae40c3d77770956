package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	// Save original env and restore after test
	originalEnv := os.Environ()
	defer func() {
		os.Clearenv()
		for _, env := range originalEnv {
			for i, c := range env {
				if c == '=' {
					os.Setenv(env[:i], env[i+1:])
					break
				}
			}
		}
	}()

	os.Clearenv()

	cfg := Load()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Port", cfg.Port, 8080},
		{"LogLevel", cfg.LogLevel, "info"},
		{"EmbeddingModel", cfg.EmbeddingModel, "intfloat/e5-base-v2"},
		{"MaxBatch", cfg.MaxBatch, 32},
		{"Backend", cfg.Backend, "tei"},
		{"TokenizerBackend", cfg.TokenizerBackend, "tei"},
		{"TokenizerEncoding", cfg.TokenizerEncoding, "cl100k_base"},
		{"StartupAttempts", cfg.StartupAttempts, 5},
		{"TimeoutSeconds", cfg.TimeoutSeconds, 0},
		{"UsageTTLHours", cfg.UsageTTLHours, 72},
		{"UsageTimeoutSeconds", cfg.UsageTimeoutSeconds, 5},
		{"RedisAddr", cfg.RedisAddr, ""},
		{"NATSURL", cfg.NATSURL, ""},
		{"DBURL", cfg.DBURL, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s=%v, got %v", tt.name, tt.expected, tt.got)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("EMBEDDING_MODEL", "BAAI/bge-small-en-v1.5")
	t.Setenv("EMBEDDING_MAX_BATCH", "64")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.LogLevel)
	}
	if cfg.EmbeddingModel != "BAAI/bge-small-en-v1.5" {
		t.Errorf("expected model override, got %s", cfg.EmbeddingModel)
	}
	if cfg.MaxBatch != 64 {
		t.Errorf("expected max batch 64, got %d", cfg.MaxBatch)
	}
}

func TestLoadInvalidMaxBatchFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"zero", "0"},
		{"negative", "-3"},
		{"not a number", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("EMBEDDING_MAX_BATCH", tt.value)
			cfg := Load()
			if cfg.MaxBatch != 32 {
				t.Errorf("expected max batch 32, got %d", cfg.MaxBatch)
			}
		})
	}
}

func TestLoadProviderOverrides(t *testing.T) {
	t.Setenv("EMBEDDING_BACKEND", "openai")
	t.Setenv("TOKENIZER_BACKEND", "tiktoken")

	cfg := Load()

	if cfg.Backend != "openai" {
		t.Errorf("expected backend 'openai', got %s", cfg.Backend)
	}
	if cfg.TokenizerBackend != "tiktoken" {
		t.Errorf("expected tokenizer 'tiktoken', got %s", cfg.TokenizerBackend)
	}
}
