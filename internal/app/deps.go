package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"embed-service/internal/config"
	"embed-service/internal/embed"
	"embed-service/internal/embeddings"
	"embed-service/internal/logger"
	"embed-service/internal/retry"
	"embed-service/internal/usage"
)

// Deps bundles the runtime dependencies of the embedding service.
type Deps struct {
	Config  config.Config
	Log     *slog.Logger
	Service *embed.Service
	Usage   usage.Recorder
	// Counter is nil when REDIS_ADDR is unset.
	Counter *usage.RedisCounter

	closers []func() error
}

// Close releases connections opened by Build.
func (d Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build loads env, config, the model backend and the usage sinks.
// It fails if the model cannot be reached, so the service never starts without one.
func Build(ctx context.Context) (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	model, tok, err := buildBackend(ctx, cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize model: %w", err)
	}

	deps := Deps{
		Config:  cfg,
		Log:     log,
		Service: embed.NewService(model, tok, cfg.EmbeddingModel, cfg.MaxBatch),
	}
	if err := deps.buildUsage(ctx); err != nil {
		_ = deps.Close()
		return Deps{}, fmt.Errorf("failed to initialize usage sinks: %w", err)
	}
	log.Info("model ready", "model", cfg.EmbeddingModel, "backend", cfg.Backend, "tokenizer", cfg.TokenizerBackend, "max_batch", deps.Service.MaxBatch())
	return deps, nil
}

func buildBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (embeddings.Model, embeddings.Tokenizer, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var (
		model embeddings.Model
		tei   *embeddings.TEIClient
		err   error
	)
	switch cfg.Backend {
	case "tei":
		tei, err = embeddings.NewTEIClient(cfg.TEIURL, timeout)
		if err != nil {
			return nil, nil, err
		}
		if err := waitForTEI(ctx, tei, cfg, log); err != nil {
			return nil, nil, err
		}
		model = tei
	case "openai":
		oa, err := embeddings.NewOpenAIModel(embeddings.OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.EmbeddingModel,
			Timeout: timeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize OpenAI embedder: %w", err)
		}
		if err := waitForModel(ctx, oa, cfg, log); err != nil {
			return nil, nil, err
		}
		log.Info("using OpenAI-compatible embedder", "model", cfg.EmbeddingModel, "base_url", cfg.OpenAIBaseURL)
		model = oa
	default:
		return nil, nil, fmt.Errorf("invalid EMBEDDING_BACKEND: %s (valid options: tei, openai)", cfg.Backend)
	}

	var tok embeddings.Tokenizer
	switch cfg.TokenizerBackend {
	case "tei":
		if tei == nil {
			if tei, err = embeddings.NewTEIClient(cfg.TEIURL, timeout); err != nil {
				return nil, nil, err
			}
			if err := waitForTEI(ctx, tei, cfg, log); err != nil {
				return nil, nil, err
			}
		}
		tok = tei
	case "tiktoken":
		tt, err := embeddings.NewTiktokenTokenizer(cfg.TokenizerEncoding)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using tiktoken tokenizer", "encoding", tt.Encoding())
		tok = tt
	default:
		return nil, nil, fmt.Errorf("invalid TOKENIZER_BACKEND: %s (valid options: tei, tiktoken)", cfg.TokenizerBackend)
	}

	return embeddings.NewInstrumentedModel(model, cfg.Backend, log),
		embeddings.NewInstrumentedTokenizer(tok, cfg.TokenizerBackend, log),
		nil
}

// waitForModel embeds one text, retrying, so the service only reports ready
// once the backend answers.
func waitForModel(ctx context.Context, model embeddings.Model, cfg config.Config, log *slog.Logger) error {
	err := retry.Do(ctx, cfg.StartupAttempts, time.Second, func(attempt int) error {
		_, err := model.Encode(ctx, []string{"ping"})
		if err != nil {
			log.Warn("embedding backend not ready", "backend", cfg.Backend, "attempt", attempt+1, "err", err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("%s embedding backend unavailable: %w", cfg.Backend, err)
	}
	return nil
}

// waitForTEI blocks until the server reports a loaded model.
func waitForTEI(ctx context.Context, tei *embeddings.TEIClient, cfg config.Config, log *slog.Logger) error {
	var info embeddings.TEIInfo
	err := retry.Do(ctx, cfg.StartupAttempts, time.Second, func(attempt int) error {
		var err error
		info, err = tei.Info(ctx)
		if err != nil {
			log.Warn("tei not ready", "url", cfg.TEIURL, "attempt", attempt+1, "err", err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("tei at %s unavailable: %w", cfg.TEIURL, err)
	}
	if info.ModelID != "" && info.ModelID != cfg.EmbeddingModel {
		log.Warn("tei serves a different model than configured", "configured", cfg.EmbeddingModel, "served", info.ModelID)
	}
	log.Info("tei ready", "url", cfg.TEIURL, "model_id", info.ModelID, "max_input_length", info.MaxInputLength, "max_batch_tokens", info.MaxBatchTokens)
	return nil
}

func (d *Deps) buildUsage(ctx context.Context) error {
	cfg := d.Config
	var sinks []usage.Sink

	if cfg.RedisAddr != "" {
		counter, err := usage.NewRedisCounter(cfg.RedisAddr, cfg.RedisPassword, time.Duration(cfg.UsageTTLHours)*time.Hour)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, counter.Close)
		d.Counter = counter
		sinks = append(sinks, usage.Sink{Name: "redis", Recorder: counter})
		d.Log.Info("using Redis usage counter", "addr", cfg.RedisAddr)
	}
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		d.closers = append(d.closers, func() error { nc.Close(); return nil })
		sinks = append(sinks, usage.Sink{Name: "nats", Recorder: usage.NewNATS(nc)})
		d.Log.Info("using NATS usage publisher", "subject", usage.Subject)
	}
	if cfg.DBURL != "" {
		ledger, err := usage.NewPostgres(ctx, cfg.DBURL)
		if err != nil {
			return fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		d.closers = append(d.closers, ledger.Close)
		sinks = append(sinks, usage.Sink{Name: "postgres", Recorder: ledger})
		d.Log.Info("using Postgres usage ledger")
	}

	if len(sinks) == 0 {
		d.Usage = usage.Noop{}
		return nil
	}
	composite := usage.NewComposite(d.Log, sinks...)
	async := usage.NewAsync(composite, d.Log, time.Duration(cfg.UsageTimeoutSeconds)*time.Second)
	// drained first on Close, before the sinks it writes to
	d.closers = append(d.closers, async.Close)
	d.Usage = async
	d.Log.Info("usage recording enabled", "sinks", composite.Len(), "timeout_seconds", cfg.UsageTimeoutSeconds)
	return nil
}
