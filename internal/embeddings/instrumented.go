package embeddings

import (
	"context"
	"log/slog"
	"time"

	"embed-service/internal/metrics"
)

// InstrumentedModel wraps a Model with latency/error metrics and debug logging.
type InstrumentedModel struct {
	inner   Model
	backend string
	log     *slog.Logger
}

// NewInstrumentedModel wraps inner, labelling metrics with backend.
func NewInstrumentedModel(inner Model, backend string, log *slog.Logger) *InstrumentedModel {
	return &InstrumentedModel{inner: inner, backend: backend, log: log}
}

func (m *InstrumentedModel) Encode(ctx context.Context, texts []string) ([]Vector, error) {
	start := time.Now()
	vecs, err := m.inner.Encode(ctx, texts)
	duration := time.Since(start)

	metrics.BackendDuration.WithLabelValues(m.backend, "encode").Observe(duration.Seconds())
	if err != nil {
		metrics.BackendErrorsTotal.WithLabelValues(m.backend, "encode").Inc()
		return nil, err
	}

	dims := 0
	if len(vecs) > 0 {
		dims = len(vecs[0])
	}
	m.log.Debug("encode completed",
		"backend", m.backend,
		"texts", len(texts),
		"dimensions", dims,
		"duration_ms", duration.Milliseconds(),
	)
	return vecs, nil
}

// InstrumentedTokenizer wraps a Tokenizer with latency/error metrics.
type InstrumentedTokenizer struct {
	inner   Tokenizer
	backend string
	log     *slog.Logger
}

// NewInstrumentedTokenizer wraps inner, labelling metrics with backend.
func NewInstrumentedTokenizer(inner Tokenizer, backend string, log *slog.Logger) *InstrumentedTokenizer {
	return &InstrumentedTokenizer{inner: inner, backend: backend, log: log}
}

func (t *InstrumentedTokenizer) Tokenize(ctx context.Context, texts []string) ([][]int, error) {
	start := time.Now()
	ids, err := t.inner.Tokenize(ctx, texts)
	duration := time.Since(start)

	metrics.BackendDuration.WithLabelValues(t.backend, "tokenize").Observe(duration.Seconds())
	if err != nil {
		metrics.BackendErrorsTotal.WithLabelValues(t.backend, "tokenize").Inc()
		return nil, err
	}
	t.log.Debug("tokenize completed", "backend", t.backend, "texts", len(texts), "duration_ms", duration.Milliseconds())
	return ids, nil
}
