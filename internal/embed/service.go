// Package embed holds the request contract of the embedding endpoint: input
// normalization, batch limits, prefixing and response assembly.
package embed

import (
	"context"
	"errors"
	"fmt"

	"embed-service/internal/embeddings"
)

var (
	// ErrEmptyInput is returned when the normalized input list has no texts.
	ErrEmptyInput = errors.New("input cannot be empty")
	// ErrBatchTooLarge is returned when the input list exceeds the configured maximum.
	ErrBatchTooLarge = errors.New("batch too large")
)

// Request is one embedding call after wire parsing.
type Request struct {
	Input     Input
	InputType InputType
}

// Item is the embedding of one input text.
type Item struct {
	Index     int               `json:"index"`
	Embedding embeddings.Vector `json:"embedding"`
	Tokens    int               `json:"tokens"`
}

// Usage aggregates token accounting for a response.
type Usage struct {
	TotalTokens int `json:"total_tokens"`
}

// Response is the full result of an embedding call.
type Response struct {
	Model string `json:"model"`
	Data  []Item `json:"data"`
	Usage Usage  `json:"usage"`
}

// Service embeds texts with a loaded model and tokenizer. It is safe for
// concurrent use as long as the model and tokenizer are.
type Service struct {
	model     embeddings.Model
	tokenizer embeddings.Tokenizer
	modelName string
	maxBatch  int
}

// DefaultMaxBatch is the batch limit used when none is configured.
const DefaultMaxBatch = 32

// NewService builds a Service. The batch limit is always enforced:
// maxBatch <= 0 falls back to DefaultMaxBatch, as config loading does.
func NewService(model embeddings.Model, tokenizer embeddings.Tokenizer, modelName string, maxBatch int) *Service {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Service{
		model:     model,
		tokenizer: tokenizer,
		modelName: modelName,
		maxBatch:  maxBatch,
	}
}

// Model returns the configured model name.
func (s *Service) Model() string {
	return s.modelName
}

// MaxBatch returns the maximum number of texts per request.
func (s *Service) MaxBatch() int {
	return s.maxBatch
}

// Embed validates the batch, prefixes every text, encodes and tokenizes the
// prefixed texts and zips the results in input order.
func (s *Service) Embed(ctx context.Context, req Request) (Response, error) {
	texts := req.Input.Texts()
	if len(texts) == 0 {
		return Response{}, ErrEmptyInput
	}
	if len(texts) > s.maxBatch {
		return Response{}, fmt.Errorf("%w: %d texts, max %d", ErrBatchTooLarge, len(texts), s.maxBatch)
	}

	prepared := make([]string, len(texts))
	for i, t := range texts {
		prepared[i] = ApplyPrefix(t, req.InputType)
	}

	vectors, err := s.model.Encode(ctx, prepared)
	if err != nil {
		return Response{}, fmt.Errorf("encode: %w", err)
	}
	if len(vectors) != len(prepared) {
		return Response{}, fmt.Errorf("encode: model returned %d vectors for %d texts", len(vectors), len(prepared))
	}

	ids, err := s.tokenizer.Tokenize(ctx, prepared)
	if err != nil {
		return Response{}, fmt.Errorf("tokenize: %w", err)
	}
	if len(ids) != len(prepared) {
		return Response{}, fmt.Errorf("tokenize: tokenizer returned %d sequences for %d texts", len(ids), len(prepared))
	}

	tokens := make([]int, len(ids))
	for i, seq := range ids {
		tokens[i] = len(seq)
	}
	return assemble(s.modelName, vectors, tokens), nil
}

func assemble(model string, vectors []embeddings.Vector, tokens []int) Response {
	data := make([]Item, len(vectors))
	total := 0
	for i, vec := range vectors {
		data[i] = Item{Index: i, Embedding: vec, Tokens: tokens[i]}
		total += tokens[i]
	}
	return Response{
		Model: model,
		Data:  data,
		Usage: Usage{TotalTokens: total},
	}
}
