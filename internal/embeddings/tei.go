package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TEIClient talks to a HuggingFace text-embeddings-inference server, which hosts
// both the sentence-embedding model and its tokenizer.
type TEIClient struct {
	baseURL    string
	httpClient *http.Client
}

// TEIInfo is the subset of GET /info this service cares about.
type TEIInfo struct {
	ModelID        string `json:"model_id"`
	MaxInputLength int    `json:"max_input_length"`
	MaxBatchTokens int    `json:"max_batch_tokens"`
}

type teiEmbedRequest struct {
	Inputs    []string `json:"inputs"`
	Normalize bool     `json:"normalize"`
	Truncate  bool     `json:"truncate"`
}

type teiTokenizeRequest struct {
	Inputs           []string `json:"inputs"`
	AddSpecialTokens bool     `json:"add_special_tokens"`
}

type teiToken struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Special bool   `json:"special"`
}

type teiError struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// NewTEIClient creates a client for the server at baseURL. A zero timeout means none.
func NewTEIClient(baseURL string, timeout time.Duration) (*TEIClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("tei base url required")
	}
	return &TEIClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Info fetches the served model description. It fails until the model is loaded.
func (c *TEIClient) Info(ctx context.Context) (TEIInfo, error) {
	var info TEIInfo
	if err := c.do(ctx, http.MethodGet, "/info", nil, &info); err != nil {
		return TEIInfo{}, err
	}
	return info, nil
}

// Encode embeds texts with server-side L2 normalization. Inputs longer than the
// model window are truncated by the server.
func (c *TEIClient) Encode(ctx context.Context, texts []string) ([]Vector, error) {
	var out []Vector
	req := teiEmbedRequest{Inputs: texts, Normalize: true, Truncate: true}
	if err := c.do(ctx, http.MethodPost, "/embed", req, &out); err != nil {
		return nil, err
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("tei embed: got %d vectors for %d inputs", len(out), len(texts))
	}
	return out, nil
}

// Tokenize returns token ids per text with special tokens added.
func (c *TEIClient) Tokenize(ctx context.Context, texts []string) ([][]int, error) {
	var tokens [][]teiToken
	req := teiTokenizeRequest{Inputs: texts, AddSpecialTokens: true}
	if err := c.do(ctx, http.MethodPost, "/tokenize", req, &tokens); err != nil {
		return nil, err
	}
	if len(tokens) != len(texts) {
		return nil, fmt.Errorf("tei tokenize: got %d token lists for %d inputs", len(tokens), len(texts))
	}
	ids := make([][]int, len(tokens))
	for i, seq := range tokens {
		ids[i] = make([]int, len(seq))
		for j, tok := range seq {
			ids[i][j] = tok.ID
		}
	}
	return ids, nil
}

func (c *TEIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("tei %s: marshal request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("tei %s: create request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tei %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr teiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("tei %s: status %d: %s (%s)", path, resp.StatusCode, apiErr.Error, apiErr.ErrorType)
		}
		return fmt.Errorf("tei %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tei %s: decode response: %w", path, err)
	}
	return nil
}
