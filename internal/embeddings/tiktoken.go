package embeddings

import (
	"context"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// BPE ranks ship inside the binary; startup never downloads them.
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TiktokenTokenizer counts tokens locally with a BPE encoding, for model
// backends that expose no tokenizer endpoint.
type TiktokenTokenizer struct {
	encoding string
	enc      *tiktoken.Tiktoken
}

// NewTiktokenTokenizer loads the named encoding (e.g. cl100k_base).
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", encoding, err)
	}
	return &TiktokenTokenizer{encoding: encoding, enc: enc}, nil
}

// Tokenize encodes each text as ordinary text. OpenAI embedding models add no
// framing tokens, so the counts match the API's prompt_tokens; special-token
// text in the input is counted as plain text, as the API does.
func (t *TiktokenTokenizer) Tokenize(_ context.Context, texts []string) ([][]int, error) {
	ids := make([][]int, len(texts))
	for i, text := range texts {
		ids[i] = t.enc.EncodeOrdinary(text)
	}
	return ids, nil
}

// Encoding returns the loaded encoding name.
func (t *TiktokenTokenizer) Encoding() string {
	return t.encoding
}
