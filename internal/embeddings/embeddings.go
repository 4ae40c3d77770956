package embeddings

import (
	"context"
	"math"
)

// Vector is a simple float32 slice wrapper.
type Vector []float32

// Model turns texts into unit-length vectors, one per text, in input order.
type Model interface {
	Encode(ctx context.Context, texts []string) ([]Vector, error)
}

// Tokenizer returns the token ids of each text, including any special tokens
// the model itself adds (e.g. [CLS]/[SEP] for BERT-style models).
type Tokenizer interface {
	Tokenize(ctx context.Context, texts []string) ([][]int, error)
}

// Norm returns the Euclidean length of v.
func Norm(v Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize scales v in place to unit length and returns it.
// A zero vector is returned unchanged.
func Normalize(v Vector) Vector {
	n := Norm(v)
	if n == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / n)
	}
	return v
}
