package embedding

import (
	"context"
	"fmt"
	"math"
)

// Embedder turns one piece of text into a vector of Dimension() floats.
// Implementations are plain adapters: no caching and no retries. Every
// failure, including a timeout or a malformed response, matches
// ragErrors.ErrEmbeddingUnavailable.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// QueryEmbedder is implemented by providers that embed search queries
// differently from stored chunks.
type QueryEmbedder interface {
	GetQueryEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbedQuery embeds a search query, using the query-side task when e has one.
func EmbedQuery(ctx context.Context, e Embedder, text string) ([]float32, error) {
	if q, ok := e.(QueryEmbedder); ok {
		return q.GetQueryEmbedding(ctx, text)
	}
	return e.GetEmbedding(ctx, text)
}

// Validate checks a provider response before it leaves the adapter.
func Validate(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("malformed embedding: expected %d dimensions, got %d", dim, len(vec))
	}
	for i, f := range vec {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("malformed embedding: non-finite value at index %d", i)
		}
	}
	return nil
}

func FromFloat64(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
