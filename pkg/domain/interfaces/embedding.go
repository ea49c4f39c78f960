package interfaces

import "context"

// EmbeddingModel is the external text-to-vector service. gollem.LLMClient satisfies it.
type EmbeddingModel interface {
	GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error)
}
