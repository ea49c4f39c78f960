package interfaces

import (
	"context"

	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/domain/types"
)

// Embedder turns text into vectors of a fixed dimension. Ingestion and retrieval must share
// one implementation.
type Embedder interface {
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the application-level contract of the record store
type VectorStore interface {
	Metric() types.DistanceMetric
	Upsert(ctx context.Context, records []*model.Record) ([]model.RecordID, error)
	ExistsByURL(ctx context.Context, url string) (bool, error)
	Search(ctx context.Context, vector []float32, topK int, filter model.SearchFilter, minRelevance float64) ([]*model.RankedResult, error)
	PurgeBefore(ctx context.Context, cutoff string) (int, error)
	Count(ctx context.Context) (int, error)
}
