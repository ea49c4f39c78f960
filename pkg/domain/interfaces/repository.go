package interfaces

import (
	"context"

	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/domain/types"
)

// Repository defines the interface for data persistence
type Repository interface {
	Record() RecordRepository
	Close() error
}

// RecordRepository is the vector store backend. It does not deduplicate; callers check URLs
// before inserting.
type RecordRepository interface {
	// Insert stores records in order and returns their assigned ids
	Insert(ctx context.Context, records []*model.Record) ([]model.RecordID, error)

	// ExistsByURL reports whether any record was stored for url
	ExistsByURL(ctx context.Context, url string) (bool, error)

	// FindNearest returns up to limit records closest to vector within filter, nearest first.
	// Distances are normalized so that smaller is closer for every metric.
	FindNearest(ctx context.Context, vector []float32, limit int, filter model.SearchFilter) ([]*model.ScoredRecord, error)

	// SampleEmbedding returns the embedding of any stored record, or nil if the store is empty
	SampleEmbedding(ctx context.Context) ([]float32, error)

	// DeletePublishedBefore removes records whose published_at sorts before cutoff
	DeletePublishedBefore(ctx context.Context, cutoff string) (int, error)

	// Count returns the number of stored records
	Count(ctx context.Context) (int, error)

	// Metric returns the distance metric used by FindNearest
	Metric() types.DistanceMetric
}
