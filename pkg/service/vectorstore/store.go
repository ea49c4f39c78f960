package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/interfaces"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/domain/types"
)

// Store owns the insert and search contract against a record repository. Every backend
// failure is reported as model.ErrStoreUnavailable so that an outage never looks like an empty
// result.
type Store struct {
	repo      interfaces.RecordRepository
	dimension int
}

// New checks that stored embeddings match dimension. A mismatch is a configuration error.
func New(ctx context.Context, repo interfaces.RecordRepository, dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, goerr.New("dimension must be positive", goerr.V(model.DimensionKey, dimension))
	}

	sample, err := repo.SampleEmbedding(ctx)
	if err != nil {
		return nil, unavailable(err, "failed to probe vector store")
	}
	if sample != nil && len(sample) != dimension {
		return nil, unavailable(model.ErrSchemaMismatch, "stored embedding dimension differs from configuration",
			goerr.V(model.DimensionKey, len(sample)),
			goerr.V("configured", dimension))
	}

	return &Store{repo: repo, dimension: dimension}, nil
}

func unavailable(err error, msg string, values ...goerr.Option) error {
	if !errors.Is(err, model.ErrStoreUnavailable) {
		err = fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	return goerr.Wrap(err, msg, values...)
}

func (s *Store) Metric() types.DistanceMetric {
	return s.repo.Metric()
}

// Upsert stores records in order. URLs must have been admitted by the deduplicator; the store
// itself does not deduplicate.
func (s *Store) Upsert(ctx context.Context, records []*model.Record) ([]model.RecordID, error) {
	if len(records) == 0 {
		return nil, nil
	}
	for i, rec := range records {
		if len(rec.Embedding) != s.dimension {
			return nil, goerr.Wrap(model.ErrSchemaMismatch, "record embedding dimension differs from configuration",
				goerr.V("index", i),
				goerr.V(model.URLKey, rec.URL),
				goerr.V(model.DimensionKey, len(rec.Embedding)))
		}
	}

	ids, err := s.repo.Insert(ctx, records)
	if err != nil {
		return nil, unavailable(err, "failed to insert records", goerr.V("count", len(records)))
	}
	return ids, nil
}

// ExistsByURL reports whether url is already stored
func (s *Store) ExistsByURL(ctx context.Context, url string) (bool, error) {
	exists, err := s.repo.ExistsByURL(ctx, url)
	if err != nil {
		return false, unavailable(err, "failed to check url", goerr.V(model.URLKey, url))
	}
	return exists, nil
}

// Search returns up to topK records nearest to vector with relevance >= minRelevance, ordered
// by model.SortRanked.
func (s *Store) Search(ctx context.Context, vector []float32, topK int, filter model.SearchFilter, minRelevance float64) ([]*model.RankedResult, error) {
	if len(vector) != s.dimension {
		return nil, unavailable(model.ErrSchemaMismatch, "query vector dimension differs from configuration",
			goerr.V(model.DimensionKey, len(vector)))
	}
	if topK <= 0 {
		return []*model.RankedResult{}, nil
	}

	hits, err := s.repo.FindNearest(ctx, vector, topK, filter)
	if err != nil {
		return nil, unavailable(err, "vector search failed", goerr.V("top_k", topK))
	}

	metric := s.repo.Metric()
	results := make([]*model.RankedResult, 0, len(hits))
	for _, hit := range hits {
		relevance := metric.Relevance(hit.Distance)
		if relevance < minRelevance {
			continue
		}
		rec := hit.Record
		results = append(results, &model.RankedResult{
			RecordID:    rec.ID,
			Title:       rec.Title,
			Text:        rec.Text,
			PublishedAt: rec.PublishedAt,
			URL:         rec.URL,
			Relevance:   relevance,
		})
	}

	model.SortRanked(results)
	return results, nil
}

// PurgeBefore deletes records published before cutoff
func (s *Store) PurgeBefore(ctx context.Context, cutoff string) (int, error) {
	n, err := s.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return n, unavailable(err, "failed to purge records", goerr.V("cutoff", cutoff))
	}
	return n, nil
}

// Count returns the number of stored records
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, unavailable(err, "failed to count records")
	}
	return n, nil
}
