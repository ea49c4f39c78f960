package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/domain/types"
)

type recordRepository struct {
	mu      sync.RWMutex
	metric  types.DistanceMetric
	records []*model.Record
	byURL   map[string]int
}

func newRecordRepository() *recordRepository {
	return &recordRepository{
		metric: types.DistanceEuclidean,
		byURL:  make(map[string]int),
	}
}

func copyRecord(r *model.Record) *model.Record {
	copied := *r
	if r.Embedding != nil {
		copied.Embedding = make([]float32, len(r.Embedding))
		copy(copied.Embedding, r.Embedding)
	}
	return &copied
}

func (r *recordRepository) Metric() types.DistanceMetric {
	return r.metric
}

func (r *recordRepository) Insert(ctx context.Context, records []*model.Record) ([]model.RecordID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]model.RecordID, 0, len(records))
	now := time.Now().UTC()
	for _, rec := range records {
		if len(rec.Embedding) == 0 {
			return ids, goerr.New("record has no embedding", goerr.V(model.URLKey, rec.URL))
		}
		created := copyRecord(rec)
		if created.ID == "" {
			created.ID = model.NewRecordID()
		}
		created.CreatedAt = now

		r.records = append(r.records, created)
		r.byURL[created.URL]++
		ids = append(ids, created.ID)
	}

	return ids, nil
}

func (r *recordRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byURL[url] > 0, nil
}

func (r *recordRepository) FindNearest(ctx context.Context, vector []float32, limit int, filter model.SearchFilter) ([]*model.ScoredRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []*model.ScoredRecord
	for _, rec := range r.records {
		if !filter.Match(rec.PublishedAt) {
			continue
		}
		if len(rec.Embedding) != len(vector) {
			return nil, goerr.Wrap(model.ErrSchemaMismatch, "embedding dimension differs from query",
				goerr.V(model.RecordIDKey, rec.ID),
				goerr.V(model.DimensionKey, len(rec.Embedding)))
		}
		candidates = append(candidates, &model.ScoredRecord{
			Record:   copyRecord(rec),
			Distance: distance(r.metric, vector, rec.Embedding),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	if limit < len(candidates) {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (r *recordRepository) SampleEmbedding(ctx context.Context) ([]float32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.records) == 0 {
		return nil, nil
	}
	return copyRecord(r.records[0]).Embedding, nil
}

func (r *recordRepository) DeletePublishedBefore(ctx context.Context, cutoff string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.records[:0]
	deleted := 0
	for _, rec := range r.records {
		if rec.PublishedAt < cutoff {
			r.byURL[rec.URL]--
			if r.byURL[rec.URL] <= 0 {
				delete(r.byURL, rec.URL)
			}
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return deleted, nil
}

func (r *recordRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}

// distance returns a metric distance where smaller is closer. Cosine and dot product are
// reported as 1-similarity so that they share the [0, 2] range of unit vectors.
func distance(metric types.DistanceMetric, a, b []float32) float64 {
	switch metric {
	case types.DistanceCosine:
		return 1 - cosineSimilarity(a, b)
	case types.DistanceDotProduct:
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
		}
		return 1 - dot
	default:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return math.Sqrt(sum)
	}
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
