package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/status"
)

const (
	distanceField = "VectorDistance"

	// maxTransactionWrites is the Firestore limit of writes in one transaction
	maxTransactionWrites = 500
)

// recordDoc is the Firestore document representation of model.Record.
// Embedding is stored as firestore.Vector32 so that FindNearest vector search works.
type recordDoc struct {
	ID          model.RecordID     `firestore:"ID"`
	Embedding   firestore.Vector32 `firestore:"Embedding"`
	Title       string             `firestore:"Title"`
	Text        string             `firestore:"Text"`
	PublishedAt string             `firestore:"PublishedAt"`
	URL         string             `firestore:"URL"`
	ChunkIndex  int                `firestore:"ChunkIndex"`
	CreatedAt   time.Time          `firestore:"CreatedAt"`
}

func toRecordDoc(r *model.Record) *recordDoc {
	return &recordDoc{
		ID:          r.ID,
		Embedding:   firestore.Vector32(r.Embedding),
		Title:       r.Title,
		Text:        r.Text,
		PublishedAt: r.PublishedAt,
		URL:         r.URL,
		ChunkIndex:  r.ChunkIndex,
		CreatedAt:   r.CreatedAt,
	}
}

func fromRecordDoc(d *recordDoc) *model.Record {
	return &model.Record{
		ID:          d.ID,
		Embedding:   []float32(d.Embedding),
		Title:       d.Title,
		Text:        d.Text,
		PublishedAt: d.PublishedAt,
		URL:         d.URL,
		ChunkIndex:  d.ChunkIndex,
		CreatedAt:   d.CreatedAt,
	}
}

type recordRepository struct {
	client     *firestore.Client
	collection string
	metric     types.DistanceMetric
}

func newRecordRepository(client *firestore.Client) *recordRepository {
	return &recordRepository{
		client:     client,
		collection: DefaultCollection,
		metric:     types.DistanceEuclidean,
	}
}

func (r *recordRepository) records() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func (r *recordRepository) Metric() types.DistanceMetric {
	return r.metric
}

// Insert writes records in transactions of up to 500 documents, so a batch of chunks is stored
// entirely or not at all.
func (r *recordRepository) Insert(ctx context.Context, records []*model.Record) ([]model.RecordID, error) {
	ids := make([]model.RecordID, 0, len(records))
	now := time.Now().UTC()

	for start := 0; start < len(records); start += maxTransactionWrites {
		end := min(start+maxTransactionWrites, len(records))
		group := make([]*recordDoc, 0, end-start)
		for _, rec := range records[start:end] {
			doc := toRecordDoc(rec)
			if doc.ID == "" {
				doc.ID = model.NewRecordID()
			}
			doc.CreatedAt = now
			group = append(group, doc)
		}

		err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			for _, doc := range group {
				if err := tx.Create(r.records().Doc(doc.ID.String()), doc); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return ids, goerr.Wrap(err, "failed to insert records",
				goerr.V("count", len(group)),
				goerr.V("code", status.Code(err).String()))
		}

		for _, doc := range group {
			ids = append(ids, doc.ID)
		}
	}

	return ids, nil
}

func (r *recordRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	iter := r.records().Where("URL", "==", url).Limit(1).Documents(ctx)
	defer iter.Stop()

	_, err := iter.Next()
	if err == iterator.Done {
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to query record by url",
			goerr.V(model.URLKey, url),
			goerr.V("code", status.Code(err).String()))
	}
	return true, nil
}

func (r *recordRepository) measure() firestore.DistanceMeasure {
	switch r.metric {
	case types.DistanceCosine:
		return firestore.DistanceMeasureCosine
	case types.DistanceDotProduct:
		return firestore.DistanceMeasureDotProduct
	default:
		return firestore.DistanceMeasureEuclidean
	}
}

// normalizeDistance converts the value Firestore writes into the distance field into a
// smaller-is-closer distance. Dot product results are similarities.
func (r *recordRepository) normalizeDistance(v float64) float64 {
	if r.metric == types.DistanceDotProduct {
		return 1 - v
	}
	return v
}

func (r *recordRepository) FindNearest(ctx context.Context, vector []float32, limit int, filter model.SearchFilter) ([]*model.ScoredRecord, error) {
	q := r.records().Query
	if filter.PublishedFrom != "" {
		q = q.Where("PublishedAt", ">=", filter.PublishedFrom)
	}
	if filter.PublishedTo != "" {
		q = q.Where("PublishedAt", "<=", filter.PublishedTo)
	}

	vq := q.FindNearest("Embedding", firestore.Vector32(vector), limit, r.measure(), &firestore.FindNearestOptions{
		DistanceResultField: distanceField,
	})

	iter := vq.Documents(ctx)
	defer iter.Stop()

	results := make([]*model.ScoredRecord, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to run vector search",
				goerr.V("limit", limit),
				goerr.V("code", status.Code(err).String()))
		}

		var d recordDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal record", goerr.V(model.RecordIDKey, doc.Ref.ID))
		}

		raw, ok := doc.Data()[distanceField].(float64)
		if !ok {
			return nil, goerr.New("vector search result has no distance", goerr.V(model.RecordIDKey, doc.Ref.ID))
		}

		results = append(results, &model.ScoredRecord{
			Record:   fromRecordDoc(&d),
			Distance: r.normalizeDistance(raw),
		})
	}

	return results, nil
}

func (r *recordRepository) SampleEmbedding(ctx context.Context) ([]float32, error) {
	iter := r.records().Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to sample record", goerr.V("code", status.Code(err).String()))
	}

	var d recordDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal record", goerr.V(model.RecordIDKey, doc.Ref.ID))
	}
	return []float32(d.Embedding), nil
}

func (r *recordRepository) DeletePublishedBefore(ctx context.Context, cutoff string) (int, error) {
	const batchSize = 500
	totalDeleted := 0

	for {
		iter := r.records().
			Where("PublishedAt", "<", cutoff).
			Limit(batchSize).
			Documents(ctx)
		bulkWriter := r.client.BulkWriter(ctx)
		count := 0

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				bulkWriter.End()
				return totalDeleted, goerr.Wrap(err, "failed to iterate records for deletion")
			}

			if _, err := bulkWriter.Delete(doc.Ref); err != nil {
				iter.Stop()
				bulkWriter.End()
				return totalDeleted, goerr.Wrap(err, "failed to delete record", goerr.V(model.RecordIDKey, doc.Ref.ID))
			}
			count++
		}
		iter.Stop()
		bulkWriter.End()

		totalDeleted += count
		if count < batchSize {
			break
		}
	}

	return totalDeleted, nil
}

func (r *recordRepository) Count(ctx context.Context) (int, error) {
	result, err := r.records().NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count records", goerr.V("code", status.Code(err).String()))
	}

	v, ok := result["all"].(*firestorepb.Value)
	if !ok {
		return 0, goerr.New("unexpected count aggregation result")
	}
	return int(v.GetIntegerValue()), nil
}
