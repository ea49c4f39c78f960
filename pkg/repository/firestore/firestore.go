package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/interfaces"
	"github.com/stocklens/newsrag/pkg/domain/types"
)

// DefaultCollection is the collection that stores news records
const DefaultCollection = "news_records"

type Firestore struct {
	client *firestore.Client
	record *recordRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollection overrides the record collection name
func WithCollection(name string) Option {
	return func(f *Firestore) {
		f.record.collection = name
	}
}

// WithMetric sets the distance measure used by FindNearest. Euclidean is the default.
func WithMetric(metric types.DistanceMetric) Option {
	return func(f *Firestore) {
		f.record.metric = metric
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client: client,
		record: newRecordRepository(client),
	}
	for _, opt := range opts {
		opt(f)
	}

	if !f.record.metric.IsValid() {
		_ = client.Close()
		return nil, goerr.New("invalid distance metric", goerr.V("metric", f.record.metric))
	}

	return f, nil
}

func (f *Firestore) Record() interfaces.RecordRepository {
	return f.record
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
