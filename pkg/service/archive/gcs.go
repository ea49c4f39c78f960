package archive

import (
	"context"
	"encoding/json"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/utils/logging"
)

// GCS writes each fetched page of raw articles to Cloud Storage as
// <prefix>/<runID>/<keyword>.json
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// Document is the archived JSON object
type Document struct {
	RunID      string           `json:"run_id"`
	Keyword    string           `json:"keyword"`
	ArchivedAt time.Time        `json:"archived_at"`
	Articles   []*model.Article `json:"articles"`
}

// NewGCS creates a Cloud Storage archive using application default credentials
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if bucket == "" {
		return nil, goerr.New("archive bucket is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

// ObjectName returns the object path for a run and keyword
func ObjectName(prefix, runID, keyword string) string {
	return path.Join(prefix, runID, keyword+".json")
}

func (a *GCS) Put(ctx context.Context, runID, keyword string, articles []*model.Article) error {
	name := ObjectName(a.prefix, runID, keyword)

	w := a.client.Bucket(a.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "application/json"

	doc := Document{
		RunID:      runID,
		Keyword:    keyword,
		ArchivedAt: time.Now().UTC(),
		Articles:   articles,
	}
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write archive object", goerr.V("object", name))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize archive object",
			goerr.V("bucket", a.bucket),
			goerr.V("object", name))
	}

	logging.From(ctx).Debug("archived articles", "object", name, "count", len(articles))
	return nil
}

func (a *GCS) Close() error {
	return a.client.Close()
}
