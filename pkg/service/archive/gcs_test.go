package archive_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/service/archive"
)

func TestObjectName(t *testing.T) {
	gt.String(t, archive.ObjectName("raw", "run-1", "코스피")).Equal("raw/run-1/코스피.json")
	gt.String(t, archive.ObjectName("", "run-1", "증시")).Equal("run-1/증시.json")
}

func TestGCS_Put(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET not set")
	}

	ctx := context.Background()
	a, err := archive.NewGCS(ctx, bucket, "test")
	gt.NoError(t, err).Required()
	defer a.Close()

	articles := []*model.Article{
		{SourceID: "naver", Title: "코스피 상승", Body: "코스피 상승\n외국인 매수", PublishedAt: "2024-05-01 09:00", URL: "https://example.com/1"},
	}
	gt.NoError(t, a.Put(ctx, uuid.NewString(), "코스피", articles)).Required()
}

func TestNewGCS_RequiresBucket(t *testing.T) {
	_, err := archive.NewGCS(context.Background(), "", "raw")
	gt.Value(t, err).NotNil()
}
