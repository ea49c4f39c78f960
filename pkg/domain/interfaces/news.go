package interfaces

import (
	"context"

	"github.com/stocklens/newsrag/pkg/domain/model"
)

// NewsSource fetches raw articles for a keyword. start is the 1-based page cursor.
type NewsSource interface {
	Name() string
	Fetch(ctx context.Context, keyword string, start, size int) ([]*model.Article, error)
}

// ArticleArchive keeps a raw copy of fetched articles
type ArticleArchive interface {
	Put(ctx context.Context, runID, keyword string, articles []*model.Article) error
}
