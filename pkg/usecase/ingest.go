package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/interfaces"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/service/chunker"
	"github.com/stocklens/newsrag/pkg/service/dedup"
	"github.com/stocklens/newsrag/pkg/service/preprocess"
	"github.com/stocklens/newsrag/pkg/utils/errutil"
	"github.com/stocklens/newsrag/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageSize          = 100
	DefaultPagesPerKeyword   = 1
	DefaultIngestBatchSize   = 32
	DefaultIngestConcurrency = 4
	DefaultRetentionDays     = 30

	// maxSourceStart is the last page cursor the news source accepts
	maxSourceStart = 1000
)

// DefaultKeywords are searched when no keyword list is configured
var DefaultKeywords = []string{"증시", "주식시장", "코스피", "코스닥"}

// IngestUseCase is the ingestion pipeline: fetch, dedup, chunk, embed and store
type IngestUseCase struct {
	source   interfaces.NewsSource
	archive  interfaces.ArticleArchive
	embedder interfaces.Embedder
	store    interfaces.VectorStore
	chunker  *chunker.Chunker
	dedup    *dedup.Deduplicator

	keywords    []string
	pageSize    int
	pages       int
	batchSize   int
	concurrency int
	now         func() time.Time

	// serializes runs so the in-memory seen-set is not shared by two runs
	runMu sync.Mutex
}

type IngestOption func(*IngestUseCase)

func WithKeywords(keywords ...string) IngestOption {
	return func(uc *IngestUseCase) {
		if len(keywords) > 0 {
			uc.keywords = keywords
		}
	}
}

func WithPageSize(size, pages int) IngestOption {
	return func(uc *IngestUseCase) {
		if size > 0 {
			uc.pageSize = size
		}
		if pages > 0 {
			uc.pages = pages
		}
	}
}

// WithBatching sets how many chunks go into one embedding batch and how many batches are
// embedded at once
func WithBatching(batchSize, concurrency int) IngestOption {
	return func(uc *IngestUseCase) {
		if batchSize > 0 {
			uc.batchSize = batchSize
		}
		if concurrency > 0 {
			uc.concurrency = concurrency
		}
	}
}

func WithChunker(c *chunker.Chunker) IngestOption {
	return func(uc *IngestUseCase) {
		uc.chunker = c
	}
}

func WithDeduplicator(d *dedup.Deduplicator) IngestOption {
	return func(uc *IngestUseCase) {
		uc.dedup = d
	}
}

func WithArchive(a interfaces.ArticleArchive) IngestOption {
	return func(uc *IngestUseCase) {
		uc.archive = a
	}
}

func WithIngestClock(now func() time.Time) IngestOption {
	return func(uc *IngestUseCase) {
		uc.now = now
	}
}

func NewIngestUseCase(source interfaces.NewsSource, embedder interfaces.Embedder, store interfaces.VectorStore, opts ...IngestOption) *IngestUseCase {
	uc := &IngestUseCase{
		source:      source,
		embedder:    embedder,
		store:       store,
		keywords:    DefaultKeywords,
		pageSize:    DefaultPageSize,
		pages:       DefaultPagesPerKeyword,
		batchSize:   DefaultIngestBatchSize,
		concurrency: DefaultIngestConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}

	if uc.chunker == nil {
		uc.chunker = chunker.MustNew()
	}
	if uc.dedup == nil {
		uc.dedup = dedup.New(store, dedup.WithClock(uc.now))
	}
	return uc
}

// pendingArticle is an admitted article with its chunks
type pendingArticle struct {
	article *model.Article
	chunks  []model.Chunk
}

// chunkBatch holds whole articles only, so a failed batch never leaves an article half stored
type chunkBatch struct {
	articles []*pendingArticle
	texts    []string
	vectors  [][]float32
	err      error
}

// RunIngestion fetches every configured keyword and stores new articles. The run is best
// effort: fetch and batch failures are counted in the report and skipped. Running it again over
// the same articles stores nothing new.
func (uc *IngestUseCase) RunIngestion(ctx context.Context) (*model.IngestReport, error) {
	if uc.source == nil {
		return nil, goerr.New("news source is not configured")
	}

	uc.runMu.Lock()
	defer uc.runMu.Unlock()

	report := model.NewIngestReport(uc.now())
	ctx = logging.With(ctx, logging.From(ctx).With("run_id", report.RunID))
	logger := logging.From(ctx)
	logger.Info("ingestion started", "keywords", uc.keywords)

	uc.dedup.Reset()

	for _, keyword := range uc.keywords {
		for page := range uc.pages {
			if ctx.Err() != nil {
				return uc.finish(ctx, report), goerr.Wrap(ctx.Err(), "ingestion interrupted")
			}

			start := page*uc.pageSize + 1
			if start > maxSourceStart {
				break
			}

			articles, err := uc.source.Fetch(ctx, keyword, start, uc.pageSize)
			if err != nil {
				report.FetchErrors++
				errutil.Warn(ctx, goerr.Wrap(err, "failed to fetch news",
					goerr.V("keyword", keyword),
					goerr.V("start", start)), "skipping keyword page")
				break
			}
			report.Fetched += len(articles)
			uc.archivePage(ctx, report.RunID, keyword, articles)

			uc.ingestPage(ctx, report, articles)

			if len(articles) < uc.pageSize {
				break
			}
		}
	}

	return uc.finish(ctx, report), nil
}

func (uc *IngestUseCase) finish(ctx context.Context, report *model.IngestReport) *model.IngestReport {
	report.FinishedAt = uc.now()
	logging.From(ctx).Info("ingestion finished", "report", report)
	return report
}

func (uc *IngestUseCase) archivePage(ctx context.Context, runID, keyword string, articles []*model.Article) {
	if uc.archive == nil || len(articles) == 0 {
		return
	}
	if err := uc.archive.Put(ctx, runID, keyword, articles); err != nil {
		errutil.Warn(ctx, err, "failed to archive raw articles")
	}
}

// ingestPage runs dedup and chunking over one fetched page, embeds the batches in parallel and
// writes them in order
func (uc *IngestUseCase) ingestPage(ctx context.Context, report *model.IngestReport, articles []*model.Article) {
	var pending []*pendingArticle
	for _, article := range articles {
		if !uc.dedup.Admit(ctx, article) {
			report.Duplicates++
			continue
		}
		report.Admitted++

		cleaned := *article
		cleaned.Body = preprocess.Clean(article.Body)
		chunks := uc.chunker.SplitArticle(&cleaned)
		if len(chunks) == 0 {
			continue
		}
		report.Chunks += len(chunks)
		pending = append(pending, &pendingArticle{article: article, chunks: chunks})
	}

	batches := uc.makeBatches(pending)
	if len(batches) == 0 {
		return
	}

	// Each slot records its own error; one failed batch must not cancel the others.
	var eg errgroup.Group
	eg.SetLimit(uc.concurrency)
	for _, b := range batches {
		eg.Go(func() error {
			b.vectors, b.err = uc.embedder.EmbedBatch(ctx, b.texts)
			return nil
		})
	}
	_ = eg.Wait()

	for i, b := range batches {
		if b.err == nil {
			b.err = uc.storeBatch(ctx, b, report)
		}
		if b.err != nil {
			report.FailedBatches++
			report.DroppedChunks += len(b.texts)
			for _, p := range b.articles {
				uc.dedup.Forget(p.article)
			}
			_ = errutil.Handle(ctx, goerr.Wrap(b.err, "failed to ingest batch",
				goerr.V("batch", i),
				goerr.V("chunks", len(b.texts)),
				goerr.V("articles", len(b.articles))), "skipping batch")
		}
	}
}

func (uc *IngestUseCase) makeBatches(pending []*pendingArticle) []*chunkBatch {
	var batches []*chunkBatch
	current := &chunkBatch{}
	for _, p := range pending {
		if len(current.texts) > 0 && len(current.texts)+len(p.chunks) > uc.batchSize {
			batches = append(batches, current)
			current = &chunkBatch{}
		}
		current.articles = append(current.articles, p)
		for _, c := range p.chunks {
			current.texts = append(current.texts, c.Text)
		}
	}
	if len(current.texts) > 0 {
		batches = append(batches, current)
	}
	return batches
}

func (uc *IngestUseCase) storeBatch(ctx context.Context, b *chunkBatch, report *model.IngestReport) error {
	if len(b.vectors) != len(b.texts) {
		return goerr.New("embedding count mismatch",
			goerr.V("texts", len(b.texts)),
			goerr.V("vectors", len(b.vectors)))
	}

	records := make([]*model.Record, 0, len(b.texts))
	i := 0
	for _, p := range b.articles {
		for _, c := range p.chunks {
			records = append(records, model.NewRecord(c, b.vectors[i]))
			i++
		}
	}

	ids, err := uc.store.Upsert(ctx, records)
	if err != nil {
		return err
	}
	report.Stored += len(ids)
	return nil
}

// PurgeExpired deletes records published more than days ago. days <= 0 uses the default.
func (uc *IngestUseCase) PurgeExpired(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	cutoff := model.FormatPublishedAt(uc.now().AddDate(0, 0, -days))

	deleted, err := uc.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to purge expired records", goerr.V("cutoff", cutoff))
	}

	logging.From(ctx).Info("expired records purged", "cutoff", cutoff, "deleted", deleted)
	return deleted, nil
}
