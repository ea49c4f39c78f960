package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/interfaces"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/domain/types"
	"github.com/stocklens/newsrag/pkg/service/insight"
	"github.com/stocklens/newsrag/pkg/utils/logging"
)

const (
	DefaultQueryTimeout = 3 * time.Second
	DefaultCacheTTL     = 60 * time.Second
)

// SearchUseCase answers queries: retrieval followed by insight synthesis
type SearchUseCase struct {
	embedder interfaces.Embedder
	store    interfaces.VectorStore
	synth    *insight.Synthesizer
	cache    interfaces.ResponseCache
	cacheTTL time.Duration
	timeout  time.Duration
	boost    PortfolioBoost
}

type SearchOption func(*SearchUseCase)

// WithCache puts a response cache in front of retrieval
func WithCache(cache interfaces.ResponseCache, ttl time.Duration) SearchOption {
	return func(uc *SearchUseCase) {
		uc.cache = cache
		if ttl > 0 {
			uc.cacheTTL = ttl
		}
	}
}

// WithQueryTimeout bounds embedding, search and reranking of one query
func WithQueryTimeout(d time.Duration) SearchOption {
	return func(uc *SearchUseCase) {
		if d > 0 {
			uc.timeout = d
		}
	}
}

func WithPortfolioBoost(b PortfolioBoost) SearchOption {
	return func(uc *SearchUseCase) {
		uc.boost = b
	}
}

func NewSearchUseCase(embedder interfaces.Embedder, store interfaces.VectorStore, synth *insight.Synthesizer, opts ...SearchOption) *SearchUseCase {
	uc := &SearchUseCase{
		embedder: embedder,
		store:    store,
		synth:    synth,
		cacheTTL: DefaultCacheTTL,
		timeout:  DefaultQueryTimeout,
		boost:    DefaultPortfolioBoost,
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.synth == nil {
		uc.synth = insight.New(nil)
	}
	return uc
}

// Retrieval is the ranked output of one query
type Retrieval struct {
	Query        model.Query
	Results      []*model.RankedResult
	TotalMatches int
}

// retrieval tracks the stage of one query for logging
type retrieval struct {
	stage types.SearchStage
	start time.Time
	ctx   context.Context
}

func (r *retrieval) enter(stage types.SearchStage) {
	if r.stage.IsTerminal() {
		return
	}
	r.stage = stage
	logging.From(r.ctx).Debug("retrieval stage", "stage", stage, "elapsed", time.Since(r.start))
}

// fail moves to ERROR. A deadline hit in any step is reported as a query timeout.
func (r *retrieval) fail(err error) error {
	failed := r.stage
	r.stage = types.SearchStageError
	logging.From(r.ctx).Debug("retrieval stage", "stage", r.stage, "failed_at", failed)

	if errors.Is(r.ctx.Err(), context.DeadlineExceeded) {
		return goerr.Wrap(errors.Join(model.ErrQueryTimeout, err), "query exceeded its time budget",
			goerr.V("stage", failed.String()))
	}
	return goerr.Wrap(err, "retrieval failed", goerr.V("stage", failed.String()))
}

// Retrieve validates q, embeds it, searches the store, applies the portfolio boost and returns at
// most top_k results. It either succeeds completely or returns an error.
func (uc *SearchUseCase) Retrieve(ctx context.Context, q model.Query) (*Retrieval, error) {
	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	r := &retrieval{stage: types.SearchStageReceived, start: time.Now(), ctx: ctx}

	r.enter(types.SearchStageEmbeddingQuery)
	vector, err := uc.embedder.Embed(ctx, q.Text)
	if err != nil {
		return nil, r.fail(err)
	}

	r.enter(types.SearchStageSearching)
	filter := q.Filter()
	candidates, err := uc.store.Search(ctx, vector, candidatePool(q.TopK, q.Portfolio), filter, q.Relevance())
	if err != nil {
		return nil, r.fail(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, r.fail(err)
	}

	r.enter(types.SearchStageFiltering)
	results := make([]*model.RankedResult, 0, len(candidates))
	for _, c := range candidates {
		if c.Relevance < q.Relevance() || !filter.Match(c.PublishedAt) {
			continue
		}
		results = append(results, c)
	}
	total := len(results)

	if q.Portfolio.HasHoldings() {
		r.enter(types.SearchStageReranking)
		boosted := uc.boost.Apply(results, q.Portfolio)
		logging.From(ctx).Debug("portfolio boost applied", "boosted", boosted)
	}
	model.SortRanked(results)

	if len(results) > q.TopK {
		results = results[:q.TopK]
	}
	if err := ctx.Err(); err != nil {
		return nil, r.fail(err)
	}

	r.enter(types.SearchStageDone)
	return &Retrieval{Query: q, Results: results, TotalMatches: total}, nil
}
