package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/service/cache"
	"github.com/stocklens/newsrag/pkg/utils/errutil"
	"github.com/stocklens/newsrag/pkg/utils/logging"
)

// Search runs retrieval and synthesis for q. Cached responses are returned when a cache is
// configured; cache failures only cost latency.
func (uc *SearchUseCase) Search(ctx context.Context, q model.Query) (*model.SearchResult, error) {
	started := time.Now()

	q, err := q.Normalize()
	if err != nil {
		return nil, err
	}

	key := cache.Key(q)
	if cached := uc.lookup(ctx, key); cached != nil {
		cached.Elapsed = time.Since(started)
		cached.Cached = true
		return cached, nil
	}

	retrieval, err := uc.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}

	report := uc.synth.Synthesize(ctx, retrieval.Results, retrieval.Query.Portfolio)

	result := &model.SearchResult{
		Query:        retrieval.Query,
		Results:      retrieval.Results,
		Report:       report,
		TotalMatches: retrieval.TotalMatches,
		Elapsed:      time.Since(started),
	}

	logging.From(ctx).Info("search completed",
		"query", q.Text,
		"top_k", q.TopK,
		"returned", len(result.Results),
		"total_matches", result.TotalMatches,
		"sentiment", report.OverallSentiment,
		"degraded", report.Degraded,
		"elapsed", result.Elapsed,
	)

	if !report.Degraded {
		uc.remember(ctx, key, result)
	}
	return result, nil
}

func (uc *SearchUseCase) lookup(ctx context.Context, key string) *model.SearchResult {
	if uc.cache == nil {
		return nil
	}

	raw, ok, err := uc.cache.Get(ctx, key)
	if err != nil {
		errutil.Warn(ctx, err, "response cache lookup failed")
		return nil
	}
	if !ok {
		return nil
	}

	var result model.SearchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		errutil.Warn(ctx, err, "cached response is unreadable")
		return nil
	}
	return &result
}

func (uc *SearchUseCase) remember(ctx context.Context, key string, result *model.SearchResult) {
	if uc.cache == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		errutil.Warn(ctx, err, "failed to encode response for cache")
		return
	}
	if err := uc.cache.Set(ctx, key, raw, uc.cacheTTL); err != nil {
		errutil.Warn(ctx, err, "response cache store failed")
	}
}
