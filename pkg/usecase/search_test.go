package usecase_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/domain/types"
	"github.com/stocklens/newsrag/pkg/service/cache"
	"github.com/stocklens/newsrag/pkg/service/insight"
	"github.com/stocklens/newsrag/pkg/service/vectorstore"
	"github.com/stocklens/newsrag/pkg/usecase"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func queryVector(env *testEnv, text string) {
	env.model.vectors[text] = []float64{1, 0}
}

func TestSearch_SamsungScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, types.DistanceCosine)
	queryVector(env, "삼성전자")

	// cosine relevance is (1+cos)/2, so these map to 0.92, 0.85 and 0.78
	env.seed(t,
		newsRecord(unit(0.70), "삼성전자 신규 투자", "삼성전자가 신규 라인 투자를 발표했다. 성장 기대.", "2024-05-01 10:00", "https://news.example.com/b"),
		newsRecord(unit(0.84), "삼성전자 반도체 실적", "삼성전자 주가가 급등했다. 수요 증가.", "2024-05-02 09:00", "https://news.example.com/a"),
		newsRecord(unit(0.56), "환율 변동 우려", "원화 약세로 수출주 하락 우려.", "2024-04-30 15:30", "https://news.example.com/c"),
		newsRecord(unit(0), "무관한 기사", "날씨 소식.", "2024-05-02 11:00", "https://news.example.com/d"),
	)

	llm := &mockLLMClient{replies: []string{
		`{"sentiments":[{"index":1,"sentiment":"POSITIVE"},{"index":2,"sentiment":"POSITIVE"},{"index":3,"sentiment":"NEGATIVE"}]}`,
		`{"keyTopics":["반도체"],"riskFactors":["환율"],"opportunities":["설비 투자"],"recommendedStocks":[{"symbol":"005930","name":"삼성전자","reason":"실적","confidence":0.8}]}`,
	}}
	uc := usecase.NewSearchUseCase(env.embedder, env.store, insight.New(llm))

	result, err := uc.Search(ctx, model.Query{Text: "삼성전자", TopK: 3})
	gt.NoError(t, err).Required()

	gt.Array(t, result.Results).Length(3).Required()
	gt.Value(t, round2(result.Results[0].Relevance)).Equal(0.92)
	gt.Value(t, round2(result.Results[1].Relevance)).Equal(0.85)
	gt.Value(t, round2(result.Results[2].Relevance)).Equal(0.78)
	gt.String(t, result.Results[0].URL).Equal("https://news.example.com/a")

	gt.Value(t, result.Report.OverallSentiment).Equal(types.SentimentPositive)
	d := result.Report.Distribution
	gt.Bool(t, math.Abs(d.Positive+d.Negative+d.Neutral-1) < 1e-6).True()
	gt.String(t, result.SentimentOf(2)).Equal("NEGATIVE")
	gt.Number(t, result.TotalMatches).Equal(3)
}

func TestSearch_DateFilter(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, types.DistanceCosine)
	queryVector(env, "코스피")

	env.seed(t,
		newsRecord(unit(1), "전날", "코스피", "2025-12-21 23:59", "https://news.example.com/1"),
		newsRecord(unit(0.9), "당일 오전", "코스피", "2025-12-22 00:00", "https://news.example.com/2"),
		newsRecord(unit(0.5), "당일 오후", "코스피", "2025-12-22 15:30", "https://news.example.com/3"),
		newsRecord(unit(1), "다음날", "코스피", "2025-12-23 00:00", "https://news.example.com/4"),
	)

	uc := usecase.NewSearchUseCase(env.embedder, env.store, insight.New(nil))
	result, err := uc.Search(ctx, model.Query{
		Text:      "코스피",
		TopK:      10,
		DateRange: &model.DateRange{Start: "2025-12-22", End: "2025-12-22"},
	})
	gt.NoError(t, err).Required()

	gt.Array(t, result.Results).Length(2).Required()
	for _, r := range result.Results {
		gt.String(t, r.PublishedAt[:10]).Equal("2025-12-22")
	}
}

func TestSearch_EmptyStore(t *testing.T) {
	env := newTestEnv(t, types.DistanceEuclidean)
	llm := &mockLLMClient{}
	uc := usecase.NewSearchUseCase(env.embedder, env.store, insight.New(llm))

	result, err := uc.Search(context.Background(), model.Query{Text: "코스닥 전망"})
	gt.NoError(t, err).Required()

	gt.Array(t, result.Results).Length(0)
	gt.Value(t, result.Report.OverallSentiment).Equal(types.SentimentNeutral)
	gt.Array(t, result.Report.KeyTopics).Length(0)
	gt.Array(t, result.Report.RiskFactors).Length(0)
	gt.Array(t, result.Report.Opportunities).Length(0)
	gt.Array(t, result.Report.RecommendedInstruments).Length(0)
	gt.Number(t, llm.callCount()).Equal(0)
}

func TestSearch_TopKIsBounded(t *testing.T) {
	env := newTestEnv(t, types.DistanceCosine)
	queryVector(env, "증시")

	var records []*model.Record
	for i := range 30 {
		records = append(records, newsRecord(unit(0.99), fmt.Sprintf("증시 %d", i), "증시 동향",
			"2024-05-01 09:00", fmt.Sprintf("https://news.example.com/%d", i)))
	}
	env.seed(t, records...)

	uc := usecase.NewSearchUseCase(env.embedder, env.store, insight.New(nil))
	result, err := uc.Search(context.Background(), model.Query{Text: "증시", TopK: 37})
	gt.NoError(t, err).Required()

	gt.Number(t, len(result.Results)).Equal(model.MaxTopK)
	gt.Number(t, result.Query.TopK).Equal(model.MaxTopK)
}

func TestRetrieve_PortfolioBoost(t *testing.T) {
	env := newTestEnv(t, types.DistanceCosine)
	queryVector(env, "반도체 업황")

	env.seed(t,
		newsRecord(unit(0.6), "메모리 가격 반등", "D램 가격이 올랐다.", "2024-05-02 09:00", "https://news.example.com/1"),
		newsRecord(unit(0.5), "SK하이닉스 HBM 증설", "HBM 라인 증설.", "2024-05-01 09:00", "https://news.example.com/2"),
	)

	uc := usecase.NewSearchUseCase(env.embedder, env.store, nil)

	plain, err := uc.Retrieve(context.Background(), model.Query{Text: "반도체 업황", TopK: 1})
	gt.NoError(t, err).Required()
	gt.Array(t, plain.Results).Length(1).Required()
	gt.String(t, plain.Results[0].URL).Equal("https://news.example.com/1")

	boosted, err := uc.Retrieve(context.Background(), model.Query{
		Text: "반도체 업황",
		TopK: 1,
		Portfolio: &model.PortfolioContext{Holdings: []model.Holding{
			{Symbol: "000660", Name: "sk하이닉스", Weight: 0.3},
		}},
	})
	gt.NoError(t, err).Required()
	gt.Array(t, boosted.Results).Length(1).Required()
	gt.String(t, boosted.Results[0].URL).Equal("https://news.example.com/2")
	gt.Value(t, round2(boosted.Results[0].Relevance)).Equal(0.9)
}

func TestPortfolioBoost_Cap(t *testing.T) {
	results := []*model.RankedResult{
		{RecordID: "a", Title: "삼성전자 호실적", Relevance: 0.95},
		{RecordID: "b", Title: "LG에너지솔루션", Text: "삼성전자와 경쟁", Relevance: 0.7},
		{RecordID: "c", Title: "환율", Relevance: 0.9},
	}
	portfolio := &model.PortfolioContext{Holdings: []model.Holding{
		{Symbol: "005930", Name: "삼성전자"},
		{Symbol: "373220", Name: "LG에너지솔루션"},
	}}

	n := usecase.DefaultPortfolioBoost.Apply(results, portfolio)
	gt.Number(t, n).Equal(2)
	gt.Value(t, results[0].Relevance).Equal(1.0)
	gt.Value(t, round2(results[1].Relevance)).Equal(0.84)
	gt.Value(t, results[2].Relevance).Equal(0.9)
}

func TestRetrieve_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t, types.DistanceEuclidean)
		uc := usecase.NewSearchUseCase(env.embedder, env.store, nil)

		_, err := uc.Retrieve(ctx, model.Query{Text: "  "})
		gt.Error(t, err).Is(model.ErrValidation)
		gt.String(t, model.ValidationField(err)).Equal("query")
	})

	t.Run("timeout", func(t *testing.T) {
		env := newTestEnv(t, types.DistanceEuclidean)
		env.model.block = true
		uc := usecase.NewSearchUseCase(env.embedder, env.store, nil,
			usecase.WithQueryTimeout(20*time.Millisecond))

		_, err := uc.Retrieve(ctx, model.Query{Text: "코스피"})
		gt.Error(t, err).Is(model.ErrQueryTimeout)
	})

	t.Run("embedding unavailable", func(t *testing.T) {
		env := newTestEnv(t, types.DistanceEuclidean)
		env.model.setFailOn("코스피")
		uc := usecase.NewSearchUseCase(env.embedder, env.store, nil)

		_, err := uc.Retrieve(ctx, model.Query{Text: "코스피"})
		gt.Error(t, err).Is(model.ErrEmbeddingUnavailable)
	})

	t.Run("store unavailable", func(t *testing.T) {
		env := newTestEnv(t, types.DistanceEuclidean)
		uc := usecase.NewSearchUseCase(env.embedder, unavailableStore{env.store}, nil)

		_, err := uc.Retrieve(ctx, model.Query{Text: "코스피"})
		gt.Error(t, err).Is(model.ErrStoreUnavailable)
	})
}

// unavailableStore fails every search as an unreachable backend would
type unavailableStore struct {
	*vectorstore.Store
}

func (unavailableStore) Search(ctx context.Context, vector []float32, topK int, filter model.SearchFilter, minRelevance float64) ([]*model.RankedResult, error) {
	return nil, goerr.Wrap(model.ErrStoreUnavailable, "vector search failed")
}

func TestSearch_Cache(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, types.DistanceCosine)
	queryVector(env, "코스닥")
	env.seed(t, newsRecord(unit(0.9), "코스닥 상승", "바이오 강세로 코스닥 상승.", "2024-05-01 09:00", "https://news.example.com/1"))

	narrative := `{"keyTopics":["바이오"],"riskFactors":[],"opportunities":[],"recommendedStocks":[]}`
	llm := &mockLLMClient{replies: []string{
		`{"sentiments":[{"index":1,"sentiment":"POSITIVE"}]}`, narrative,
	}}
	uc := usecase.NewSearchUseCase(env.embedder, env.store, insight.New(llm),
		usecase.WithCache(cache.NewMemory(), time.Minute))

	first, err := uc.Search(ctx, model.Query{Text: "코스닥"})
	gt.NoError(t, err).Required()
	gt.Bool(t, first.Cached).False()

	second, err := uc.Search(ctx, model.Query{Text: " 코스닥 "})
	gt.NoError(t, err).Required()
	gt.Bool(t, second.Cached).True()
	gt.Array(t, second.Results).Length(1)
	gt.Value(t, second.Report.KeyTopics).Equal([]string{"바이오"})
	gt.Number(t, llm.callCount()).Equal(2)
}
