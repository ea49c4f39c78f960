package cache_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/stocklens/newsrag/pkg/domain/interfaces"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/service/cache"
)

func runCacheTest(t *testing.T, c interfaces.ResponseCache) {
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		v, ok, err := c.Get(ctx, uuid.NewString())
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).False()
		gt.Number(t, len(v)).Equal(0)
	})

	t.Run("hit", func(t *testing.T) {
		key := uuid.NewString()
		gt.NoError(t, c.Set(ctx, key, []byte(`{"results":[]}`), time.Minute)).Required()

		v, ok, err := c.Get(ctx, key)
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).True()
		gt.String(t, string(v)).Equal(`{"results":[]}`)
	})

	t.Run("zero ttl is not stored", func(t *testing.T) {
		key := uuid.NewString()
		gt.NoError(t, c.Set(ctx, key, []byte("x"), 0)).Required()

		_, ok, err := c.Get(ctx, key)
		gt.NoError(t, err).Required()
		gt.Bool(t, ok).False()
	})
}

func TestMemory(t *testing.T) {
	runCacheTest(t, cache.NewMemory())

	t.Run("entry expires", func(t *testing.T) {
		now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
		c := cache.NewMemoryWithClock(func() time.Time { return now })
		ctx := context.Background()

		gt.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute)).Required()
		now = now.Add(59 * time.Second)
		_, ok, _ := c.Get(ctx, "k")
		gt.Bool(t, ok).True()

		now = now.Add(time.Second)
		_, ok, _ = c.Get(ctx, "k")
		gt.Bool(t, ok).False()
	})
}

func TestMemory_SweepReleasesExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	c := cache.NewMemoryWithClock(func() time.Time { return now })

	for i := range 10000 {
		gt.NoError(t, c.Set(ctx, fmt.Sprintf("query-%d", i), []byte("{}"), time.Minute)).Required()
	}
	gt.Number(t, c.Len()).Equal(10000)

	// within the sweep interval nothing is scanned
	now = now.Add(30 * time.Second)
	gt.NoError(t, c.Set(ctx, "warm", []byte("{}"), 2*time.Hour)).Required()
	gt.Number(t, c.Len()).Equal(10001)

	now = now.Add(time.Hour)
	gt.NoError(t, c.Set(ctx, "fresh", []byte("{}"), time.Minute)).Required()
	gt.Number(t, c.Len()).Equal(2)

	_, ok, err := c.Get(ctx, "fresh")
	gt.NoError(t, err).Required()
	gt.Bool(t, ok).True()
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	c, err := cache.NewRedis(context.Background(), addr)
	gt.NoError(t, err).Required()
	defer c.Close()

	runCacheTest(t, c)
}

func TestKey(t *testing.T) {
	minRel := 0.7
	base := model.Query{
		Text:         "삼성전자  반도체",
		TopK:         5,
		MinRelevance: &minRel,
		Portfolio: &model.PortfolioContext{Holdings: []model.Holding{
			{Symbol: "005930", Name: "삼성전자", Weight: 0.4},
			{Symbol: "000660", Name: "SK하이닉스", Weight: 0.2},
		}},
	}

	t.Run("holding order does not matter", func(t *testing.T) {
		swapped := base
		swapped.Portfolio = &model.PortfolioContext{Holdings: []model.Holding{
			base.Portfolio.Holdings[1], base.Portfolio.Holdings[0],
		}}
		gt.String(t, cache.Key(swapped)).Equal(cache.Key(base))
	})

	t.Run("whitespace is collapsed", func(t *testing.T) {
		q := base
		q.Text = "삼성전자 반도체"
		gt.String(t, cache.Key(q)).Equal(cache.Key(base))
	})

	t.Run("top k changes the key", func(t *testing.T) {
		q := base
		q.TopK = 10
		gt.String(t, cache.Key(q)).NotEqual(cache.Key(base))
	})

	t.Run("date range changes the key", func(t *testing.T) {
		q := base
		q.DateRange = &model.DateRange{Start: "2024-05-01"}
		gt.String(t, cache.Key(q)).NotEqual(cache.Key(base))
	})
}
