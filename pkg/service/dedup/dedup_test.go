package dedup_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/repository/memory"
	"github.com/stocklens/newsrag/pkg/service/dedup"
)

type mockChecker struct {
	existsFn func(ctx context.Context, url string) (bool, error)
}

func (m *mockChecker) ExistsByURL(ctx context.Context, url string) (bool, error) {
	return m.existsFn(ctx, url)
}

func article(url, title, publishedAt string) *model.Article {
	return &model.Article{Title: title, Body: "본문", URL: url, PublishedAt: publishedAt}
}

func TestDeduplicator_URLWithinRun(t *testing.T) {
	ctx := context.Background()
	d := dedup.New(memory.New().Record())

	gt.Bool(t, d.Admit(ctx, article("https://n.example.com/1", "코스피 상승", "2025-12-22 09:00"))).True()
	gt.Bool(t, d.Admit(ctx, article("https://n.example.com/1", "다른 제목", "2025-12-22 09:05"))).False()
	gt.Bool(t, d.Admit(ctx, article(" https://n.example.com/1 ", "다른 제목", "2025-12-22 09:05"))).False()
}

func TestDeduplicator_SameTitleDifferentURLIsAdmitted(t *testing.T) {
	ctx := context.Background()
	d := dedup.New(memory.New().Record())

	gt.Bool(t, d.Admit(ctx, article("https://a.example.com/1", "코스피 상승 마감", "2025-12-22 09:00"))).True()
	gt.Bool(t, d.Admit(ctx, article("https://b.example.com/9", "코스피  상승 마감", "2025-12-22 09:10"))).True()
}

func TestDeduplicator_URLInStore(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	_, err := repo.Record().Insert(ctx, []*model.Record{{
		Embedding: []float32{1}, URL: "https://n.example.com/stored", PublishedAt: "2025-12-21 10:00",
	}})
	gt.NoError(t, err).Required()

	d := dedup.New(repo.Record())
	gt.Bool(t, d.Admit(ctx, article("https://n.example.com/stored", "저장된 기사", "2025-12-21 10:00"))).False()
	gt.Bool(t, d.Admit(ctx, article("https://n.example.com/new", "새 기사", "2025-12-22 10:00"))).True()
}

func TestDeduplicator_TitleFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("missing url uses normalized title within window", func(t *testing.T) {
		d := dedup.New(memory.New().Record(), dedup.WithTitleWindow(24*time.Hour))

		gt.Bool(t, d.Admit(ctx, article("", "KOSPI  Record High", "2025-12-22 09:00"))).True()
		gt.Bool(t, d.Admit(ctx, article("", "kospi record high", "2025-12-22 18:00"))).False()
		gt.Bool(t, d.Admit(ctx, article("", "kospi record high", "2025-12-25 09:00"))).True()
	})

	t.Run("store failure uses title", func(t *testing.T) {
		checker := &mockChecker{existsFn: func(ctx context.Context, url string) (bool, error) {
			return false, errors.New("connection refused")
		}}
		d := dedup.New(checker)

		gt.Bool(t, d.Admit(ctx, article("https://a.example.com/1", "환율 급등", "2025-12-22 09:00"))).True()
		gt.Bool(t, d.Admit(ctx, article("https://b.example.com/2", "환율  급등", "2025-12-22 09:30"))).False()
	})
}

func TestDeduplicator_ForgetAndReset(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 12, 22, 12, 0, 0, 0, time.UTC)
	d := dedup.New(memory.New().Record(), dedup.WithClock(func() time.Time { return now }))

	a := article("https://n.example.com/1", "코스닥 약세", "2025-12-22 09:00")
	gt.Bool(t, d.Admit(ctx, a)).True()

	d.Forget(a)
	gt.Bool(t, d.Admit(ctx, a)).True()

	d.Reset()
	gt.Bool(t, d.Admit(ctx, a)).True()
}

func TestDeduplicator_ForgetKeepsOtherOwnersTitle(t *testing.T) {
	ctx := context.Background()
	d := dedup.New(memory.New().Record())

	stored := article("", "삼성전자 목표가 상향", "2025-12-22 09:00")
	failed := article("https://b.example.com/2", "삼성전자  목표가 상향", "2025-12-22 09:10")
	gt.Bool(t, d.Admit(ctx, stored)).True()
	gt.Bool(t, d.Admit(ctx, failed)).True()

	// failed's chunks were not stored; stored's title must still block url-less copies
	d.Forget(failed)
	gt.Bool(t, d.Admit(ctx, article("", "삼성전자 목표가 상향", "2025-12-22 09:20"))).False()

	d.Forget(stored)
	gt.Bool(t, d.Admit(ctx, article("", "삼성전자 목표가 상향", "2025-12-22 09:30"))).True()
}

func TestDeduplicator_ResetWindowUsesKST(t *testing.T) {
	ctx := context.Background()
	// 21:00 KST on 2025-12-22
	now := time.Date(2025, 12, 22, 12, 0, 0, 0, time.UTC)
	d := dedup.New(memory.New().Record(),
		dedup.WithTitleWindow(24*time.Hour),
		dedup.WithClock(func() time.Time { return now }),
	)

	// published 24.5 hours before now
	gt.Bool(t, d.Admit(ctx, article("", "원달러 환율 하락", "2025-12-21 20:30"))).True()
	d.Reset()

	gt.Bool(t, d.Admit(ctx, article("", "원달러 환율 하락", "2025-12-21 21:00"))).True()
}
