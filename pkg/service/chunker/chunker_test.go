package chunker_test

import (
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/m-mizutani/gt"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/service/chunker"
)

const koreanNews = "코스피가 외국인 순매수에 힘입어 2% 넘게 상승했다. 삼성전자는 반도체 업황 개선 기대감에 4% 급등했다. " +
	"SK하이닉스도 동반 강세를 보였다.\n\n반면 코스닥은 개인 매도세에 약보합으로 마감했다. " +
	"전문가들은 연말 배당 시즌을 앞두고 변동성이 커질 수 있다고 우려했다."

func assertChunkInvariants(t *testing.T, text string, chunks []model.Chunk, size int) {
	t.Helper()
	n := utf8.RuneCountInString(text)
	prev := -1
	for i, c := range chunks {
		gt.Value(t, c.Index).Equal(i)
		gt.Bool(t, c.Offset > prev).True()
		gt.Bool(t, c.End <= n).True()
		gt.Bool(t, c.End-c.Offset <= size).True()
		gt.Value(t, c.Text).Equal(string([]rune(text)[c.Offset:c.End]))
		prev = c.Offset
	}
}

func TestSplit_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t \n"} {
		chunks, err := chunker.Split(text, 100, 10)
		gt.NoError(t, err).Required()
		gt.Array(t, chunks).Length(0)
	}
}

func TestSplit_ShortTextIsOneChunk(t *testing.T) {
	chunks, err := chunker.Split("삼성전자 주가 상승", 500, 50)
	gt.NoError(t, err).Required()
	gt.Array(t, chunks).Length(1).Required()
	gt.Value(t, chunks[0].Offset).Equal(0)
	gt.Value(t, chunks[0].Text).Equal("삼성전자 주가 상승")
}

func TestSplit_InvalidParams(t *testing.T) {
	_, err := chunker.Split("text", 10, 10)
	gt.Error(t, err).Is(chunker.ErrInvalidParams)

	_, err = chunker.Split("text", 10, -1)
	gt.Error(t, err).Is(chunker.ErrInvalidParams)

	_, err = chunker.New(chunker.WithChunkSize(50), chunker.WithOverlap(60))
	gt.Error(t, err).Is(chunker.ErrInvalidParams)
}

func TestSplit_PrefersNaturalBoundaries(t *testing.T) {
	chunks, err := chunker.Split(koreanNews, 80, 10)
	gt.NoError(t, err).Required()
	gt.Number(t, len(chunks)).GreaterOrEqual(2)
	assertChunkInvariants(t, koreanNews, chunks, 80)

	first := chunks[0].Text
	gt.Bool(t, strings.HasSuffix(first, "다. ") || strings.HasSuffix(first, "\n")).True()
}

func TestSplit_OverlapIsShared(t *testing.T) {
	text := strings.Repeat("가", 250)
	chunks, err := chunker.Split(text, 100, 20)
	gt.NoError(t, err).Required()
	assertChunkInvariants(t, text, chunks, 100)

	for i := 1; i < len(chunks); i++ {
		gt.Value(t, chunks[i].Offset).Equal(chunks[i-1].End - 20)
	}
	gt.Value(t, chunks[len(chunks)-1].End).Equal(250)
}

func TestSplit_Deterministic(t *testing.T) {
	a, err := chunker.Split(koreanNews, 60, 15)
	gt.NoError(t, err).Required()
	b, err := chunker.Split(koreanNews, 60, 15)
	gt.NoError(t, err).Required()
	gt.Value(t, a).Equal(b)
}

func TestSplit_RandomTextKeepsInvariants(t *testing.T) {
	alphabet := []rune("abc 가나다.\n,!?")
	rng := rand.New(rand.NewPCG(1, 2))

	for range 200 {
		length := rng.IntN(600)
		runes := make([]rune, length)
		for i := range runes {
			runes[i] = alphabet[rng.IntN(len(alphabet))]
		}
		text := string(runes)
		size := 1 + rng.IntN(120)
		overlap := rng.IntN(size)

		chunks, err := chunker.Split(text, size, overlap)
		gt.NoError(t, err).Required()
		assertChunkInvariants(t, text, chunks, size)
	}
}

func TestChunker_SplitArticleCarriesMetadata(t *testing.T) {
	c, err := chunker.New(chunker.WithChunkSize(60), chunker.WithOverlap(10))
	gt.NoError(t, err).Required()

	article := &model.Article{
		Title:       "코스피 상승 마감",
		Body:        koreanNews,
		PublishedAt: "2025-12-22 15:40",
		URL:         "https://news.example.com/1",
	}
	chunks := c.SplitArticle(article)
	gt.Number(t, len(chunks)).GreaterOrEqual(2)
	for _, ch := range chunks {
		gt.Value(t, ch.Title).Equal(article.Title)
		gt.Value(t, ch.PublishedAt).Equal(article.PublishedAt)
		gt.Value(t, ch.URL).Equal(article.URL)
	}
}

func TestMustNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := chunker.MustNew()
		chunks := c.SplitArticle(&model.Article{Title: "t", Body: koreanNews})
		gt.Number(t, len(chunks)).Equal(1)
	})

	t.Run("invalid options panic", func(t *testing.T) {
		defer func() {
			gt.Value(t, recover()).NotNil()
		}()
		chunker.MustNew(chunker.WithChunkSize(50), chunker.WithOverlap(60))
		t.Fatal("MustNew accepted overlap larger than size")
	})
}
