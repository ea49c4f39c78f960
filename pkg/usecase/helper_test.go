package usecase_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/domain/types"
	"github.com/stocklens/newsrag/pkg/repository/memory"
	"github.com/stocklens/newsrag/pkg/service/embedding"
	"github.com/stocklens/newsrag/pkg/service/vectorstore"
)

const testDimension = 2

// mockEmbeddingModel maps known texts to fixed vectors and hashes everything else
type mockEmbeddingModel struct {
	mu      sync.Mutex
	vectors map[string][]float64
	failOn  string
	block   bool
	calls   int
}

func (m *mockEmbeddingModel) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	m.mu.Lock()
	m.calls++
	block, failOn := m.block, m.failOn
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	out := make([][]float64, len(input))
	for i, s := range input {
		if failOn != "" && strings.Contains(s, failOn) {
			return nil, errors.New("embedding backend returned 503")
		}
		if v, ok := m.vectors[s]; ok {
			out[i] = v
			continue
		}
		out[i] = hashVector(s)
	}
	return out, nil
}

func (m *mockEmbeddingModel) setFailOn(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn = s
}

func hashVector(s string) []float64 {
	var sum float64
	for _, r := range s {
		sum += float64(r)
	}
	return []float64{math.Cos(sum), math.Sin(sum)}
}

// unit returns the unit vector whose cosine with (1, 0) is c
func unit(c float64) []float32 {
	return []float32{float32(c), float32(math.Sqrt(1 - c*c))}
}

type testEnv struct {
	model    *mockEmbeddingModel
	embedder *embedding.Client
	store    *vectorstore.Store
}

func newTestEnv(t *testing.T, metric types.DistanceMetric) *testEnv {
	t.Helper()
	m := &mockEmbeddingModel{vectors: map[string][]float64{}}

	embedder, err := embedding.New(m,
		embedding.WithDimension(testDimension),
		embedding.WithMaxAttempts(1),
		embedding.WithBackoff(time.Millisecond, time.Millisecond),
	)
	gt.NoError(t, err).Required()

	repo := memory.New(memory.WithMetric(metric))
	store, err := vectorstore.New(context.Background(), repo.Record(), testDimension)
	gt.NoError(t, err).Required()

	return &testEnv{model: m, embedder: embedder, store: store}
}

// seed stores one record per entry directly, bypassing ingestion
func (e *testEnv) seed(t *testing.T, records ...*model.Record) {
	t.Helper()
	_, err := e.store.Upsert(context.Background(), records)
	gt.NoError(t, err).Required()
}

func newsRecord(vec []float32, title, text, publishedAt, url string) *model.Record {
	return &model.Record{Embedding: vec, Title: title, Text: text, PublishedAt: publishedAt, URL: url}
}

type mockLLMSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.generateContentFn(ctx, input...)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.generateContentFn(ctx, input...)
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient answers calls in order from replies and counts them
type mockLLMClient struct {
	mu      sync.Mutex
	replies []string
	calls   int
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return &mockLLMSession{
		generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.calls++
			if len(c.replies) == 0 {
				return nil, errors.New("no scripted reply")
			}
			r := c.replies[0]
			c.replies = c.replies[1:]
			return &gollem.Response{Texts: []string{r}}, nil
		},
	}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func (c *mockLLMClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
