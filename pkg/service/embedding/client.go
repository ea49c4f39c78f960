package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/interfaces"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize   = 32
	DefaultMaxAttempts = 3
	DefaultConcurrency = 4
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
)

// ErrMalformedResponse is returned when the model answers with the wrong number or shape of
// vectors. It is not retried.
var ErrMalformedResponse = goerr.New("malformed embedding response")

// Client batches texts into calls to an embedding model. It is safe for concurrent use.
type Client struct {
	model       interfaces.EmbeddingModel
	dimension   int
	batchSize   int
	maxAttempts int
	concurrency int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

type Option func(*Client)

func WithDimension(dimension int) Option {
	return func(c *Client) {
		c.dimension = dimension
	}
}

// WithBatchSize sets the maximum number of texts sent in one call
func WithBatchSize(size int) Option {
	return func(c *Client) {
		c.batchSize = size
	}
}

// WithMaxAttempts sets how many times one call is tried before giving up
func WithMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.maxAttempts = attempts
	}
}

// WithConcurrency bounds the number of calls in flight for one EmbedBatch
func WithConcurrency(n int) Option {
	return func(c *Client) {
		c.concurrency = n
	}
}

// WithBackoff sets the first retry delay and its cap. Delays double per attempt.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = base
		c.maxDelay = maxDelay
	}
}

func New(embeddingModel interfaces.EmbeddingModel, opts ...Option) (*Client, error) {
	if embeddingModel == nil {
		return nil, goerr.New("embedding model is required")
	}

	c := &Client{
		model:       embeddingModel,
		dimension:   model.EmbeddingDimension,
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		concurrency: DefaultConcurrency,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dimension <= 0 || c.batchSize <= 0 || c.maxAttempts <= 0 || c.concurrency <= 0 {
		return nil, goerr.New("invalid embedding client options",
			goerr.V("dimension", c.dimension),
			goerr.V("batch_size", c.batchSize),
			goerr.V("max_attempts", c.maxAttempts),
			goerr.V("concurrency", c.concurrency))
	}

	return c, nil
}

// Dimension returns the vector length every call is checked against
func (c *Client) Dimension() int {
	return c.dimension
}

// Embed returns the vector of a single text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per text in input order. Inputs larger than the batch size
// are split into calls that run with bounded concurrency. If any call fails after all
// attempts the whole batch fails with model.ErrEmbeddingUnavailable and no vectors are
// returned.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.concurrency)

	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		eg.Go(func() error {
			vectors, err := c.callWithRetry(ctx, texts[start:end])
			if err != nil {
				return goerr.Wrap(err, "failed to embed batch",
					goerr.V("offset", start),
					goerr.V("size", end-start))
			}
			copy(out[start:end], vectors)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) callWithRetry(ctx context.Context, batch []string) ([][]float32, error) {
	var lastErr error
	delay := c.baseDelay

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		vectors, err := c.call(ctx, batch)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if errors.Is(err, ErrMalformedResponse) || ctx.Err() != nil {
			break
		}
		if attempt == c.maxAttempts {
			break
		}

		logging.From(ctx).Warn("embedding call failed, retrying",
			"attempt", attempt,
			"max_attempts", c.maxAttempts,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, goerr.Wrap(errors.Join(model.ErrEmbeddingUnavailable, ctx.Err()), "embedding retry interrupted")
		case <-time.After(delay):
		}
		delay = min(delay*2, c.maxDelay)
	}

	return nil, goerr.Wrap(errors.Join(model.ErrEmbeddingUnavailable, lastErr), "embedding service failed",
		goerr.V("attempts", c.maxAttempts),
		goerr.V("size", len(batch)))
}

func (c *Client) call(ctx context.Context, batch []string) ([][]float32, error) {
	raw, err := c.model.GenerateEmbedding(ctx, c.dimension, batch)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate embedding")
	}

	if len(raw) != len(batch) {
		return nil, goerr.Wrap(ErrMalformedResponse, "vector count differs from input count",
			goerr.V("want", len(batch)),
			goerr.V("got", len(raw)))
	}

	vectors := make([][]float32, len(raw))
	for i, v := range raw {
		if len(v) != c.dimension {
			return nil, goerr.Wrap(ErrMalformedResponse, "vector dimension mismatch",
				goerr.V("index", i),
				goerr.V(model.DimensionKey, len(v)),
				goerr.V("want", c.dimension))
		}
		vec := make([]float32, len(v))
		for j, f := range v {
			vec[j] = float32(f)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
