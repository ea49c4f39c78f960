package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/interfaces"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/service/embedding"
	"github.com/urfave/cli/v3"
)

// DefaultDimension is the embedding vector length stored with every record
const DefaultDimension = model.EmbeddingDimension

// Embedding holds flags for the embedding client
type Embedding struct {
	dimension int
	batchSize int
	attempts  int
	workers   int
}

func (e *Embedding) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Embedding vector dimension; must match the stored records",
			Value:       DefaultDimension,
			Category:    "Embedding",
			Sources:     cli.EnvVars("NEWSRAG_EMBEDDING_DIMENSION"),
			Destination: &e.dimension,
		},
		&cli.IntFlag{
			Name:        "embedding-batch-size",
			Usage:       "Maximum texts per embedding call",
			Value:       embedding.DefaultBatchSize,
			Category:    "Embedding",
			Sources:     cli.EnvVars("NEWSRAG_EMBEDDING_BATCH_SIZE"),
			Destination: &e.batchSize,
		},
		&cli.IntFlag{
			Name:        "embedding-attempts",
			Usage:       "Attempts per embedding call before giving up",
			Value:       embedding.DefaultMaxAttempts,
			Category:    "Embedding",
			Sources:     cli.EnvVars("NEWSRAG_EMBEDDING_ATTEMPTS"),
			Destination: &e.attempts,
		},
		&cli.IntFlag{
			Name:        "embedding-workers",
			Usage:       "Embedding calls in flight per batch",
			Value:       embedding.DefaultConcurrency,
			Category:    "Embedding",
			Sources:     cli.EnvVars("NEWSRAG_EMBEDDING_WORKERS"),
			Destination: &e.workers,
		},
	}
}

func (e Embedding) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("dimension", e.dimension),
		slog.Int("batch_size", e.batchSize),
		slog.Int("attempts", e.attempts),
		slog.Int("workers", e.workers),
	)
}

func (e *Embedding) Dimension() int {
	return e.dimension
}

// Configure builds the embedding client on top of model
func (e *Embedding) Configure(model interfaces.EmbeddingModel) (*embedding.Client, error) {
	if e.dimension <= 0 {
		return nil, goerr.Wrap(ErrInvalidConfig, "embedding dimension must be positive", goerr.V("dimension", e.dimension))
	}

	client, err := embedding.New(model,
		embedding.WithDimension(e.dimension),
		embedding.WithBatchSize(e.batchSize),
		embedding.WithMaxAttempts(e.attempts),
		embedding.WithConcurrency(e.workers),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embedding client")
	}
	return client, nil
}
