package usecase

import (
	"github.com/stocklens/newsrag/pkg/domain/interfaces"
	"github.com/stocklens/newsrag/pkg/service/insight"
)

// UseCases bundles the ingestion and query entry points that share one store and embedder
type UseCases struct {
	Ingest *IngestUseCase
	Search *SearchUseCase
}

type Option func(*options)

type options struct {
	ingest []IngestOption
	search []SearchOption
}

func WithIngestOptions(opts ...IngestOption) Option {
	return func(o *options) {
		o.ingest = append(o.ingest, opts...)
	}
}

func WithSearchOptions(opts ...SearchOption) Option {
	return func(o *options) {
		o.search = append(o.search, opts...)
	}
}

// New wires both use cases. source may be nil for processes that only answer queries.
func New(source interfaces.NewsSource, embedder interfaces.Embedder, store interfaces.VectorStore, synth *insight.Synthesizer, opts ...Option) *UseCases {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &UseCases{
		Ingest: NewIngestUseCase(source, embedder, store, o.ingest...),
		Search: NewSearchUseCase(embedder, store, synth, o.search...),
	}
}

