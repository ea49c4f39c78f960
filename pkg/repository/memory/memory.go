package memory

import (
	"github.com/stocklens/newsrag/pkg/domain/interfaces"
	"github.com/stocklens/newsrag/pkg/domain/types"
)

// Memory is an in-process repository for development and tests. Data is lost on exit.
type Memory struct {
	record *recordRepository
}

var _ interfaces.Repository = &Memory{}

type Option func(*Memory)

// WithMetric sets the distance metric used by vector search. Euclidean is the default.
func WithMetric(metric types.DistanceMetric) Option {
	return func(m *Memory) {
		m.record.metric = metric
	}
}

func New(opts ...Option) *Memory {
	m := &Memory{
		record: newRecordRepository(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Record() interfaces.RecordRepository {
	return m.record
}

func (m *Memory) Close() error {
	return nil
}
