package worker

import (
	"context"
	"sync"
	"time"

	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/utils/errutil"
	"github.com/stocklens/newsrag/pkg/utils/logging"
)

// Ingester runs one ingestion pass
type Ingester interface {
	RunIngestion(ctx context.Context) (*model.IngestReport, error)
}

// Purger removes records published more than days ago
type Purger interface {
	PurgeExpired(ctx context.Context, days int) (int, error)
}

// IngestWorker runs ingestion periodically in the background.
//
// Only one instance should run per store: runs are not coordinated across processes, and
// overlapping runs would race on the duplicate check.
type IngestWorker struct {
	ingester Ingester
	purger   Purger
	days     int
	interval time.Duration
	cancel   context.CancelFunc
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

type Option func(*IngestWorker)

// WithPurger enables a retention purge of records older than days after every cycle
func WithPurger(p Purger, days int) Option {
	return func(w *IngestWorker) {
		w.purger = p
		w.days = days
	}
}

func NewIngestWorker(ingester Ingester, interval time.Duration, opts ...Option) *IngestWorker {
	w := &IngestWorker{
		ingester: ingester,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the loop. The first cycle runs immediately without blocking the caller.
func (w *IngestWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	logging.From(ctx).Info("ingest worker starting", "interval", w.interval.String())
	go w.run(ctx)
}

// Stop signals the loop, cancels a running cycle and waits for it to return
func (w *IngestWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.cancel != nil {
			w.cancel()
		}
	})
	<-w.doneCh
	logging.Default().Info("ingest worker stopped")
}

func (w *IngestWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.cycle(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.cycle(ctx)

		case <-w.stopCh:
			return

		case <-ctx.Done():
			logging.From(ctx).Info("ingest worker context cancelled")
			return
		}
	}
}

// cycle runs one ingestion and optional purge. Failures are logged and retried next interval.
func (w *IngestWorker) cycle(ctx context.Context) {
	report, err := w.ingester.RunIngestion(ctx)
	if err != nil {
		_ = errutil.Handle(ctx, err, "scheduled ingestion failed (will retry next interval)")
	} else {
		logging.From(ctx).Info("scheduled ingestion completed", "report", report)
	}

	if w.purger == nil {
		return
	}
	deleted, err := w.purger.PurgeExpired(ctx, w.days)
	if err != nil {
		_ = errutil.Handle(ctx, err, "retention purge failed")
		return
	}
	if deleted > 0 {
		logging.From(ctx).Info("retention purge completed", "deleted", deleted)
	}
}
