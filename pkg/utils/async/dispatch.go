package async

import (
	"context"
	"fmt"
	"sync"

	"github.com/stocklens/newsrag/pkg/utils/errutil"
	"github.com/stocklens/newsrag/pkg/utils/logging"
)

// Runner executes detached jobs and lets the owner wait for them on shutdown
type Runner struct {
	wg sync.WaitGroup
}

// Dispatch runs handler in a new goroutine on a background context that keeps the caller's
// logger. Errors and panics are logged under name.
func (r *Runner) Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.Background(), logging.From(ctx).With("job", name))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if v := recover(); v != nil {
				_ = errutil.Handle(bgCtx, fmt.Errorf("panic: %v", v), "panic in async job")
			}
		}()

		if err := handler(bgCtx); err != nil {
			_ = errutil.Handle(bgCtx, err, "async job failed")
		}
	}()
}

// Wait blocks until every dispatched job returns or ctx is done
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
