package httputil

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/utils/logging"
)

// RetryBaseDelay is the first backoff step. Tests shrink it.
var RetryBaseDelay = time.Second

const (
	DefaultMaxRetries = 3
	maxRetryDelay     = 30 * time.Second
)

// Retryable reports whether a response status is worth another attempt
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// DoWithRetry sends req and retries on 429, 5xx and transport errors with exponential backoff.
// A Retry-After header in seconds overrides the computed delay. After the last retry the final
// response is returned as-is so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		switch {
		case err != nil:
			if ctx.Err() != nil || attempt >= maxRetries {
				return nil, goerr.Wrap(err, "http request failed",
					goerr.V("url", req.URL.Redacted()),
					goerr.V("attempts", attempt+1))
			}
		case !Retryable(resp.StatusCode) || attempt >= maxRetries:
			return resp, nil
		}

		delay := backoff(attempt)
		if resp != nil {
			if d, ok := retryAfter(resp); ok {
				delay = d
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		logging.From(ctx).Debug("retrying http request",
			"url", req.URL.Redacted(),
			"attempt", attempt+1,
			"delay", delay,
		)

		select {
		case <-ctx.Done():
			return nil, goerr.Wrap(ctx.Err(), "context done while waiting to retry")
		case <-time.After(delay):
		}
	}
}

func backoff(attempt int) time.Duration {
	d := RetryBaseDelay << attempt
	if d <= 0 || d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec < 0 {
		return 0, false
	}
	return min(time.Duration(sec)*time.Second, maxRetryDelay), true
}
