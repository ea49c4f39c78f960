package httputil_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/stocklens/newsrag/pkg/utils/httputil"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	m.Run()
}

func TestDoWithRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("retries 429 and 503 then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch calls.Add(1) {
			case 1:
				w.WriteHeader(http.StatusTooManyRequests)
			case 2:
				w.WriteHeader(http.StatusServiceUnavailable)
			default:
				w.WriteHeader(http.StatusOK)
			}
		}))
		defer srv.Close()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		gt.NoError(t, err).Required()

		resp, err := httputil.DoWithRetry(ctx, srv.Client(), req, 3)
		gt.NoError(t, err).Required()
		defer resp.Body.Close()

		gt.Number(t, resp.StatusCode).Equal(http.StatusOK)
		gt.Number(t, calls.Load()).Equal(int32(3))
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		gt.NoError(t, err).Required()

		resp, err := httputil.DoWithRetry(ctx, srv.Client(), req, 3)
		gt.NoError(t, err).Required()
		defer resp.Body.Close()

		gt.Number(t, resp.StatusCode).Equal(http.StatusUnauthorized)
		gt.Number(t, calls.Load()).Equal(int32(1))
	})

	t.Run("last response is returned after retries", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		gt.NoError(t, err).Required()

		resp, err := httputil.DoWithRetry(ctx, srv.Client(), req, 2)
		gt.NoError(t, err).Required()
		defer resp.Body.Close()

		gt.Number(t, resp.StatusCode).Equal(http.StatusBadGateway)
		gt.Number(t, calls.Load()).Equal(int32(3))
	})

	t.Run("canceled context stops waiting", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "20")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		req, err := http.NewRequestWithContext(cctx, http.MethodGet, srv.URL, nil)
		gt.NoError(t, err).Required()

		_, err = httputil.DoWithRetry(cctx, srv.Client(), req, 3)
		gt.Error(t, err).Is(context.DeadlineExceeded)
	})
}
