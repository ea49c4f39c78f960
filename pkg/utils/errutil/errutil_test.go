package errutil_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/utils/errutil"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", model.NewValidationError("query", "query is empty"), http.StatusBadRequest, "INVALID_REQUEST"},
		{"timeout", goerr.Wrap(model.ErrQueryTimeout, "retrieval"), http.StatusGatewayTimeout, "QUERY_TIMEOUT"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "QUERY_TIMEOUT"},
		{"embedding", goerr.Wrap(model.ErrEmbeddingUnavailable, "embed"), http.StatusServiceUnavailable, "EMBEDDING_UNAVAILABLE"},
		{"store", goerr.Wrap(model.ErrStoreUnavailable, "search"), http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"unknown", goerr.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := errutil.Classify(tc.err)
			gt.Number(t, status).Equal(tc.status)
			gt.String(t, code).Equal(tc.code)
		})
	}
}

func TestHandleHTTP(t *testing.T) {
	t.Run("validation error carries field", func(t *testing.T) {
		w := httptest.NewRecorder()
		errutil.HandleHTTP(context.Background(), w, model.NewValidationError("query", "query is empty"))

		gt.Number(t, w.Code).Equal(http.StatusBadRequest)
		gt.String(t, w.Header().Get("Content-Type")).Equal("application/json")

		var resp errutil.ErrorResponse
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp)).Required()
		gt.String(t, resp.Error).Equal("INVALID_REQUEST")
		gt.String(t, resp.Field).Equal("query")
		gt.String(t, resp.Message).Contains("query is empty")
		gt.String(t, resp.Timestamp).NotEqual("")
	})

	t.Run("internal detail is hidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		errutil.HandleHTTP(context.Background(), w, goerr.New("dial tcp 10.0.0.1:443: refused"))

		gt.Number(t, w.Code).Equal(http.StatusInternalServerError)
		var resp errutil.ErrorResponse
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp)).Required()
		gt.String(t, resp.Error).Equal("INTERNAL_ERROR")
		gt.String(t, resp.Message).Equal("internal error")
		gt.String(t, resp.Field).Equal("")
	})

	t.Run("nil error writes nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		errutil.HandleHTTP(context.Background(), w, nil)
		gt.Number(t, w.Body.Len()).Equal(0)
	})
}
