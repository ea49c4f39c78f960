package http

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stocklens/newsrag/pkg/utils/logging"
)

// requestLogger attaches a logger carrying the request id to the request context
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logging.From(r.Context())
		if id := middleware.GetReqID(r.Context()); id != "" {
			logger = logger.With("request_id", id)
		}
		ctx := logging.With(r.Context(), logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
