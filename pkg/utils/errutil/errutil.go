package errutil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stocklens/newsrag/pkg/domain/model"
	"github.com/stocklens/newsrag/pkg/utils/logging"
)

// Handle logs the error with a message and reports it to Sentry when a client is configured.
// The error is returned unchanged so callers can keep propagating it.
func Handle(ctx context.Context, err error, msg string) error {
	if err == nil {
		return nil
	}

	logger := logging.From(ctx)

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logger.Error(msg,
			"error", err.Error(),
			"values", ge.Values(),
			"stack", ge.Stacks(),
		)
	} else {
		logger.Error(msg, "error", err.Error())
	}

	capture(ctx, err, msg)
	return err
}

// Warn logs a recoverable error. Nothing is sent to Sentry.
func Warn(ctx context.Context, err error, msg string) {
	if err == nil {
		return
	}

	var ge *goerr.Error
	if errors.As(err, &ge) {
		logging.From(ctx).Warn(msg, "error", err.Error(), "values", ge.Values())
		return
	}
	logging.From(ctx).Warn(msg, "error", err.Error())
}

func capture(ctx context.Context, err error, msg string) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() == nil {
		return
	}

	hub = hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("message", msg)
		var ge *goerr.Error
		if errors.As(err, &ge) {
			values := make(map[string]any, len(ge.Values()))
			for k, v := range ge.Values() {
				values[k] = v
			}
			scope.SetContext("goerr", values)
		}
		hub.CaptureException(err)
	})
}

// ErrorResponse is the JSON body of every failed HTTP request
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Classify maps an error to its HTTP status and machine readable code
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, model.ErrQueryTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "QUERY_TIMEOUT"
	case errors.Is(err, model.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable, "EMBEDDING_UNAVAILABLE"
	case errors.Is(err, model.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "STORE_UNAVAILABLE"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// HandleHTTP logs the error and writes the JSON error envelope. 5xx errors are also reported
// to Sentry; client errors are only logged at warn level.
func HandleHTTP(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	status, code := Classify(err)
	if status < http.StatusInternalServerError {
		Warn(ctx, err, "HTTP client error")
	} else {
		_ = Handle(ctx, err, "HTTP error")
	}

	resp := ErrorResponse{
		Error:     code,
		Message:   publicMessage(err, code),
		Field:     model.ValidationField(err),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.From(ctx).Error("failed to write error response", "error", err)
	}
}

var publicMessages = map[string]string{
	"QUERY_TIMEOUT":         "query did not complete in time",
	"EMBEDDING_UNAVAILABLE": "embedding service is temporarily unavailable",
	"STORE_UNAVAILABLE":     "news store is temporarily unavailable",
	"NOT_FOUND":             "resource not found",
	"INTERNAL_ERROR":        "internal error",
}

// publicMessage hides internal detail for everything except validation errors
func publicMessage(err error, code string) string {
	if msg, ok := publicMessages[code]; ok {
		return msg
	}
	return err.Error()
}
