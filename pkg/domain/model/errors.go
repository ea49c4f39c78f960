package model

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
)

// Error kinds surfaced by ingestion and retrieval
var (
	ErrValidation           = goerr.New("invalid request")
	ErrEmbeddingUnavailable = goerr.New("embedding service unavailable")
	ErrStoreUnavailable     = goerr.New("vector store unavailable")
	ErrSchemaMismatch       = goerr.New("vector store schema mismatch")
	ErrSynthesisDegraded    = goerr.New("insight synthesis degraded")
	ErrQueryTimeout         = goerr.New("query timed out")
	ErrNotFound             = goerr.New("not found")
)

// Context keys for error values
const (
	FieldKey     = "field"
	RecordIDKey  = "record_id"
	URLKey       = "url"
	DimensionKey = "dimension"
)

// NewValidationError wraps ErrValidation with the offending request field.
func NewValidationError(field, msg string, values ...goerr.Option) error {
	opts := append([]goerr.Option{goerr.V(FieldKey, field)}, values...)
	return goerr.Wrap(ErrValidation, msg, opts...)
}

// ValidationField returns the request field attached to a validation error, if any
func ValidationField(err error) string {
	if !errors.Is(err, ErrValidation) {
		return ""
	}
	var ge *goerr.Error
	if !errors.As(err, &ge) {
		return ""
	}
	field, _ := ge.Values()[FieldKey].(string)
	return field
}
