package interfaces

import (
	"context"
	"time"
)

// ResponseCache is a short-lived key-value store in front of retrieval. A miss is (nil, false, nil).
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
