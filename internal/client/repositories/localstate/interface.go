// Package localstate is a small durable key/value store for per-user client
// state that must survive process restarts, e.g. rate-limit counters.
package localstate

import "context"

type Repository interface {
	// Get returns nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
