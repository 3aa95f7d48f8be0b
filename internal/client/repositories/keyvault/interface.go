// Package keyvault is the durable local store for per-user key-verification
// blobs. The blob is an opaque ciphertext; this package never interprets it.
package keyvault

import "context"

// Repository stores at most one verification blob per user id. It is
// device-local and never synced.
type Repository interface {
	Has(ctx context.Context, userID string) (bool, error)
	// Get returns nil when no blob is stored for the user.
	Get(ctx context.Context, userID string) ([]byte, error)
	Put(ctx context.Context, userID string, blob []byte) error
	Clear(ctx context.Context, userID string) error
}
