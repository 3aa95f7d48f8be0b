// Package client defines the remote-store API surface consumed by the
// encryption layer, and its authenticated HTTP implementation. The remote
// store only ever sees ciphertext, a salt, and mirrored lockout counters.
package client

import (
	"context"
	"time"

	"phishvault/internal/client/models"
)

// EncryptionStatus mirrors GET /encryption/status. Salt is nil when the
// account has no salt yet (base64 on the wire, null when absent).
type EncryptionStatus struct {
	HasSalt     bool   `json:"hasSalt"`
	HasAnalyses bool   `json:"hasAnalyses"`
	Salt        []byte `json:"salt"`
}

// Identity supplies a stable per-user identifier and a bearer credential for
// the remote store. The encryption session consumes it; the HTTP client
// implements it from its login/refresh token state.
type Identity interface {
	UserID() string
	AccessToken(ctx context.Context) (string, error)
}

// Client is the remote-store collaborator. All calls are bounded in time and
// fail with ErrUnavailable on transport errors or expiry.
type Client interface {
	Close() error

	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) error
	Ping(ctx context.Context) error

	GetEncryptionStatus(ctx context.Context) (*EncryptionStatus, error)
	SaveSalt(ctx context.Context, salt []byte) error

	// Best-effort lockout mirroring for cross-device visibility.
	SaveAttempts(ctx context.Context, attempts int) error
	LockUser(ctx context.Context, lockedUntil time.Time, attempts int) error

	// ListAnalyses returns the user's encrypted records, newest first.
	// limit <= 0 means no limit. The remote store never returns plaintext.
	ListAnalyses(ctx context.Context, limit int) ([]*models.EncryptedAnalysis, error)
	SaveAnalysis(ctx context.Context, a *models.EncryptedAnalysis) error
}
