package users

import (
	"context"
	"time"

	"phishvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// SetSalt stores the client-generated key-derivation salt. The write is
	// idempotent: re-saving the same salt is always safe.
	SetSalt(ctx context.Context, userID string, salt []byte) error

	// SetLockout mirrors the client's attempt counter and lockout deadline.
	SetLockout(ctx context.Context, userID string, attempts int, lockedUntil *time.Time) error
}
