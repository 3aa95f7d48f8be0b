// Package analyses declares the repository contract for encrypted analysis
// records. The server stores the ciphertext pairs verbatim and never
// inspects them.
package analyses

import (
	"context"

	"phishvault/internal/server/models"
)

type Repository interface {
	Save(ctx context.Context, a *models.EncryptedAnalysis) error

	// ListByUser returns the user's records newest first. A non-positive
	// limit returns all records.
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.EncryptedAnalysis, error)

	// HasAny reports whether the user owns at least one record.
	HasAny(ctx context.Context, userID string) (bool, error)
}
