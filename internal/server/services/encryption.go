package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"phishvault/internal/common"
	"phishvault/internal/server/repositories/repomanager"
)

// EncryptionStatus is what a client needs to decide between first-time setup
// and unlock: whether a salt exists (and its bytes), and whether the account
// already owns encrypted records.
type EncryptionStatus struct {
	HasSalt     bool
	HasAnalyses bool
	Salt        []byte
}

// EncryptionService manages the per-user encryption metadata. The server
// never sees a passphrase or a derived key; it only stores the public salt
// and mirrors the client's lockout counters for cross-device visibility.
type EncryptionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewEncryptionService(db *sql.DB, m repomanager.RepositoryManager) *EncryptionService {
	return &EncryptionService{db: db, repomanager: m}
}

func (s *EncryptionService) Status(ctx context.Context, userID string) (*EncryptionStatus, error) {

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	hasAnalyses, err := s.repomanager.Analyses(s.db).HasAny(ctx, userID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &EncryptionStatus{
		HasSalt:     len(user.Salt) > 0,
		HasAnalyses: hasAnalyses,
		Salt:        user.Salt,
	}, nil
}

// SaveSalt stores the client-generated key-derivation salt. The salt is not
// secret; overwriting with the same bytes is harmless.
func (s *EncryptionService) SaveSalt(ctx context.Context, userID string, salt []byte) error {
	if len(salt) == 0 {
		return fmt.Errorf("empty salt")
	}
	if err := s.repomanager.Users(s.db).SetSalt(ctx, userID, salt); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// SaveAttempts mirrors the client's failed-attempt counter.
func (s *EncryptionService) SaveAttempts(ctx context.Context, userID string, attempts int) error {
	if err := s.repomanager.Users(s.db).SetLockout(ctx, userID, attempts, nil); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// LockUser mirrors a client-side lockout. The deadline is informational:
// enforcement stays on the client, which owns the passphrase attempts.
func (s *EncryptionService) LockUser(ctx context.Context, userID string, lockedUntil time.Time, attempts int) error {
	if err := s.repomanager.Users(s.db).SetLockout(ctx, userID, attempts, &lockedUntil); err != nil {
		return common.ErrorInternal
	}
	return nil
}
