package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"phishvault/internal/common"
	"phishvault/internal/server/models"
	"phishvault/internal/server/repositories/repomanager"
)

// AnalysisService stores and lists encrypted analysis records. Records arrive
// already encrypted; the service validates shape and ownership, nothing more.
type AnalysisService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewAnalysisService(db *sql.DB, m repomanager.RepositoryManager) *AnalysisService {
	return &AnalysisService{db: db, repomanager: m}
}

// Save persists a record for userID. The owner is taken from the
// authenticated identity, never from the request body.
func (s *AnalysisService) Save(ctx context.Context, userID string, a *models.EncryptedAnalysis) error {

	if len(a.UserEmailData) == 0 || len(a.InputContentData) == 0 || len(a.MLResultData) == 0 {
		return fmt.Errorf("incomplete record")
	}

	a.UserID = userID
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	if err := s.repomanager.Analyses(s.db).Save(ctx, a); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// List returns the user's records, newest first. limit <= 0 returns all.
func (s *AnalysisService) List(ctx context.Context, userID string, limit int) ([]*models.EncryptedAnalysis, error) {
	items, err := s.repomanager.Analyses(s.db).ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return items, nil
}
