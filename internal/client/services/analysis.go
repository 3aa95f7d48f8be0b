package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"phishvault/internal/client/client"
	"phishvault/internal/client/models"
	"phishvault/internal/logging"
)

// HistoryItem is one row of the decrypted history listing. Unreadable marks
// a record whose sensitive fields could not be decrypted under the current
// key (corrupted or foreign ciphertext); its clear fields are still shown so
// one bad record does not hide the rest.
type HistoryItem struct {
	ID         string
	InputKind  models.InputKind
	CreatedAt  time.Time
	Unreadable bool

	// Decrypted content; zero values when Unreadable.
	UserEmail  string
	IsPhishing bool
	Confidence float64
}

// AnalysisService captures new analysis records and lists the encrypted
// history. All plaintext handling happens behind the session's key.
type AnalysisService interface {
	Add(ctx context.Context, a *models.Analysis) (*models.Analysis, error)
	List(ctx context.Context) ([]HistoryItem, error)
	Get(ctx context.Context, id string) (*models.Analysis, error)
}

type analysisService struct {
	client   client.Client
	identity client.Identity
	session  *Session
	logger   logging.Logger
}

func NewAnalysisService(c client.Client, id client.Identity, session *Session, l logging.Logger) AnalysisService {
	return &analysisService{client: c, identity: id, session: session, logger: l.With("module", "analysis")}
}

// Add assigns identity and timestamps, encrypts the sensitive fields under
// the session key, and uploads the encrypted record to the remote store.
func (s *analysisService) Add(ctx context.Context, a *models.Analysis) (*models.Analysis, error) {
	now := time.Now().UTC()
	a.ID = uuid.NewString()
	a.UserID = s.identity.UserID()
	a.CreatedAt = now
	a.UpdatedAt = now

	encrypted, err := s.session.EncryptData(a)
	if err != nil {
		return nil, fmt.Errorf("encryption error: %w", err)
	}
	if err := s.client.SaveAnalysis(ctx, encrypted); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}
	return a, nil
}

// List fetches the user's encrypted records and decrypts them for display.
// Records that fail to decrypt become placeholder rows rather than aborting
// the whole listing.
func (s *analysisService) List(ctx context.Context) ([]HistoryItem, error) {
	rows, err := s.client.ListAnalyses(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}

	result := make([]HistoryItem, 0, len(rows))
	for _, row := range rows {
		item := HistoryItem{ID: row.ID, InputKind: row.InputKind, CreatedAt: row.CreatedAt}

		a, err := s.session.DecryptData(row)
		if err != nil {
			s.logger.Warn(ctx, "undecryptable record in history", "id", row.ID, "error", err)
			item.Unreadable = true
			result = append(result, item)
			continue
		}

		item.UserEmail = a.UserEmail
		if a.MLResult != nil {
			item.IsPhishing = a.MLResult.IsPhishing
			item.Confidence = a.MLResult.PhishingProbability
		}
		result = append(result, item)
	}
	return result, nil
}

// Get returns one fully decrypted record by id.
func (s *analysisService) Get(ctx context.Context, id string) (*models.Analysis, error) {
	rows, err := s.client.ListAnalyses(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	for _, row := range rows {
		if row.ID != id {
			continue
		}
		a, err := s.session.DecryptData(row)
		if err != nil {
			return nil, fmt.Errorf("decrypting record: %w", err)
		}
		return a, nil
	}
	return nil, client.ErrNotFound
}
