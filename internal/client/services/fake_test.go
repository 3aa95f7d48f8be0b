package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"phishvault/internal/client/client"
	"phishvault/internal/client/models"
	"phishvault/internal/logging"
)

func setupDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE key_vault (
  user_id    TEXT PRIMARY KEY,
  blob       BLOB NOT NULL,
  updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE local_state (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type lockCall struct {
	Until    time.Time
	Attempts int
}

// fakeClient implements client.Client and client.Identity for unit tests.
type fakeClient struct {
	mu sync.Mutex

	UserIDRet string

	StatusRet   *client.EncryptionStatus
	StatusErr   error
	StatusCalls int

	SaveSaltErr error
	SavedSalt   []byte

	SaveAttemptsErr   error
	SaveAttemptsCalls []int

	LockUserErr   error
	LockUserCalls []lockCall

	ListRet   []*models.EncryptedAnalysis
	ListErr   error
	ListCalls int
	LastLimit int

	SaveAnalysisErr error
	SavedAnalyses   []*models.EncryptedAnalysis
}

func (f *fakeClient) Close() error                                 { return nil }
func (f *fakeClient) Register(ctx context.Context, u, p string) error { return nil }
func (f *fakeClient) Login(ctx context.Context, u, p string) error    { return nil }
func (f *fakeClient) Ping(ctx context.Context) error                  { return nil }

func (f *fakeClient) UserID() string { return f.UserIDRet }
func (f *fakeClient) AccessToken(ctx context.Context) (string, error) {
	return "test-token", nil
}

func (f *fakeClient) GetEncryptionStatus(ctx context.Context) (*client.EncryptionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StatusCalls++
	if f.StatusErr != nil {
		return nil, f.StatusErr
	}
	return f.StatusRet, nil
}

func (f *fakeClient) SaveSalt(ctx context.Context, salt []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SaveSaltErr != nil {
		return f.SaveSaltErr
	}
	f.SavedSalt = append([]byte(nil), salt...)
	return nil
}

func (f *fakeClient) SaveAttempts(ctx context.Context, attempts int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SaveAttemptsCalls = append(f.SaveAttemptsCalls, attempts)
	return f.SaveAttemptsErr
}

func (f *fakeClient) LockUser(ctx context.Context, until time.Time, attempts int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LockUserCalls = append(f.LockUserCalls, lockCall{Until: until, Attempts: attempts})
	return f.LockUserErr
}

func (f *fakeClient) ListAnalyses(ctx context.Context, limit int) ([]*models.EncryptedAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	f.LastLimit = limit
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	if limit > 0 && len(f.ListRet) > limit {
		return f.ListRet[:limit], nil
	}
	return f.ListRet, nil
}

func (f *fakeClient) SaveAnalysis(ctx context.Context, a *models.EncryptedAnalysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SaveAnalysisErr != nil {
		return f.SaveAnalysisErr
	}
	f.SavedAnalyses = append(f.SavedAnalyses, a)
	return nil
}

func (f *fakeClient) lockCallsSnapshot() []lockCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]lockCall(nil), f.LockUserCalls...)
}

func (f *fakeClient) attemptsCallsSnapshot() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.SaveAttemptsCalls...)
}
