package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"phishvault/internal/dbx"
	"phishvault/internal/server/models"
	analysesrepo "phishvault/internal/server/repositories/analyses"
	refreshtokensrepo "phishvault/internal/server/repositories/refreshtokens"
	"phishvault/internal/server/repositories/repomanager"
	usersrepo "phishvault/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	getOut *models.User
	getErr error

	setSaltErr   error
	savedSalt    []byte
	setSaltCalls int

	setLockoutErr   error
	lockoutAttempts int
	lockoutUntil    *time.Time
	setLockoutCalls int
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeUsersRepo) SetSalt(ctx context.Context, userID string, salt []byte) error {
	f.setSaltCalls++
	f.savedSalt = salt
	return f.setSaltErr
}

func (f *fakeUsersRepo) SetLockout(ctx context.Context, userID string, attempts int, lockedUntil *time.Time) error {
	f.setLockoutCalls++
	f.lockoutAttempts = attempts
	f.lockoutUntil = lockedUntil
	return f.setLockoutErr
}

type fakeRefreshRepo struct {
	findOut *models.RefreshToken
	findErr error

	delErr error

	createErr error
}

func (f *fakeRefreshRepo) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	return f.createErr
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	return f.delErr
}

type fakeAnalysesRepo struct {
	saveErr error
	saved   []*models.EncryptedAnalysis

	listOut []*models.EncryptedAnalysis
	listErr error
	lastLim int

	hasAnyOut bool
	hasAnyErr error
}

func (f *fakeAnalysesRepo) Save(ctx context.Context, a *models.EncryptedAnalysis) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, a)
	return nil
}

func (f *fakeAnalysesRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*models.EncryptedAnalysis, error) {
	f.lastLim = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}

func (f *fakeAnalysesRepo) HasAny(ctx context.Context, userID string) (bool, error) {
	return f.hasAnyOut, f.hasAnyErr
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	r *fakeRefreshRepo
	a *fakeAnalysesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error           { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository { return m.r }
func (m *fakeRepoManager) Analyses(db dbx.DBTX) analysesrepo.Repository           { return m.a }

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)
