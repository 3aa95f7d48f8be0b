package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"phishvault/internal/common"
	"phishvault/internal/dbx"
	"phishvault/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `INSERT INTO users (username, password_hash)
	          VALUES ($1, $2)
	          RETURNING id`

	err := r.db.QueryRowContext(ctx, query, user.UserName, user.PasswordHash).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT id, username, password_hash, salt, failed_attempts, locked_until
	          FROM users
	          WHERE username = $1`

	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, username, password_hash, salt, failed_attempts, locked_until
	          FROM users
	          WHERE id = $1`

	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) SetSalt(ctx context.Context, userID string, salt []byte) error {
	query := `UPDATE users SET salt = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID, salt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetLockout(ctx context.Context, userID string, attempts int, lockedUntil *time.Time) error {
	query := `UPDATE users SET failed_attempts = $2, locked_until = $3 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID, attempts, lockedUntil); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var lockedUntil sql.NullTime

	err := row.Scan(&user.ID, &user.UserName, &user.PasswordHash, &user.Salt,
		&user.FailedAttempts, &lockedUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if lockedUntil.Valid {
		t := lockedUntil.Time
		user.LockedUntil = &t
	}
	return user, nil
}
