package keyvault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"phishvault/internal/dbx"
)

// SQLiteRepository implements Repository over the key_vault table.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Has(ctx context.Context, userID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM key_vault WHERE user_id = ?`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check key vault for %s: %w", userID, err)
	}
	return true, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, userID string) ([]byte, error) {
	var blob []byte
	err := r.db.QueryRowContext(ctx, `SELECT blob FROM key_vault WHERE user_id = ?`, userID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verification blob for %s: %w", userID, err)
	}
	return blob, nil
}

func (r *SQLiteRepository) Put(ctx context.Context, userID string, blob []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO key_vault (user_id, blob, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET blob = excluded.blob, updated_at = CURRENT_TIMESTAMP
	`, userID, blob)
	if err != nil {
		return fmt.Errorf("failed to store verification blob for %s: %w", userID, err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM key_vault WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear key vault for %s: %w", userID, err)
	}
	return nil
}
