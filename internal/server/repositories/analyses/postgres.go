package analyses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Save(ctx context.Context, a *models.EncryptedAnalysis) error {
	query := `INSERT INTO analyses (
	              id, user_id, input_kind, created_at, updated_at,
	              user_email_data, user_email_nonce,
	              input_content_data, input_content_nonce,
	              context_data, context_nonce,
	              ml_result_data, ml_result_nonce)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.UserID, a.InputKind, a.CreatedAt, a.UpdatedAt,
		a.UserEmailData, a.UserEmailNonce,
		a.InputContentData, a.InputContentNonce,
		a.ContextData, a.ContextNonce,
		a.MLResultData, a.MLResultNonce)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.EncryptedAnalysis, error) {
	query := `SELECT id, user_id, input_kind, created_at, updated_at,
	                 user_email_data, user_email_nonce,
	                 input_content_data, input_content_nonce,
	                 context_data, context_nonce,
	                 ml_result_data, ml_result_nonce
	          FROM analyses
	          WHERE user_id = $1
	          ORDER BY created_at DESC
	          LIMIT $2`

	// NULL disables the limit.
	var limitArg sql.NullInt64
	if limit > 0 {
		limitArg = sql.NullInt64{Int64: int64(limit), Valid: true}
	}

	rows, err := r.db.QueryContext(ctx, query, userID, limitArg)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.EncryptedAnalysis
	for rows.Next() {
		a := &models.EncryptedAnalysis{}
		err := rows.Scan(&a.ID, &a.UserID, &a.InputKind, &a.CreatedAt, &a.UpdatedAt,
			&a.UserEmailData, &a.UserEmailNonce,
			&a.InputContentData, &a.InputContentNonce,
			&a.ContextData, &a.ContextNonce,
			&a.MLResultData, &a.MLResultNonce)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) HasAny(ctx context.Context, userID string) (bool, error) {
	query := `SELECT 1 FROM analyses WHERE user_id = $1 LIMIT 1`

	var one int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return true, nil
}
