package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"phishvault/internal/client/migrations"
	"phishvault/internal/client/repositories/keyvault"
	"phishvault/internal/client/repositories/localstate"
)

// Repositories bundles the client's local durable stores.
type Repositories struct {
	KeyVault   keyvault.Repository
	LocalState localstate.Repository
	DB         *sql.DB
}

// RunMigrations applies the embedded client schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the local SQLite database at dsn,
// migrates it, and returns the repository set. The caller is responsible for
// importing a database/sql driver registered as "sqlite".
func InitDatabase(ctx context.Context, dsn string) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Repositories{
		KeyVault:   keyvault.NewSQLiteRepository(db),
		LocalState: localstate.NewSQLiteRepository(db),
		DB:         db,
	}, nil
}
