package repomanager

import (
	"context"
	"database/sql"

	"phishvault/internal/dbx"
	"phishvault/internal/server/repositories/analyses"
	"phishvault/internal/server/repositories/refreshtokens"
	"phishvault/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// the same repository code inside or outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Analyses(db dbx.DBTX) analyses.Repository
}
