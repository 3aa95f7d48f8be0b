package localstate

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:localstate_test?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS local_state (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
DELETE FROM local_state;
`)
	require.NoError(t, err)
	return db
}

func TestSQLiteRepository_SetGet(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupDB(t))

	// Absent key yields nil, not an error.
	got, err := repo.Get(ctx, "lockout_u1")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, repo.Set(ctx, "lockout_u1", []byte(`{"failed_attempts":2}`)))

	got, err = repo.Get(ctx, "lockout_u1")
	require.NoError(t, err)
	require.JSONEq(t, `{"failed_attempts":2}`, string(got))
}

func TestSQLiteRepository_SetOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupDB(t))

	require.NoError(t, repo.Set(ctx, "k", []byte("v1")))
	require.NoError(t, repo.Set(ctx, "k", []byte("v2")))

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)
}

func TestSQLiteRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(setupDB(t))

	require.NoError(t, repo.Set(ctx, "k", []byte("v")))
	require.NoError(t, repo.Delete(ctx, "k"))

	got, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	require.Nil(t, got)

	// Deleting an absent key is not an error.
	require.NoError(t, repo.Delete(ctx, "k"))
}
