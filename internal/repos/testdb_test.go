package repos_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"concerto/internal/repos"
)

// memdb opens an in-memory SQLite database with the schema applied.
func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(repos.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = repos.NewMigrator(db).Update(context.Background(), true)
	require.NoError(t, err)
	return db
}
