package repos_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concerto/internal/domain"
	"concerto/internal/repos"
)

func TestContentRepo_SaveAll(t *testing.T) {
	db := memdb(t)
	r := repos.NewContentRepo(db)
	ctx := context.Background()

	obj := &domain.ContentObject{ClassName: domain.ClassTest, Name: "info", Payload: `{"name":"info"}`}
	require.NoError(t, r.SaveAll(ctx, []*domain.ContentObject{obj}, false))

	ok, err := r.Exists(ctx, domain.ClassTest, "info")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := r.ByName(ctx, domain.ClassTest, "info")
	require.NoError(t, err)
	assert.Equal(t, obj.ID, got.ID)
	assert.False(t, got.OwnerID.Valid)

	// without overwrite the unique key rejects the duplicate and nothing is written
	dup := []*domain.ContentObject{
		{ClassName: domain.ClassTest, Name: "form", Payload: `{}`},
		{ClassName: domain.ClassTest, Name: "info", Payload: `{}`},
	}
	require.Error(t, r.SaveAll(ctx, dup, false))
	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	repl := &domain.ContentObject{ClassName: domain.ClassTest, Name: "info", Description: "v2", Payload: `{}`}
	require.NoError(t, r.SaveAll(ctx, []*domain.ContentObject{repl}, true))
	got, err = r.ByName(ctx, domain.ClassTest, "info")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Description)

	_, err = r.ByName(ctx, domain.ClassDataTable, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
