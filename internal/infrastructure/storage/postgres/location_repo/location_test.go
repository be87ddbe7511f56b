package location_repo

import (
	"strings"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodeck/internal/core/id"
)

func TestBaseSelect_ContainsAllColumns(t *testing.T) {
	repo := NewLocationRepo(nil)

	sql, _, err := repo.baseSelect().ToSql()
	require.NoError(t, err)

	for _, col := range []string{"id", "project_id", "latitude", "longitude", "polygon", "deleted_at"} {
		assert.Contains(t, sql, col)
	}
	assert.Contains(t, sql, "FROM locations")
}

func TestListLiveQuery_FiltersTombstones(t *testing.T) {
	repo := NewLocationRepo(nil)
	projectID := id.New()

	q := repo.baseSelect().
		Where(squirrel.Eq{"project_id": projectID}).
		Where(squirrel.Eq{"deleted_at": nil}).
		OrderBy("created_at", "id")

	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "project_id = $1")
	assert.Contains(t, sql, "deleted_at IS NULL")
	assert.True(t, strings.HasSuffix(sql, "ORDER BY created_at, id"))
	require.Len(t, args, 1)
	assert.Equal(t, projectID, args[0])
}
