package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atvirokodosprendimai/userkeys/internal/adapters/sqlstore/gormdb"
	"github.com/atvirokodosprendimai/userkeys/internal/core/domain"
	"github.com/atvirokodosprendimai/userkeys/migrations"
)

// setupTestDB opens a migrated SQLite database in a per-test temp dir.
func setupTestDB(t *testing.T) *gormdb.DB {
	t.Helper()

	db, err := gormdb.OpenSQLite(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sqlDB, err := db.WriteSQLDB()
	require.NoError(t, err)
	require.NoError(t, migrations.Up(context.Background(), sqlDB, db.Dialect))

	return db
}

func seedUser(t *testing.T, db *gormdb.DB, id uint64, username string, role domain.Role) domain.User {
	t.Helper()

	user, err := NewUserRepository(db).Upsert(context.Background(), domain.User{ID: id, Username: username, Role: role})
	require.NoError(t, err)
	return user
}
