package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atvirokodosprendimai/userkeys/internal/adapters/sqlstore/gormdb"
	"github.com/atvirokodosprendimai/userkeys/internal/core/domain"
	"github.com/atvirokodosprendimai/userkeys/migrations"
)

func countRows(t *testing.T, db *gormdb.DB, userID uint64, service string) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.R.Model(&credentialModel{}).
		Where("user_id = ? AND service_name = ?", userID, service).
		Count(&n).Error)
	return n
}

func TestCredentialRepository_CreateUpdateDeleteScenario(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, 7, "alice", domain.RoleUser)

	cred, created, err := repo.Put(ctx, owner.ID, domain.CredentialInput{ServiceName: "openai", Secret: "sk-abc"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint64(7), cred.UserID)
	assert.Equal(t, "sk-abc", cred.Secret)
	assert.True(t, cred.Active)
	assert.Equal(t, int64(1), countRows(t, db, 7, "openai"))

	cred, created, err = repo.Put(ctx, owner.ID, domain.CredentialInput{ServiceName: "openai", Secret: "sk-xyz"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(1), countRows(t, db, 7, "openai"))

	got, err := repo.FindActive(ctx, owner.ID, "openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-xyz", got.Secret)
	assert.Equal(t, cred.ID, got.ID)

	require.NoError(t, repo.Delete(ctx, owner.ID, "openai"))
	_, err = repo.FindActive(ctx, owner.ID, "openai")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int64(0), countRows(t, db, 7, "openai"))

	assert.ErrorIs(t, repo.Delete(ctx, owner.ID, "openai"), domain.ErrNotFound)
}

func TestCredentialRepository_PutOverwritesBaseURL(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, 0, "alice", domain.RoleUser)

	base := "https://proxy.example.com/v1"
	_, _, err := repo.Put(ctx, owner.ID, domain.CredentialInput{ServiceName: "openai", Secret: "a", BaseURL: &base})
	require.NoError(t, err)

	got, err := repo.FindActive(ctx, owner.ID, "openai")
	require.NoError(t, err)
	require.NotNil(t, got.BaseURL)
	assert.Equal(t, base, *got.BaseURL)

	_, _, err = repo.Put(ctx, owner.ID, domain.CredentialInput{ServiceName: "openai", Secret: "b"})
	require.NoError(t, err)

	got, err = repo.FindActive(ctx, owner.ID, "openai")
	require.NoError(t, err)
	assert.Nil(t, got.BaseURL)
}

func TestCredentialRepository_InactiveRows(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, 0, "alice", domain.RoleUser)

	_, _, err := repo.Put(ctx, owner.ID, domain.CredentialInput{ServiceName: "svc", Secret: "old"})
	require.NoError(t, err)
	require.NoError(t, db.W.Model(&credentialModel{}).
		Where("user_id = ? AND service_name = ?", owner.ID, "svc").
		Update("is_active", false).Error)

	// hidden from reads
	_, err = repo.FindActive(ctx, owner.ID, "svc")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	list, err := repo.ListActive(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	// resubmission reactivates the same row instead of inserting
	_, created, err := repo.Put(ctx, owner.ID, domain.CredentialInput{ServiceName: "svc", Secret: "new"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(1), countRows(t, db, owner.ID, "svc"))

	got, err := repo.FindActive(ctx, owner.ID, "svc")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Secret)

	// delete reaches inactive rows too
	require.NoError(t, db.W.Model(&credentialModel{}).Where("id = ?", got.ID).Update("is_active", false).Error)
	require.NoError(t, repo.Delete(ctx, owner.ID, "svc"))
	assert.Equal(t, int64(0), countRows(t, db, owner.ID, "svc"))
}

func TestCredentialRepository_OwnerIsolation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepository(db)
	ctx := context.Background()
	alice := seedUser(t, db, 0, "alice", domain.RoleUser)
	bob := seedUser(t, db, 0, "bob", domain.RoleUser)

	_, _, err := repo.Put(ctx, bob.ID, domain.CredentialInput{ServiceName: "openai", Secret: "bob-secret"})
	require.NoError(t, err)

	_, err = repo.FindActive(ctx, alice.ID, "openai")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := repo.ListActive(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, repo.Delete(ctx, alice.ID, "openai"), domain.ErrNotFound)

	_, created, err := repo.Put(ctx, alice.ID, domain.CredentialInput{ServiceName: "openai", Secret: "alice-secret"})
	require.NoError(t, err)
	assert.True(t, created)

	got, err := repo.FindActive(ctx, bob.ID, "openai")
	require.NoError(t, err)
	assert.Equal(t, "bob-secret", got.Secret)
}

func TestCredentialRepository_ListActiveInStorageOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db, 0, "alice", domain.RoleUser)

	for _, svc := range []string{"openai", "anthropic", "mistral"} {
		_, _, err := repo.Put(ctx, owner.ID, domain.CredentialInput{ServiceName: svc, Secret: "k-" + svc})
		require.NoError(t, err)
	}

	list, err := repo.ListActive(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "openai", list[0].ServiceName)
	assert.Equal(t, "anthropic", list[1].ServiceName)
	assert.Equal(t, "mistral", list[2].ServiceName)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)

	sqlDB, err := db.WriteSQLDB()
	require.NoError(t, err)
	assert.NoError(t, migrations.Up(context.Background(), sqlDB, db.Dialect))
}

func TestMigrateRejectsUnknownDialect(t *testing.T) {
	db := setupTestDB(t)

	sqlDB, err := db.WriteSQLDB()
	require.NoError(t, err)
	assert.Error(t, migrations.Up(context.Background(), sqlDB, "mssql"))
}
