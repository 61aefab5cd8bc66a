package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atvirokodosprendimai/userkeys/internal/core/domain"
)

func TestUserRepository_FindByUsername(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seeded := seedUser(t, db, 7, "alice", domain.RoleUser)
	assert.Equal(t, uint64(7), seeded.ID)

	user, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), user.ID)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.False(t, user.CreatedAt.IsZero())

	_, err = repo.FindByUsername(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_UpsertUpdatesRole(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, domain.User{Username: "root", Role: domain.RoleUser})
	require.NoError(t, err)

	second, err := repo.Upsert(ctx, domain.User{Username: "root", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, domain.RoleAdmin, second.Role)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestUserRepository_UpsertRejectsUnknownRole(t *testing.T) {
	db := setupTestDB(t)

	_, err := NewUserRepository(db).Upsert(context.Background(), domain.User{Username: "x", Role: "owner"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
