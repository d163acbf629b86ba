package memory

import (
	"context"
	"testing"

	"github.com/ds124wfegd/parkingbooker/internal/database"
	"github.com/ds124wfegd/parkingbooker/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(database.DemoSeed(), plainHasher)
	require.NoError(t, err)
	repo := NewAccountRepository(store)

	admin, err := repo.GetByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
	assert.Equal(t, "plain:admin123", admin.PasswordHash)

	err = repo.Create(ctx, &entity.Account{ID: "user-x", Email: "User@Example.com"})
	assert.ErrorIs(t, err, entity.ErrAccountExists)

	require.NoError(t, repo.Create(ctx, &entity.Account{ID: "user-2", Name: "Jane", Email: "jane@example.com"}))

	got, err := repo.GetByID(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.Name)

	_, err = repo.GetByID(ctx, "user-404")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
