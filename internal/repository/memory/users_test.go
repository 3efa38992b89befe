package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/repository"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	telegramID := int64(4242)

	created, err := repo.Create(ctx, &models.User{TelegramID: &telegramID, FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := repo.GetByTelegramID(ctx, telegramID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	missing, err := repo.GetByID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.Create(ctx, &models.User{TelegramID: &telegramID})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	found.TelegramUsername = "ada"
	_, err = repo.Update(ctx, found)
	require.NoError(t, err)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "@ada", byID.DisplayName())
}
