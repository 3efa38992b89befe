package ordering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Kerhoff/ShelfBoT/internal/errors"
	"github.com/Kerhoff/ShelfBoT/internal/models"
)

func systemList(id int64, key models.SystemKey, pos int) *models.List {
	k := key
	return &models.List{ID: id, OwnerID: 1, Title: key.Title(), IsSystem: true, SystemKey: &k, Position: pos}
}

func customList(id int64, pos int) *models.List {
	return &models.List{
		ID:        id,
		OwnerID:   1,
		Title:     "custom",
		Position:  pos,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, int(id), 0, time.UTC),
	}
}

func TestNormalizeListsPinsSystemLists(t *testing.T) {
	// Legacy rows: system lists appended after custom ones, with a gap.
	lists := []*models.List{
		customList(10, 0),
		customList(11, 3),
		systemList(12, models.SystemKeyWishlist, 5),
		systemList(13, models.SystemKeyOwned, 4),
	}

	got := NormalizeLists(lists)
	assert.Equal(t, map[int64]int{13: 0, 12: 1, 10: 2, 11: 3}, got)
}

func TestNormalizeListsPlacesNewListLast(t *testing.T) {
	lists := []*models.List{
		systemList(1, models.SystemKeyOwned, 0),
		systemList(2, models.SystemKeyWishlist, 1),
		customList(3, 2),
		customList(4, 3), // freshly inserted at max+1
	}
	assert.Equal(t, map[int64]int{1: 0, 2: 1, 3: 2, 4: 3}, NormalizeLists(lists))
}

func TestReorderLists(t *testing.T) {
	lists := []*models.List{
		systemList(1, models.SystemKeyOwned, 0),
		systemList(2, models.SystemKeyWishlist, 1),
		customList(3, 2),
		customList(4, 3),
	}

	got, err := ReorderLists(lists, []int64{4, 3})
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{1: 0, 2: 1, 4: 2, 3: 3}, got)
}

func TestReorderListsRejectsSystemIDs(t *testing.T) {
	lists := []*models.List{
		systemList(1, models.SystemKeyOwned, 0),
		systemList(2, models.SystemKeyWishlist, 1),
		customList(3, 2),
	}

	_, err := ReorderLists(lists, []int64{1, 3})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = ReorderLists(lists, []int64{3, 3})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
