package service

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ShelfBoT/internal/catalog"
	apperrors "github.com/Kerhoff/ShelfBoT/internal/errors"
	"github.com/Kerhoff/ShelfBoT/internal/metrics"
	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/repository/memory"
	"github.com/Kerhoff/ShelfBoT/pkg/logger"
)

const alice, bob int64 = 1, 2

var testSets = []string{
	"10026-1", "10305-1", "10305-2", "21318-1", "30706-1",
	"42115-1", "6990-1", "60197-1", "75313-1",
}

type fixture struct {
	svc   *Service
	store *memory.Store
	users *memory.UserRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	users := memory.NewUserRepository()
	svc := New(store, catalog.NewStatic(testSets...), users, logger.Discard(), metrics.New())

	var mu sync.Mutex
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	return &fixture{svc: svc, store: store, users: users}
}

func requireCode(t *testing.T, err error, code apperrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, apperrors.CodeOf(err), "unexpected error: %v", err)
}

// assertListContiguity checks that the owner's list positions are 0..N-1
// with the system lists pinned first.
func assertListContiguity(t *testing.T, f *fixture, ownerID int64) []*models.List {
	t.Helper()

	lists, err := f.store.ListsByOwner(context.Background(), ownerID)
	require.NoError(t, err)
	for i, l := range lists {
		assert.Equal(t, i, l.Position, "list %d (%s)", l.ID, l.Title)
	}
	if len(lists) >= 2 && lists[0].IsSystem && lists[1].IsSystem {
		assert.True(t, lists[0].HasSystemKey(models.SystemKeyOwned))
		assert.True(t, lists[1].HasSystemKey(models.SystemKeyWishlist))
	}
	return lists
}

// itemSetNums returns the set numbers of a list in order after checking
// that item positions are 0..M-1.
func itemSetNums(t *testing.T, f *fixture, listID int64) []string {
	t.Helper()

	items, err := f.store.Items(context.Background(), listID)
	require.NoError(t, err)
	setNums := make([]string, 0, len(items))
	for i, item := range items {
		assert.Equal(t, i, item.Position, "item %s", item.SetNum)
		setNums = append(setNums, item.SetNum)
	}
	return setNums
}

func titles(lists []*models.List) []string {
	out := make([]string, 0, len(lists))
	for _, l := range lists {
		out = append(out, l.Title)
	}
	return out
}

func TestEnsureUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.EnsureUser(ctx, 777, " brick ", "Ada", "")
	require.NoError(t, err)
	assert.Equal(t, "brick", created.TelegramUsername)

	again, err := f.svc.EnsureUser(ctx, 777, "brick", "Ada", "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	renamed, err := f.svc.EnsureUser(ctx, 777, "bricks", "Ada", "Lovelace")
	require.NoError(t, err)
	assert.Equal(t, created.ID, renamed.ID)

	stored, err := f.users.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "bricks", stored.TelegramUsername)
	assert.Equal(t, "Lovelace", stored.LastName)
}

func TestConcurrentFirstTouch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var err error
			switch i % 4 {
			case 0:
				_, _, err = f.svc.EnsureSystemLists(ctx, alice)
			case 1:
				_, err = f.svc.CreateList(ctx, alice, "Custom", nil, true)
			case 2:
				_, err = f.svc.AddToWishlist(ctx, alice, "21318")
			default:
				_, err = f.svc.ListsForOwner(ctx, alice)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	lists := assertListContiguity(t, f, alice)
	system := slices.DeleteFunc(slices.Clone(lists), func(l *models.List) bool { return !l.IsSystem })
	require.Len(t, system, 2)
	assert.Len(t, lists, 2+workers/4)

	_, wishlist, err := f.svc.EnsureSystemLists(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"21318-1"}, itemSetNums(t, f, wishlist.ID))
}

func TestConcurrentItemAppendsStayContiguous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	list, err := f.svc.CreateList(ctx, alice, "Everything", nil, true)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, setNum := range testSets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddItem(ctx, alice, list.ID, setNum)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, testSets, itemSetNums(t, f, list.ID))
}

func TestOperationsRespectCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.CreateList(ctx, alice, "Never", nil, true)
	require.ErrorIs(t, err, context.Canceled)

	lists, err := f.store.ListsByOwner(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, lists)
}
