// Package memory is a process-local implementation of repository.Store.
//
// A single mutex serializes transactions, which gives the same guarantees as
// the row locks of the PostgreSQL store. Each transaction works on a copy of
// the state that replaces the live state only on commit, so a failed or
// cancelled transaction leaves nothing behind.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/repository"
)

type state struct {
	nextListID int64
	lists      map[int64]*models.List
	items      map[int64]map[string]*models.ListItem
}

func newState() *state {
	return &state{
		nextListID: 1,
		lists:      make(map[int64]*models.List),
		items:      make(map[int64]map[string]*models.ListItem),
	}
}

func (s *state) clone() *state {
	c := &state{
		nextListID: s.nextListID,
		lists:      make(map[int64]*models.List, len(s.lists)),
		items:      make(map[int64]map[string]*models.ListItem, len(s.items)),
	}
	for id, l := range s.lists {
		c.lists[id] = l.Clone()
	}
	for listID, items := range s.items {
		m := make(map[string]*models.ListItem, len(items))
		for setNum, item := range items {
			copied := *item
			m[setNum] = &copied
		}
		c.items[listID] = m
	}
	return c
}

// Store keeps lists and items in memory.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{state: newState()}
}

var _ repository.Store = (*Store)(nil)

// InTx runs fn against a private copy of the state and publishes it when fn
// succeeds and ctx is still live.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.state.clone()
	if err := fn(&tx{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.state = work
	return nil
}

func (s *Store) ListsByOwner(_ context.Context, ownerID int64) ([]*models.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists := s.state.filterLists(func(l *models.List) bool { return l.OwnerID == ownerID })
	slices.SortStableFunc(lists, compareByPosition)
	return lists, nil
}

func (s *Store) PublicLists(_ context.Context) ([]*models.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lists := s.state.filterLists(func(l *models.List) bool { return l.IsPublic })
	slices.SortStableFunc(lists, func(a, b *models.List) int {
		if a.OwnerID != b.OwnerID {
			return compareInt64(a.OwnerID, b.OwnerID)
		}
		return compareByPosition(a, b)
	})
	return lists, nil
}

func (s *Store) GetList(_ context.Context, id int64) (*models.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.state.lists[id]
	if !ok {
		return nil, nil
	}
	return s.state.counted(l), nil
}

func (s *Store) GetSystemList(_ context.Context, ownerID int64, key models.SystemKey) (*models.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.state.systemList(ownerID, key)
	if l == nil {
		return nil, nil
	}
	return s.state.counted(l), nil
}

func (s *Store) Items(_ context.Context, listID int64) ([]*models.ListItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.sortedItems(listID), nil
}

func (s *Store) DriftedOwners(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byOwner := make(map[int64][]*models.List)
	for _, l := range s.state.lists {
		byOwner[l.OwnerID] = append(byOwner[l.OwnerID], l)
	}

	var owners []int64
	for ownerID, lists := range byOwner {
		positions := make([]int, 0, len(lists))
		pinned := true
		for _, l := range lists {
			positions = append(positions, l.Position)
			if l.HasSystemKey(models.SystemKeyOwned) && l.Position != 0 {
				pinned = false
			}
			if l.HasSystemKey(models.SystemKeyWishlist) && l.Position > 1 {
				pinned = false
			}
		}
		if !pinned || !contiguous(positions) {
			owners = append(owners, ownerID)
		}
	}
	slices.Sort(owners)
	return owners, nil
}

func (s *Store) DriftedLists(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lists []int64
	for listID, items := range s.state.items {
		positions := make([]int, 0, len(items))
		for _, item := range items {
			positions = append(positions, item.Position)
		}
		if len(positions) > 0 && !contiguous(positions) {
			lists = append(lists, listID)
		}
	}
	slices.Sort(lists)
	return lists, nil
}

// Corrupt lets tests plant legacy rows with gaps or duplicate positions.
func (s *Store) Corrupt(fn func(lists map[int64]*models.List, items map[int64]map[string]*models.ListItem)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.state.lists, s.state.items)
}

func (s *state) filterLists(keep func(*models.List) bool) []*models.List {
	var out []*models.List
	for _, l := range s.lists {
		if keep(l) {
			out = append(out, s.counted(l))
		}
	}
	return out
}

func (s *state) counted(l *models.List) *models.List {
	c := l.Clone()
	c.ItemsCount = len(s.items[l.ID])
	return c
}

func (s *state) systemList(ownerID int64, key models.SystemKey) *models.List {
	for _, l := range s.lists {
		if l.OwnerID == ownerID && l.HasSystemKey(key) {
			return l
		}
	}
	return nil
}

func (s *state) sortedItems(listID int64) []*models.ListItem {
	items := make([]*models.ListItem, 0, len(s.items[listID]))
	for _, item := range s.items[listID] {
		copied := *item
		items = append(items, &copied)
	}
	slices.SortStableFunc(items, func(a, b *models.ListItem) int {
		if a.Position != b.Position {
			return a.Position - b.Position
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.SetNum < b.SetNum {
			return -1
		}
		if a.SetNum > b.SetNum {
			return 1
		}
		return 0
	})
	return items
}

func compareByPosition(a, b *models.List) int {
	if a.Position != b.Position {
		return a.Position - b.Position
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return compareInt64(a.ID, b.ID)
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func contiguous(positions []int) bool {
	sorted := slices.Clone(positions)
	slices.Sort(sorted)
	for i, p := range sorted {
		if p != i {
			return false
		}
	}
	return true
}
