package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/repository"
)

type tx struct {
	st *state
}

func (t *tx) GetList(ctx context.Context, id int64) (*models.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l, ok := t.st.lists[id]
	if !ok {
		return nil, nil
	}
	return l.Clone(), nil
}

func (t *tx) LockOwnerLists(ctx context.Context, ownerID int64) ([]*models.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var lists []*models.List
	for _, l := range t.st.lists {
		if l.OwnerID == ownerID {
			lists = append(lists, l.Clone())
		}
	}
	slices.SortStableFunc(lists, compareByPosition)
	return lists, nil
}

func (t *tx) LockList(ctx context.Context, id int64) (*models.List, error) {
	return t.GetList(ctx, id)
}

func (t *tx) LockSystemList(ctx context.Context, ownerID int64, key models.SystemKey) (*models.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l := t.st.systemList(ownerID, key)
	if l == nil {
		return nil, nil
	}
	return l.Clone(), nil
}

func (t *tx) InsertList(ctx context.Context, list *models.List) (*models.List, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if list.IsSystem && list.SystemKey != nil && t.st.systemList(list.OwnerID, *list.SystemKey) != nil {
		return nil, repository.ErrDuplicate
	}

	stored := list.Clone()
	stored.ID = t.st.nextListID
	stored.ItemsCount = 0
	stored.Items = nil
	t.st.nextListID++
	t.st.lists[stored.ID] = stored

	list.ID = stored.ID
	return list, nil
}

func (t *tx) UpdateList(ctx context.Context, list *models.List) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored, ok := t.st.lists[list.ID]
	if !ok {
		return fmt.Errorf("list with ID %d not found", list.ID)
	}
	stored.Title = list.Title
	stored.Description = list.Clone().Description
	stored.IsPublic = list.IsPublic
	stored.UpdatedAt = list.UpdatedAt
	return nil
}

func (t *tx) DeleteList(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.st.lists[id]; !ok {
		return fmt.Errorf("list with ID %d not found", id)
	}
	delete(t.st.lists, id)
	delete(t.st.items, id)
	return nil
}

func (t *tx) SetListPositions(ctx context.Context, positions map[int64]int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for id, pos := range positions {
		if l, ok := t.st.lists[id]; ok {
			l.Position = pos
		}
	}
	return nil
}

func (t *tx) TouchList(ctx context.Context, id int64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l, ok := t.st.lists[id]; ok {
		l.UpdatedAt = at
	}
	return nil
}

func (t *tx) LockItems(ctx context.Context, listID int64) ([]*models.ListItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.st.sortedItems(listID), nil
}

func (t *tx) InsertItem(ctx context.Context, item *models.ListItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.st.lists[item.ListID]; !ok {
		return fmt.Errorf("list with ID %d not found", item.ListID)
	}
	items := t.st.items[item.ListID]
	if items == nil {
		items = make(map[string]*models.ListItem)
		t.st.items[item.ListID] = items
	}
	if _, ok := items[item.SetNum]; ok {
		return repository.ErrDuplicate
	}
	copied := *item
	items[item.SetNum] = &copied
	return nil
}

func (t *tx) DeleteItems(ctx context.Context, listID int64, setNums []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	items := t.st.items[listID]
	for _, setNum := range setNums {
		delete(items, setNum)
	}
	return nil
}

func (t *tx) SetItemPositions(ctx context.Context, listID int64, positions map[string]int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	items := t.st.items[listID]
	for setNum, pos := range positions {
		if item, ok := items[setNum]; ok {
			item.Position = pos
		}
	}
	return nil
}
