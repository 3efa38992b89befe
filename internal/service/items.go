package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShelfBoT/internal/catalog"
	apperrors "github.com/Kerhoff/ShelfBoT/internal/errors"
	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/ordering"
	"github.com/Kerhoff/ShelfBoT/internal/repository"
)

// AddItem appends a catalog set to the end of a custom list.
func (s *Service) AddItem(ctx context.Context, ownerID, listID int64, raw string) (item *models.ListItem, err error) {
	defer s.observe("add_item", time.Now(), &err)

	setNum, err := s.catalog.Resolve(ctx, raw)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		list, err := tx.LockList(ctx, listID)
		if err != nil {
			return err
		}
		if err := checkMutable(list, ownerID, listID); err != nil {
			return err
		}

		items, err := tx.LockItems(ctx, listID)
		if err != nil {
			return err
		}
		item, err = s.appendItem(ctx, tx, listID, items, setNum)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"list_id":  listID,
		"set_num":  setNum,
		"position": item.Position,
	}).Info("Added item to list")
	return item, nil
}

// RemoveItem removes a set from a list. A base-form identifier removes every
// variant of that base. Removing from a system list is allowed.
func (s *Service) RemoveItem(ctx context.Context, ownerID, listID int64, identifier string) (removed []string, err error) {
	defer s.observe("remove_item", time.Now(), &err)

	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, apperrors.Validation("set_num is required")
	}

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		list, err := tx.LockList(ctx, listID)
		if err != nil {
			return err
		}
		if list == nil {
			return apperrors.NotFoundf("list %d not found", listID)
		}
		if list.OwnerID != ownerID {
			return apperrors.NotOwner(listID)
		}

		items, err := tx.LockItems(ctx, listID)
		if err != nil {
			return err
		}
		removed, err = s.removeMatching(ctx, tx, listID, items, func(item *models.ListItem) bool {
			return catalog.Matches(item.SetNum, identifier)
		})
		if err != nil {
			return err
		}
		if len(removed) == 0 {
			return apperrors.NotFoundf("set %q is not in list %d", identifier, listID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"list_id":  listID,
		"removed":  removed,
	}).Info("Removed item from list")
	return removed, nil
}

// ReorderItems sets the order of a custom list's items. identifiers must
// resolve to exactly the sets in the list, each once.
func (s *Service) ReorderItems(ctx context.Context, ownerID, listID int64, identifiers []string) (items []*models.ListItem, err error) {
	defer s.observe("reorder_items", time.Now(), &err)

	setNums, err := s.resolveAll(ctx, identifiers)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		list, err := tx.LockList(ctx, listID)
		if err != nil {
			return err
		}
		if err := checkMutable(list, ownerID, listID); err != nil {
			return err
		}

		items, err = s.reorderItems(ctx, tx, listID, setNums)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"list_id":  listID,
		"count":    len(items),
	}).Info("Reordered list items")
	return items, nil
}

// appendItem closes any gaps in the existing positions and inserts setNum
// after the list's last item. items must be the locked items of listID.
func (s *Service) appendItem(ctx context.Context, tx repository.Tx, listID int64, items []*models.ListItem, setNum string) (*models.ListItem, error) {
	for _, item := range items {
		if strings.EqualFold(item.SetNum, setNum) {
			return nil, apperrors.Conflictf("set %s is already in list %d", setNum, listID)
		}
	}

	entries := itemEntries(items)
	compacted := ordering.Compact(entries)
	if err := tx.SetItemPositions(ctx, listID, ordering.Changed(entries, ordering.Positions(compacted))); err != nil {
		return nil, err
	}

	now := s.now()
	item := &models.ListItem{
		ListID:    listID,
		SetNum:    setNum,
		Position:  ordering.Append(compacted),
		CreatedAt: now,
	}
	if err := tx.InsertItem(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflictf("set %s is already in list %d", setNum, listID)
		}
		return nil, err
	}
	if err := tx.TouchList(ctx, listID, now); err != nil {
		return nil, err
	}
	return item, nil
}

// removeMatching deletes the locked items selected by match and compacts the
// rest. It returns the removed set numbers; nothing is written when none
// match.
func (s *Service) removeMatching(ctx context.Context, tx repository.Tx, listID int64, items []*models.ListItem, match func(*models.ListItem) bool) ([]string, error) {
	var removed []string
	for _, item := range items {
		if match(item) {
			removed = append(removed, item.SetNum)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}

	if err := tx.DeleteItems(ctx, listID, removed); err != nil {
		return nil, err
	}

	entries := itemEntries(items)
	compacted := ordering.Compact(entries, removed...)
	if err := tx.SetItemPositions(ctx, listID, ordering.Changed(entries, ordering.Positions(compacted))); err != nil {
		return nil, err
	}
	if err := tx.TouchList(ctx, listID, s.now()); err != nil {
		return nil, err
	}
	return removed, nil
}

// reorderItems locks the items of listID and applies setNums as their new
// order. It returns the items sorted by their new position.
func (s *Service) reorderItems(ctx context.Context, tx repository.Tx, listID int64, setNums []string) ([]*models.ListItem, error) {
	items, err := tx.LockItems(ctx, listID)
	if err != nil {
		return nil, err
	}

	current := make([]string, 0, len(items))
	for _, item := range items {
		current = append(current, item.SetNum)
	}
	target, err := ordering.Reorder(current, setNums)
	if err != nil {
		return nil, err
	}

	if err := tx.SetItemPositions(ctx, listID, ordering.Changed(itemEntries(items), target)); err != nil {
		return nil, err
	}
	if err := tx.TouchList(ctx, listID, s.now()); err != nil {
		return nil, err
	}

	ordered := make([]*models.ListItem, len(items))
	for _, item := range items {
		item.Position = target[item.SetNum]
		ordered[item.Position] = item
	}
	return ordered, nil
}

// resolveAll resolves identifiers to canonical set numbers. An identifier
// the catalog does not know is a validation error of the whole request.
func (s *Service) resolveAll(ctx context.Context, identifiers []string) ([]string, error) {
	setNums := make([]string, 0, len(identifiers))
	for _, raw := range identifiers {
		setNum, err := s.catalog.Resolve(ctx, raw)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.Validationf("unknown set %q", raw)
			}
			return nil, err
		}
		setNums = append(setNums, setNum)
	}
	return setNums, nil
}

func itemEntries(items []*models.ListItem) []ordering.Entry[string] {
	entries := make([]ordering.Entry[string], 0, len(items))
	for _, item := range items {
		entries = append(entries, ordering.Entry[string]{Key: item.SetNum, Position: item.Position, CreatedAt: item.CreatedAt})
	}
	return entries
}
