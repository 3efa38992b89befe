package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Kerhoff/ShelfBoT/internal/errors"
	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/ordering"
	"github.com/Kerhoff/ShelfBoT/internal/repository"
)

const maxTitleLength = 200

// EnsureSystemLists returns the owner's Owned and Wishlist lists, creating
// whichever is missing. Calling it again changes nothing.
func (s *Service) EnsureSystemLists(ctx context.Context, ownerID int64) (owned, wishlist *models.List, err error) {
	defer s.observe("ensure_system_lists", time.Now(), &err)

	if err = requireOwner(ownerID); err != nil {
		return nil, nil, err
	}

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		lists, err := s.ensureSystemLists(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		owned = findSystem(lists, models.SystemKeyOwned)
		wishlist = findSystem(lists, models.SystemKeyWishlist)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return owned, wishlist, nil
}

// ensureSystemLists locks all of the owner's lists, inserts missing system
// lists and renumbers. The returned lists are sorted by their new position.
func (s *Service) ensureSystemLists(ctx context.Context, tx repository.Tx, ownerID int64) ([]*models.List, error) {
	lists, err := tx.LockOwnerLists(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	for _, key := range models.SystemKeys {
		if findSystem(lists, key) != nil {
			continue
		}

		now := s.now()
		systemKey := key
		created, err := tx.InsertList(ctx, &models.List{
			OwnerID:   ownerID,
			Title:     key.Title(),
			IsPublic:  false,
			Position:  ordering.Append(ordering.ListEntries(lists)),
			IsSystem:  true,
			SystemKey: &systemKey,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if errors.Is(err, repository.ErrDuplicate) {
			// A concurrent transaction committed it first.
			if lists, err = tx.LockOwnerLists(ctx, ownerID); err != nil {
				return nil, err
			}
			if findSystem(lists, key) == nil {
				return nil, fmt.Errorf("%s list for owner %d missing after duplicate insert", key, ownerID)
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		lists = append(lists, created)
		s.logger.WithFields(logrus.Fields{
			"owner_id": ownerID,
			"list_id":  created.ID,
			"key":      key,
		}).Info("Created system list")
	}

	if err := s.normalizeLists(ctx, tx, lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// normalizeLists writes contiguous positions for lists, which must be every
// list of one owner, and sorts the slice accordingly.
func (s *Service) normalizeLists(ctx context.Context, tx repository.Tx, lists []*models.List) error {
	return s.applyListPositions(ctx, tx, lists, ordering.NormalizeLists(lists))
}

func (s *Service) applyListPositions(ctx context.Context, tx repository.Tx, lists []*models.List, target map[int64]int) error {
	changed := ordering.Changed(ordering.ListEntries(lists), target)
	if err := tx.SetListPositions(ctx, changed); err != nil {
		return err
	}
	for _, l := range lists {
		l.Position = target[l.ID]
	}
	slices.SortFunc(lists, func(a, b *models.List) int { return a.Position - b.Position })
	return nil
}

// CreateList creates a custom list placed after all of the owner's lists.
func (s *Service) CreateList(ctx context.Context, ownerID int64, title string, description *string, isPublic bool) (list *models.List, err error) {
	defer s.observe("create_list", time.Now(), &err)

	if err = requireOwner(ownerID); err != nil {
		return nil, err
	}
	if title, err = normalizeTitle(title); err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		lists, err := s.ensureSystemLists(ctx, tx, ownerID)
		if err != nil {
			return err
		}

		now := s.now()
		list, err = tx.InsertList(ctx, &models.List{
			OwnerID:     ownerID,
			Title:       title,
			Description: normalizeDescription(description),
			IsPublic:    isPublic,
			Position:    ordering.Append(ordering.ListEntries(lists)),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return err
		}

		return s.normalizeLists(ctx, tx, append(lists, list))
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"list_id":  list.ID,
		"position": list.Position,
	}).Info("Created list")
	return list, nil
}

// UpdateList applies a partial update to a custom list.
func (s *Service) UpdateList(ctx context.Context, ownerID, listID int64, update models.ListUpdate) (list *models.List, err error) {
	defer s.observe("update_list", time.Now(), &err)

	if update.IsEmpty() {
		return nil, apperrors.Validation("no fields to update")
	}
	if update.Title != nil {
		title, err := normalizeTitle(*update.Title)
		if err != nil {
			return nil, err
		}
		update.Title = &title
	}
	if update.Description != nil {
		description := strings.TrimSpace(*update.Description)
		update.Description = &description
	}

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		list, err = tx.LockList(ctx, listID)
		if err != nil {
			return err
		}
		if err := checkMutable(list, ownerID, listID); err != nil {
			return err
		}

		update.Apply(list)
		list.UpdatedAt = s.now()
		return tx.UpdateList(ctx, list)
	})
	if err != nil {
		return nil, err
	}

	if counted, err := s.store.GetList(ctx, listID); err == nil && counted != nil {
		list.ItemsCount = counted.ItemsCount
	}

	s.logger.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"list_id":  listID,
	}).Info("Updated list")
	return list, nil
}

// DeleteList deletes a custom list with its items and closes the gap it
// leaves in the owner's list positions.
func (s *Service) DeleteList(ctx context.Context, ownerID, listID int64) (err error) {
	defer s.observe("delete_list", time.Now(), &err)

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		probe, err := tx.GetList(ctx, listID)
		if err != nil {
			return err
		}
		if err := checkMutable(probe, ownerID, listID); err != nil {
			return err
		}

		lists, err := tx.LockOwnerLists(ctx, ownerID)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(lists, func(l *models.List) bool { return l.ID == listID })
		if idx < 0 {
			return apperrors.NotFoundf("list %d not found", listID)
		}
		if err := checkMutable(lists[idx], ownerID, listID); err != nil {
			return err
		}

		if err := tx.DeleteList(ctx, listID); err != nil {
			return err
		}
		return s.normalizeLists(ctx, tx, slices.Delete(lists, idx, idx+1))
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"list_id":  listID,
	}).Info("Deleted list")
	return nil
}

// ReorderLists sets the order of the owner's custom lists. orderedIDs must
// name every custom list exactly once; system lists stay pinned in front.
func (s *Service) ReorderLists(ctx context.Context, ownerID int64, orderedIDs []int64) (lists []*models.List, err error) {
	defer s.observe("reorder_lists", time.Now(), &err)

	if err = requireOwner(ownerID); err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		lists, err = s.ensureSystemLists(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		target, err := ordering.ReorderLists(lists, orderedIDs)
		if err != nil {
			return err
		}
		return s.applyListPositions(ctx, tx, lists, target)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"count":    len(orderedIDs),
	}).Info("Reordered lists")
	return lists, nil
}

// PublicLists returns every public list, grouped by owner in position order.
func (s *Service) PublicLists(ctx context.Context) (lists []*models.List, err error) {
	defer s.observe("public_lists", time.Now(), &err)

	return s.store.PublicLists(ctx)
}

// ListsForOwner returns all of the owner's lists in position order, system
// lists included.
func (s *Service) ListsForOwner(ctx context.Context, ownerID int64) (lists []*models.List, err error) {
	defer s.observe("lists_for_owner", time.Now(), &err)

	if err = requireOwner(ownerID); err != nil {
		return nil, err
	}

	lists, err = s.store.ListsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if findSystem(lists, models.SystemKeyOwned) != nil && findSystem(lists, models.SystemKeyWishlist) != nil {
		return lists, nil
	}

	if err = s.store.InTx(ctx, func(tx repository.Tx) error {
		_, err := s.ensureSystemLists(ctx, tx, ownerID)
		return err
	}); err != nil {
		return nil, err
	}
	return s.store.ListsByOwner(ctx, ownerID)
}

// GetList returns a list with its items in order. Private lists are only
// visible to their owner; anyone else gets not found. viewerID 0 is an
// anonymous viewer.
func (s *Service) GetList(ctx context.Context, viewerID, listID int64) (list *models.List, err error) {
	defer s.observe("get_list", time.Now(), &err)

	list, err = s.store.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if list == nil || (!list.IsPublic && list.OwnerID != viewerID) {
		return nil, apperrors.NotFoundf("list %d not found", listID)
	}

	items, err := s.store.Items(ctx, listID)
	if err != nil {
		return nil, err
	}
	list.Items = derefItems(items)
	list.ItemsCount = len(items)
	return list, nil
}

// checkMutable guards generic list operations: the list must exist, belong
// to ownerID and not be a system list.
func checkMutable(list *models.List, ownerID, listID int64) error {
	if list == nil {
		return apperrors.NotFoundf("list %d not found", listID)
	}
	if list.OwnerID != ownerID {
		return apperrors.NotOwner(listID)
	}
	if list.IsSystem {
		return apperrors.ForbiddenSystemMutation(listID)
	}
	return nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperrors.Validation("title is required")
	}
	if len([]rune(title)) > maxTitleLength {
		return "", apperrors.Validationf("title must be at most %d characters", maxTitleLength)
	}
	return title, nil
}

func normalizeDescription(description *string) *string {
	if description == nil {
		return nil
	}
	d := strings.TrimSpace(*description)
	if d == "" {
		return nil
	}
	return &d
}
