package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShelfBoT/internal/catalog"
	apperrors "github.com/Kerhoff/ShelfBoT/internal/errors"
	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/ordering"
	"github.com/Kerhoff/ShelfBoT/internal/repository"
)

// AddToOwned marks a set as owned. The set is appended to Owned unless it is
// already there, and every variant sharing its base leaves the Wishlist, all
// in one transaction.
func (s *Service) AddToOwned(ctx context.Context, ownerID int64, raw string) (item *models.ListItem, err error) {
	defer s.observe("add_to_owned", time.Now(), &err)

	if err = requireOwner(ownerID); err != nil {
		return nil, err
	}
	setNum, err := s.catalog.Resolve(ctx, raw)
	if err != nil {
		return nil, err
	}

	var unwished []string
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		lists, err := s.ensureSystemLists(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		owned := findSystem(lists, models.SystemKeyOwned)
		wishlist := findSystem(lists, models.SystemKeyWishlist)

		ownedItems, err := tx.LockItems(ctx, owned.ID)
		if err != nil {
			return err
		}
		if item = findItem(ownedItems, setNum); item == nil {
			if item, err = s.appendItem(ctx, tx, owned.ID, ownedItems, setNum); err != nil {
				return err
			}
		}

		wishItems, err := tx.LockItems(ctx, wishlist.ID)
		if err != nil {
			return err
		}
		base := catalog.BaseOf(setNum)
		unwished, err = s.removeMatching(ctx, tx, wishlist.ID, wishItems, func(i *models.ListItem) bool {
			return strings.EqualFold(catalog.BaseOf(i.SetNum), base)
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"set_num":  setNum,
		"position": item.Position,
		"unwished": unwished,
	}).Info("Added set to owned")
	return item, nil
}

// AddToWishlist appends a set to the Wishlist unless it is already there. A
// set whose base is owned cannot be wishlisted.
func (s *Service) AddToWishlist(ctx context.Context, ownerID int64, raw string) (item *models.ListItem, err error) {
	defer s.observe("add_to_wishlist", time.Now(), &err)

	if err = requireOwner(ownerID); err != nil {
		return nil, err
	}
	setNum, err := s.catalog.Resolve(ctx, raw)
	if err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		lists, err := s.ensureSystemLists(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		owned := findSystem(lists, models.SystemKeyOwned)
		wishlist := findSystem(lists, models.SystemKeyWishlist)

		ownedItems, err := tx.LockItems(ctx, owned.ID)
		if err != nil {
			return err
		}
		base := catalog.BaseOf(setNum)
		for _, i := range ownedItems {
			if strings.EqualFold(catalog.BaseOf(i.SetNum), base) {
				return apperrors.Conflictf("set %s is already owned", setNum)
			}
		}

		wishItems, err := tx.LockItems(ctx, wishlist.ID)
		if err != nil {
			return err
		}
		if item = findItem(wishItems, setNum); item != nil {
			return nil
		}
		item, err = s.appendItem(ctx, tx, wishlist.ID, wishItems, setNum)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"set_num":  setNum,
		"position": item.Position,
	}).Info("Added set to wishlist")
	return item, nil
}

// RemoveFromOwned removes a set from Owned. It is a no-op when the set or
// the list is absent.
func (s *Service) RemoveFromOwned(ctx context.Context, ownerID int64, identifier string) (err error) {
	defer s.observe("remove_from_owned", time.Now(), &err)

	return s.removeFromSystem(ctx, ownerID, models.SystemKeyOwned, identifier)
}

// RemoveFromWishlist removes a set from the Wishlist. It is a no-op when the
// set or the list is absent.
func (s *Service) RemoveFromWishlist(ctx context.Context, ownerID int64, identifier string) (err error) {
	defer s.observe("remove_from_wishlist", time.Now(), &err)

	return s.removeFromSystem(ctx, ownerID, models.SystemKeyWishlist, identifier)
}

// ReorderOwned sets the order of the Owned list.
func (s *Service) ReorderOwned(ctx context.Context, ownerID int64, identifiers []string) (items []*models.ListItem, err error) {
	defer s.observe("reorder_owned", time.Now(), &err)

	return s.reorderSystem(ctx, ownerID, models.SystemKeyOwned, identifiers)
}

// ReorderWishlist sets the order of the Wishlist.
func (s *Service) ReorderWishlist(ctx context.Context, ownerID int64, identifiers []string) (items []*models.ListItem, err error) {
	defer s.observe("reorder_wishlist", time.Now(), &err)

	return s.reorderSystem(ctx, ownerID, models.SystemKeyWishlist, identifiers)
}

// Owned returns the owner's owned sets in order.
func (s *Service) Owned(ctx context.Context, ownerID int64) (items []*models.ListItem, err error) {
	defer s.observe("owned", time.Now(), &err)

	return s.systemItems(ctx, ownerID, models.SystemKeyOwned)
}

// Wishlist returns the owner's wishlisted sets in order.
func (s *Service) Wishlist(ctx context.Context, ownerID int64) (items []*models.ListItem, err error) {
	defer s.observe("wishlist", time.Now(), &err)

	return s.systemItems(ctx, ownerID, models.SystemKeyWishlist)
}

func (s *Service) removeFromSystem(ctx context.Context, ownerID int64, key models.SystemKey, identifier string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return apperrors.Validation("set_num is required")
	}

	var removed []string
	err := s.store.InTx(ctx, func(tx repository.Tx) error {
		list, err := tx.LockSystemList(ctx, ownerID, key)
		if err != nil || list == nil {
			return err
		}
		items, err := tx.LockItems(ctx, list.ID)
		if err != nil {
			return err
		}
		removed, err = s.removeMatching(ctx, tx, list.ID, items, func(i *models.ListItem) bool {
			return catalog.Matches(i.SetNum, identifier)
		})
		return err
	})
	if err != nil {
		return err
	}

	if len(removed) > 0 {
		s.logger.WithFields(logrus.Fields{
			"owner_id": ownerID,
			"key":      key,
			"removed":  removed,
		}).Info("Removed set from system list")
	}
	return nil
}

func (s *Service) reorderSystem(ctx context.Context, ownerID int64, key models.SystemKey, identifiers []string) ([]*models.ListItem, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	setNums, err := s.resolveAll(ctx, identifiers)
	if err != nil {
		return nil, err
	}

	items := []*models.ListItem{}
	err = s.store.InTx(ctx, func(tx repository.Tx) error {
		list, err := tx.LockSystemList(ctx, ownerID, key)
		if err != nil {
			return err
		}
		if list == nil {
			// Not created yet: only an empty order is a permutation.
			_, err := ordering.Reorder(nil, setNums)
			return err
		}
		items, err = s.reorderItems(ctx, tx, list.ID, setNums)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"owner_id": ownerID,
		"key":      key,
		"count":    len(items),
	}).Info("Reordered system list")
	return items, nil
}

func (s *Service) systemItems(ctx context.Context, ownerID int64, key models.SystemKey) ([]*models.ListItem, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	list, err := s.store.GetSystemList(ctx, ownerID, key)
	if err != nil {
		return nil, err
	}
	if list == nil {
		return []*models.ListItem{}, nil
	}
	return s.store.Items(ctx, list.ID)
}

func findItem(items []*models.ListItem, setNum string) *models.ListItem {
	for _, item := range items {
		if strings.EqualFold(item.SetNum, setNum) {
			return item
		}
	}
	return nil
}
