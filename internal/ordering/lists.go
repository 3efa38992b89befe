package ordering

import (
	"slices"

	"github.com/Kerhoff/ShelfBoT/internal/models"
)

// ListEntries converts lists into allocator entries keyed by list ID.
func ListEntries(lists []*models.List) []Entry[int64] {
	entries := make([]Entry[int64], 0, len(lists))
	for _, l := range lists {
		entries = append(entries, Entry[int64]{Key: l.ID, Position: l.Position, CreatedAt: l.CreatedAt})
	}
	return entries
}

// SplitLists separates system lists (in pinned order) from custom lists (in
// their current order).
func SplitLists(lists []*models.List) (system, custom []*models.List) {
	for _, l := range lists {
		if l.IsSystem && l.SystemKey != nil && l.SystemKey.Valid() {
			system = append(system, l)
		} else {
			custom = append(custom, l)
		}
	}
	slices.SortStableFunc(system, func(a, b *models.List) int {
		return a.SystemKey.Rank() - b.SystemKey.Rank()
	})
	customEntries := Compact(ListEntries(custom))
	byID := make(map[int64]*models.List, len(custom))
	for _, l := range custom {
		byID[l.ID] = l
	}
	custom = make([]*models.List, 0, len(customEntries))
	for _, e := range customEntries {
		custom = append(custom, byID[e.Key])
	}
	return system, custom
}

// NormalizeLists returns contiguous positions for all of an owner's lists:
// system lists first in pinned order, then custom lists in their current
// relative order.
func NormalizeLists(lists []*models.List) map[int64]int {
	system, custom := SplitLists(lists)
	positions := make(map[int64]int, len(lists))
	for i, l := range system {
		positions[l.ID] = i
	}
	for i, l := range custom {
		positions[l.ID] = len(system) + i
	}
	return positions
}

// ReorderLists applies a caller-chosen order to the custom lists.
// orderedIDs must be an exact permutation of the custom list IDs; system
// lists keep their pinned positions and custom positions are offset by the
// number of system lists.
func ReorderLists(lists []*models.List, orderedIDs []int64) (map[int64]int, error) {
	system, custom := SplitLists(lists)

	current := make([]int64, 0, len(custom))
	for _, l := range custom {
		current = append(current, l.ID)
	}
	perm, err := Reorder(current, orderedIDs)
	if err != nil {
		return nil, err
	}

	positions := make(map[int64]int, len(lists))
	for i, l := range system {
		positions[l.ID] = i
	}
	for id, p := range perm {
		positions[id] = len(system) + p
	}
	return positions, nil
}
