// Package ordering computes contiguous zero-based positions for sibling
// entities: lists of one owner, or items of one list. It holds no state and
// never touches storage; callers apply the returned assignments inside the
// transaction that locked the siblings.
package ordering

import (
	"cmp"
	"slices"
	"time"

	apperrors "github.com/Kerhoff/ShelfBoT/internal/errors"
)

// Entry is one sibling as seen by the allocator.
type Entry[K cmp.Ordered] struct {
	Key       K
	Position  int
	CreatedAt time.Time
}

// Mismatch describes why a requested order is not a permutation of the
// current siblings.
type Mismatch[K cmp.Ordered] struct {
	Missing    []K `json:"missing,omitempty"`
	Unknown    []K `json:"unknown,omitempty"`
	Duplicates []K `json:"duplicates,omitempty"`
}

// Append returns the position for a new sibling: one past the current
// maximum, or 0 when there are no siblings.
func Append[K cmp.Ordered](siblings []Entry[K]) int {
	next := 0
	for _, e := range siblings {
		if e.Position >= next {
			next = e.Position + 1
		}
	}
	return next
}

// Reorder validates that desired is an exact permutation of current and
// returns the position of every key (its index in desired). On mismatch it
// returns a validation error whose details are a Mismatch.
func Reorder[K cmp.Ordered](current, desired []K) (map[K]int, error) {
	members := make(map[K]struct{}, len(current))
	for _, k := range current {
		members[k] = struct{}{}
	}

	var mismatch Mismatch[K]
	positions := make(map[K]int, len(desired))
	for i, k := range desired {
		if _, dup := positions[k]; dup {
			mismatch.Duplicates = append(mismatch.Duplicates, k)
			continue
		}
		if _, ok := members[k]; !ok {
			mismatch.Unknown = append(mismatch.Unknown, k)
		}
		positions[k] = i
	}
	for _, k := range current {
		if _, ok := positions[k]; !ok {
			mismatch.Missing = append(mismatch.Missing, k)
		}
	}

	if len(mismatch.Missing) > 0 || len(mismatch.Unknown) > 0 || len(mismatch.Duplicates) > 0 {
		return nil, apperrors.ValidationWithDetails(
			"order must contain every current entry exactly once", mismatch)
	}
	return positions, nil
}

// Compact drops the removed keys and renumbers the remaining entries
// 0..N-1, keeping their relative order. Ties are broken by creation time,
// then by key.
func Compact[K cmp.Ordered](entries []Entry[K], removed ...K) []Entry[K] {
	out := make([]Entry[K], 0, len(entries))
	for _, e := range entries {
		if slices.Contains(removed, e.Key) {
			continue
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, compareEntries[K])
	for i := range out {
		out[i].Position = i
	}
	return out
}

// Positions flattens entries into a key to position map.
func Positions[K cmp.Ordered](entries []Entry[K]) map[K]int {
	m := make(map[K]int, len(entries))
	for _, e := range entries {
		m[e.Key] = e.Position
	}
	return m
}

// Changed returns the subset of target whose position differs from the
// entry's current position.
func Changed[K cmp.Ordered](entries []Entry[K], target map[K]int) map[K]int {
	out := make(map[K]int)
	for _, e := range entries {
		if p, ok := target[e.Key]; ok && p != e.Position {
			out[e.Key] = p
		}
	}
	return out
}

func compareEntries[K cmp.Ordered](a, b Entry[K]) int {
	if c := cmp.Compare(a.Position, b.Position); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.Key, b.Key)
}
