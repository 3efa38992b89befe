package catalog

import (
	"context"
	"slices"
	"strings"

	apperrors "github.com/Kerhoff/ShelfBoT/internal/errors"
)

// Static is an in-process resolver over a fixed set of canonical numbers.
// It backs the memory store and tests.
type Static struct {
	sets []string
}

// NewStatic creates a resolver that knows the given canonical set numbers.
func NewStatic(setNums ...string) *Static {
	sets := slices.Clone(setNums)
	slices.SortFunc(sets, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return &Static{sets: sets}
}

// Resolve follows the catalog rules: exact match, then "<base>-1", then the
// lowest variant sharing the base.
func (s *Static) Resolve(_ context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	base := BaseOf(raw)
	if raw == "" || base == "" {
		return "", apperrors.Validation("set_num is required")
	}

	for _, set := range s.sets {
		if strings.EqualFold(set, raw) {
			return set, nil
		}
	}
	preferred := PreferredVariant(base)
	for _, set := range s.sets {
		if strings.EqualFold(set, preferred) {
			return set, nil
		}
	}
	for _, set := range s.sets {
		if strings.EqualFold(BaseOf(set), base) {
			return set, nil
		}
	}
	return "", apperrors.NotFoundf("set %q not found", raw)
}

// BaseOf returns the base form of id.
func (s *Static) BaseOf(id string) string {
	return BaseOf(id)
}
