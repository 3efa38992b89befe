// Package catalog resolves raw set identifiers to the canonical form stored
// in the catalog. A set number has a base ("10305") and a variant suffix
// ("10305-1"); callers may pass either.
package catalog

import (
	"context"
	"strings"
)

// Resolver turns a raw identifier into a canonical set number.
type Resolver interface {
	// Resolve returns the canonical set number, a validation error for
	// blank input, or a not found error when the catalog has no match.
	Resolve(ctx context.Context, raw string) (string, error)
	// BaseOf returns the base form of an identifier.
	BaseOf(id string) string
}

// BaseOf strips the variant suffix: "10305-1" -> "10305".
func BaseOf(id string) string {
	base, _, _ := strings.Cut(strings.TrimSpace(id), "-")
	return strings.TrimSpace(base)
}

// IsBase reports whether id carries no variant suffix.
func IsBase(id string) bool {
	return !strings.Contains(strings.TrimSpace(id), "-")
}

// PreferredVariant is the variant chosen when only a base is given.
func PreferredVariant(base string) string {
	return base + "-1"
}

// Matches reports whether a stored canonical set number is addressed by
// identifier: an exact (case-insensitive) match, or a base-form identifier
// sharing the canonical's base.
func Matches(canonical, identifier string) bool {
	identifier = strings.TrimSpace(identifier)
	if strings.EqualFold(canonical, identifier) {
		return true
	}
	return IsBase(identifier) && strings.EqualFold(BaseOf(canonical), identifier)
}
