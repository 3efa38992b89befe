package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Kerhoff/ShelfBoT/internal/catalog"
	apperrors "github.com/Kerhoff/ShelfBoT/internal/errors"
)

type catalogResolver struct {
	db *sql.DB
}

// NewCatalogResolver resolves set numbers against the sets table.
func NewCatalogResolver(db *sql.DB) catalog.Resolver {
	return &catalogResolver{db: db}
}

// Resolve prefers an exact match, then "<base>-1", then the lowest variant
// sharing the base.
func (r *catalogResolver) Resolve(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	base := catalog.BaseOf(raw)
	if raw == "" || base == "" {
		return "", apperrors.Validation("set_num is required")
	}

	query := `
		SELECT set_num
		FROM sets
		WHERE lower(set_num) = lower($1)
			OR lower(split_part(set_num, '-', 1)) = lower($2)
		ORDER BY
			(lower(set_num) = lower($1)) DESC,
			(lower(set_num) = lower($3)) DESC,
			lower(set_num) ASC
		LIMIT 1`

	var canonical string
	err := r.db.QueryRowContext(ctx, query, raw, base, catalog.PreferredVariant(base)).Scan(&canonical)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperrors.NotFoundf("set %q not found", raw)
		}
		return "", fmt.Errorf("failed to resolve set number: %w", err)
	}

	return canonical, nil
}

func (r *catalogResolver) BaseOf(id string) string {
	return catalog.BaseOf(id)
}
