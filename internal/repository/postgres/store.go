package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/lib/pq"

	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/repository"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for unique index hits.
const uniqueViolation = pq.ErrorCode("23505")

const listColumns = `l.id, l.owner_id, l.title, l.description, l.is_public, l.position,
	l.is_system, l.system_key, l.created_at, l.updated_at`

const itemCountColumn = `(SELECT COUNT(*) FROM list_items li WHERE li.list_id = l.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

type store struct {
	db *sql.DB
}

// NewStore creates a PostgreSQL-backed collection store. Writes run in READ
// COMMITTED transactions and serialize on SELECT ... FOR UPDATE row locks.
func NewStore(db *sql.DB) repository.Store {
	return &store{db: db}
}

func (s *store) InTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *store) ListsByOwner(ctx context.Context, ownerID int64) ([]*models.List, error) {
	query := `
		SELECT ` + listColumns + `, ` + itemCountColumn + `
		FROM lists l
		WHERE l.owner_id = $1
		ORDER BY l.position ASC, l.created_at ASC, l.id ASC`

	return s.queryLists(ctx, query, ownerID)
}

func (s *store) PublicLists(ctx context.Context) ([]*models.List, error) {
	query := `
		SELECT ` + listColumns + `, ` + itemCountColumn + `
		FROM lists l
		WHERE l.is_public
		ORDER BY l.owner_id ASC, l.position ASC, l.created_at ASC, l.id ASC`

	return s.queryLists(ctx, query)
}

func (s *store) GetList(ctx context.Context, id int64) (*models.List, error) {
	query := `
		SELECT ` + listColumns + `, ` + itemCountColumn + `
		FROM lists l
		WHERE l.id = $1`

	list, err := scanCountedList(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get list by ID: %w", err)
	}
	return list, nil
}

func (s *store) GetSystemList(ctx context.Context, ownerID int64, key models.SystemKey) (*models.List, error) {
	query := `
		SELECT ` + listColumns + `, ` + itemCountColumn + `
		FROM lists l
		WHERE l.owner_id = $1 AND l.is_system AND l.system_key = $2`

	list, err := scanCountedList(s.db.QueryRowContext(ctx, query, ownerID, string(key)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s list: %w", key, err)
	}
	return list, nil
}

func (s *store) Items(ctx context.Context, listID int64) ([]*models.ListItem, error) {
	query := `
		SELECT list_id, set_num, position, created_at
		FROM list_items
		WHERE list_id = $1
		ORDER BY position ASC, created_at ASC, set_num ASC`

	rows, err := s.db.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query list items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (s *store) DriftedOwners(ctx context.Context) ([]int64, error) {
	query := `
		SELECT owner_id
		FROM lists
		GROUP BY owner_id
		HAVING MIN(position) <> 0
			OR MAX(position) <> COUNT(*) - 1
			OR COUNT(DISTINCT position) <> COUNT(*)
			OR COUNT(*) FILTER (WHERE system_key = 'owned' AND position <> 0) > 0
			OR COUNT(*) FILTER (WHERE system_key = 'wishlist' AND position > 1) > 0
		ORDER BY owner_id`

	return s.queryIDs(ctx, query)
}

func (s *store) DriftedLists(ctx context.Context) ([]int64, error) {
	query := `
		SELECT list_id
		FROM list_items
		GROUP BY list_id
		HAVING MIN(position) <> 0
			OR MAX(position) <> COUNT(*) - 1
			OR COUNT(DISTINCT position) <> COUNT(*)
		ORDER BY list_id`

	return s.queryIDs(ctx, query)
}

func (s *store) queryLists(ctx context.Context, query string, args ...any) ([]*models.List, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lists: %w", err)
	}
	defer rows.Close()

	var lists []*models.List
	for rows.Next() {
		list, err := scanCountedList(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		lists = append(lists, list)
	}
	return lists, rows.Err()
}

func (s *store) queryIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query drifted positions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanList(row rowScanner, extra ...any) (*models.List, error) {
	var (
		list        models.List
		description sql.NullString
		systemKey   sql.NullString
	)
	dest := []any{
		&list.ID,
		&list.OwnerID,
		&list.Title,
		&description,
		&list.IsPublic,
		&list.Position,
		&list.IsSystem,
		&systemKey,
		&list.CreatedAt,
		&list.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if description.Valid {
		list.Description = &description.String
	}
	if systemKey.Valid {
		key := models.SystemKey(systemKey.String)
		list.SystemKey = &key
	}
	return &list, nil
}

func scanCountedList(row rowScanner) (*models.List, error) {
	var count int
	list, err := scanList(row, &count)
	if err != nil {
		return nil, err
	}
	list.ItemsCount = count
	return list, nil
}

func scanItems(rows *sql.Rows) ([]*models.ListItem, error) {
	var items []*models.ListItem
	for rows.Next() {
		item := &models.ListItem{}
		if err := rows.Scan(&item.ListID, &item.SetNum, &item.Position, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan list item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// sortedKeys returns map keys in ascending order so that bulk updates touch
// rows in a deterministic order.
func sortedKeys[K int64 | string](m map[K]int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
