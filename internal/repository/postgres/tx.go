package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lib/pq"

	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/repository"
)

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) GetList(ctx context.Context, id int64) (*models.List, error) {
	query := `SELECT ` + listColumns + ` FROM lists l WHERE l.id = $1`

	return t.queryList(ctx, "get list by ID", query, id)
}

// LockOwnerLists serializes writers of the owner's list set, locks every
// list of the owner in id order, then returns them sorted by position.
// Row locks alone miss lists inserted by a transaction that committed while
// this one waited; the advisory lock is held until commit and covers them.
func (t *txStore) LockOwnerLists(ctx context.Context, ownerID int64) ([]*models.List, error) {
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, ownerID); err != nil {
		return nil, fmt.Errorf("failed to lock owner: %w", err)
	}

	query := `
		SELECT ` + listColumns + `
		FROM lists l
		WHERE l.owner_id = $1
		ORDER BY l.id
		FOR UPDATE`

	rows, err := t.tx.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock owner lists: %w", err)
	}
	defer rows.Close()

	var lists []*models.List
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		lists = append(lists, list)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(lists, func(a, b *models.List) int {
		if a.Position != b.Position {
			return a.Position - b.Position
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return int(a.ID - b.ID)
	})
	return lists, nil
}

func (t *txStore) LockList(ctx context.Context, id int64) (*models.List, error) {
	query := `SELECT ` + listColumns + ` FROM lists l WHERE l.id = $1 FOR UPDATE`

	return t.queryList(ctx, "lock list", query, id)
}

func (t *txStore) LockSystemList(ctx context.Context, ownerID int64, key models.SystemKey) (*models.List, error) {
	query := `
		SELECT ` + listColumns + `
		FROM lists l
		WHERE l.owner_id = $1 AND l.is_system AND l.system_key = $2
		FOR UPDATE`

	return t.queryList(ctx, "lock system list", query, ownerID, string(key))
}

// InsertList inserts inside a savepoint so that losing the (owner,
// system_key) race undoes only this insert.
func (t *txStore) InsertList(ctx context.Context, list *models.List) (*models.List, error) {
	query := `
		INSERT INTO lists (owner_id, title, description, is_public, position, is_system, system_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	var systemKey *string
	if list.SystemKey != nil {
		k := string(*list.SystemKey)
		systemKey = &k
	}

	err := t.withSavepoint(ctx, "insert_list", func() error {
		return t.tx.QueryRowContext(ctx, query,
			list.OwnerID,
			list.Title,
			list.Description,
			list.IsPublic,
			list.Position,
			list.IsSystem,
			systemKey,
			list.CreatedAt,
			list.UpdatedAt,
		).Scan(&list.ID, &list.CreatedAt, &list.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	return list, nil
}

func (t *txStore) UpdateList(ctx context.Context, list *models.List) error {
	query := `
		UPDATE lists
		SET title = $2, description = $3, is_public = $4, updated_at = $5
		WHERE id = $1`

	result, err := t.tx.ExecContext(ctx, query,
		list.ID,
		list.Title,
		list.Description,
		list.IsPublic,
		list.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update list: %w", err)
	}
	return expectRows(result, "list", list.ID)
}

func (t *txStore) DeleteList(ctx context.Context, id int64) error {
	result, err := t.tx.ExecContext(ctx, `DELETE FROM lists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return expectRows(result, "list", id)
}

func (t *txStore) SetListPositions(ctx context.Context, positions map[int64]int) error {
	if len(positions) == 0 {
		return nil
	}

	ids := sortedKeys(positions)
	values := make([]int64, 0, len(ids))
	for _, id := range ids {
		values = append(values, int64(positions[id]))
	}

	query := `
		UPDATE lists AS l
		SET position = v.position
		FROM unnest($1::bigint[], $2::bigint[]) AS v(id, position)
		WHERE l.id = v.id`

	if _, err := t.tx.ExecContext(ctx, query, pq.Array(ids), pq.Array(values)); err != nil {
		return fmt.Errorf("failed to set list positions: %w", err)
	}
	return nil
}

func (t *txStore) TouchList(ctx context.Context, id int64, at time.Time) error {
	if _, err := t.tx.ExecContext(ctx, `UPDATE lists SET updated_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("failed to touch list: %w", err)
	}
	return nil
}

func (t *txStore) LockItems(ctx context.Context, listID int64) ([]*models.ListItem, error) {
	query := `
		SELECT list_id, set_num, position, created_at
		FROM list_items
		WHERE list_id = $1
		ORDER BY set_num
		FOR UPDATE`

	rows, err := t.tx.QueryContext(ctx, query, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock list items: %w", err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(items, func(a, b *models.ListItem) int {
		if a.Position != b.Position {
			return a.Position - b.Position
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return items, nil
}

func (t *txStore) InsertItem(ctx context.Context, item *models.ListItem) error {
	query := `
		INSERT INTO list_items (list_id, set_num, position, created_at)
		VALUES ($1, $2, $3, $4)`

	err := t.withSavepoint(ctx, "insert_item", func() error {
		_, err := t.tx.ExecContext(ctx, query, item.ListID, item.SetNum, item.Position, item.CreatedAt)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		return fmt.Errorf("failed to add list item: %w", err)
	}
	return nil
}

func (t *txStore) DeleteItems(ctx context.Context, listID int64, setNums []string) error {
	if len(setNums) == 0 {
		return nil
	}

	query := `DELETE FROM list_items WHERE list_id = $1 AND set_num = ANY($2)`
	if _, err := t.tx.ExecContext(ctx, query, listID, pq.Array(setNums)); err != nil {
		return fmt.Errorf("failed to delete list items: %w", err)
	}
	return nil
}

func (t *txStore) SetItemPositions(ctx context.Context, listID int64, positions map[string]int) error {
	if len(positions) == 0 {
		return nil
	}

	setNums := sortedKeys(positions)
	values := make([]int64, 0, len(setNums))
	for _, setNum := range setNums {
		values = append(values, int64(positions[setNum]))
	}

	query := `
		UPDATE list_items AS li
		SET position = v.position
		FROM unnest($2::text[], $3::bigint[]) AS v(set_num, position)
		WHERE li.list_id = $1 AND li.set_num = v.set_num`

	if _, err := t.tx.ExecContext(ctx, query, listID, pq.Array(setNums), pq.Array(values)); err != nil {
		return fmt.Errorf("failed to set item positions: %w", err)
	}
	return nil
}

func (t *txStore) queryList(ctx context.Context, op, query string, args ...any) (*models.List, error) {
	list, err := scanList(t.tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return list, nil
}

// withSavepoint runs fn between SAVEPOINT and RELEASE. A unique violation
// rolls back to the savepoint and is reported as repository.ErrDuplicate.
func (t *txStore) withSavepoint(ctx context.Context, name string, fn func() error) error {
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	if err := fn(); err != nil {
		if !isUniqueViolation(err) {
			return err
		}
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("failed to roll back savepoint: %w", rbErr)
		}
		return repository.ErrDuplicate
	}

	if _, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

func expectRows(result sql.Result, entity string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s with ID %d not found", entity, id)
	}
	return nil
}
