package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Kerhoff/ShelfBoT/internal/errors"
	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/repository"
)

var listRowColumns = []string{
	"id", "owner_id", "title", "description", "is_public", "position",
	"is_system", "system_key", "created_at", "updated_at",
}

func newMock(t *testing.T) (repository.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewStore(db), mock
}

func TestInTxCommits(t *testing.T) {
	s, mock := newMock(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE lists SET updated_at = $2 WHERE id = $1`)).
		WithArgs(int64(7), at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.InTx(context.Background(), func(tx repository.Tx) error {
		return tx.TouchList(context.Background(), 7, at)
	})
	require.NoError(t, err)
}

func TestInTxRollsBackOnError(t *testing.T) {
	s, mock := newMock(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(tx repository.Tx) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
}

func TestLockOwnerListsSortsByPosition(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(listRowColumns).
		AddRow(int64(1), int64(9), "Owned", nil, false, 0, true, "owned", now, now).
		AddRow(int64(2), int64(9), "Castles", "towers", true, 2, false, nil, now, now).
		AddRow(int64(3), int64(9), "Wishlist", nil, false, 1, true, "wishlist", now, now)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FROM lists l\s+WHERE l.owner_id = \$1\s+ORDER BY l.id\s+FOR UPDATE`).
		WithArgs(int64(9)).
		WillReturnRows(rows)
	mock.ExpectCommit()

	var lists []*models.List
	err := s.InTx(context.Background(), func(tx repository.Tx) error {
		var err error
		lists, err = tx.LockOwnerLists(context.Background(), 9)
		return err
	})
	require.NoError(t, err)
	require.Len(t, lists, 3)

	assert.True(t, lists[0].HasSystemKey(models.SystemKeyOwned))
	assert.True(t, lists[1].HasSystemKey(models.SystemKeyWishlist))
	assert.Equal(t, "Castles", lists[2].Title)
	require.NotNil(t, lists[2].Description)
	assert.Equal(t, "towers", *lists[2].Description)
	assert.Nil(t, lists[2].SystemKey)
}

func TestLockOwnerListsTakesOwnerLockBeforeRows(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(int64(9)).
		WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(tx repository.Tx) error {
		_, err := tx.LockOwnerLists(context.Background(), 9)
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to lock owner")
}

func TestInsertListDuplicateRollsBackSavepoint(t *testing.T) {
	s, mock := newMock(t)
	key := models.SystemKeyOwned

	mock.ExpectBegin()
	mock.ExpectExec(`^SAVEPOINT insert_list$`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO lists`)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "ux_lists_owner_system_key"})
	mock.ExpectExec(`^ROLLBACK TO SAVEPOINT insert_list$`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(tx repository.Tx) error {
		_, err := tx.InsertList(context.Background(), &models.List{
			OwnerID: 9, Title: key.Title(), IsSystem: true, SystemKey: &key,
		})
		return err
	})
	require.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestInsertListReturnsID(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`^SAVEPOINT insert_list$`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO lists`)).
		WithArgs(int64(9), "Trains", nil, true, 2, false, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(41), now, now))
	mock.ExpectExec(`^RELEASE SAVEPOINT insert_list$`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var created *models.List
	err := s.InTx(context.Background(), func(tx repository.Tx) error {
		var err error
		created, err = tx.InsertList(context.Background(), &models.List{
			OwnerID: 9, Title: "Trains", IsPublic: true, Position: 2, CreatedAt: now, UpdatedAt: now,
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(41), created.ID)
}

func TestInsertItemOtherErrorsAreWrapped(t *testing.T) {
	s, mock := newMock(t)
	broken := errors.New("connection reset")

	mock.ExpectBegin()
	mock.ExpectExec(`^SAVEPOINT insert_item$`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO list_items`)).WillReturnError(broken)
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(tx repository.Tx) error {
		return tx.InsertItem(context.Background(), &models.ListItem{ListID: 3, SetNum: "10305-1"})
	})
	require.ErrorIs(t, err, broken)
	assert.NotErrorIs(t, err, repository.ErrDuplicate)
}

func TestSetListPositionsSingleStatement(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`FROM unnest($1::bigint[], $2::bigint[]) AS v(id, position)`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := s.InTx(context.Background(), func(tx repository.Tx) error {
		ctx := context.Background()
		if err := tx.SetListPositions(ctx, nil); err != nil {
			return err
		}
		return tx.SetListPositions(ctx, map[int64]int{4: 2, 5: 3})
	})
	require.NoError(t, err)
}

func TestDeleteListMissingRow(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM lists WHERE id = $1`)).
		WithArgs(int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.InTx(context.Background(), func(tx repository.Tx) error {
		return tx.DeleteList(context.Background(), 12)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list with ID 12 not found")
}

func TestGetListNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE l.id = $1`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(append(listRowColumns, "items_count")))

	list, err := s.GetList(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, list)
}

func TestListsByOwnerCountsItems(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY l.position ASC, l.created_at ASC, l.id ASC`)).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(append(listRowColumns, "items_count")).
			AddRow(int64(1), int64(9), "Owned", nil, false, 0, true, "owned", now, now, 3))

	lists, err := s.ListsByOwner(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, 3, lists[0].ItemsCount)
}

func TestDriftedOwners(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`SELECT owner_id\s+FROM lists\s+GROUP BY owner_id`).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(int64(2)).AddRow(int64(8)))

	owners, err := s.DriftedOwners(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 8}, owners)
}

func TestCatalogResolver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewCatalogResolver(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sets`)).
		WithArgs("10305", "10305", "10305-1").
		WillReturnRows(sqlmock.NewRows([]string{"set_num"}).AddRow("10305-1"))

	got, err := r.Resolve(context.Background(), " 10305 ")
	require.NoError(t, err)
	assert.Equal(t, "10305-1", got)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM sets`)).
		WithArgs("99999-9", "99999", "99999-1").
		WillReturnRows(sqlmock.NewRows([]string{"set_num"}))

	_, err = r.Resolve(context.Background(), "99999-9")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	_, err = r.Resolve(context.Background(), "   ")
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}
