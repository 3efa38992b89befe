package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Kerhoff/ShelfBoT/internal/models"
)

// ErrDuplicate is returned by inserts that hit a uniqueness constraint: a
// second system list for the same (owner, key), or a set already present in
// a list. Only the failed insert is undone; the transaction stays usable.
var ErrDuplicate = errors.New("duplicate key")

// Store is the transactional backing store of the collection engine.
type Store interface {
	// InTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise, including on ctx cancellation.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	ListsByOwner(ctx context.Context, ownerID int64) ([]*models.List, error)
	PublicLists(ctx context.Context) ([]*models.List, error)
	GetList(ctx context.Context, id int64) (*models.List, error)
	GetSystemList(ctx context.Context, ownerID int64, key models.SystemKey) (*models.List, error)
	Items(ctx context.Context, listID int64) ([]*models.ListItem, error)

	// DriftedOwners returns owners whose list positions are not 0..N-1 with
	// the system lists pinned first.
	DriftedOwners(ctx context.Context) ([]int64, error)
	// DriftedLists returns lists whose item positions are not 0..M-1.
	DriftedLists(ctx context.Context) ([]int64, error)
}

// Tx is the set of reads and writes available inside a transaction. Lock*
// methods take pessimistic row locks that are held until the transaction
// ends. Lookups return nil, nil when the row does not exist.
type Tx interface {
	GetList(ctx context.Context, id int64) (*models.List, error)
	LockOwnerLists(ctx context.Context, ownerID int64) ([]*models.List, error)
	LockList(ctx context.Context, id int64) (*models.List, error)
	LockSystemList(ctx context.Context, ownerID int64, key models.SystemKey) (*models.List, error)
	InsertList(ctx context.Context, list *models.List) (*models.List, error)
	UpdateList(ctx context.Context, list *models.List) error
	DeleteList(ctx context.Context, id int64) error
	SetListPositions(ctx context.Context, positions map[int64]int) error
	TouchList(ctx context.Context, id int64, at time.Time) error

	LockItems(ctx context.Context, listID int64) ([]*models.ListItem, error)
	InsertItem(ctx context.Context, item *models.ListItem) error
	DeleteItems(ctx context.Context, listID int64, setNums []string) error
	SetItemPositions(ctx context.Context, listID int64, positions map[string]int) error
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	Update(ctx context.Context, user *models.User) (*models.User, error)
}
