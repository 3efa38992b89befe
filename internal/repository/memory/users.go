package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/repository"
)

// UserRepository keeps users in memory.
type UserRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]*models.User
}

// NewUserRepository creates an empty in-memory user repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{nextID: 1, users: make(map[int64]*models.User)}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.TelegramID != nil {
		for _, u := range r.users {
			if u.TelegramID != nil && *u.TelegramID == *user.TelegramID {
				return nil, fmt.Errorf("failed to create user: %w", repository.ErrDuplicate)
			}
		}
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	stored.ID = r.nextID
	r.nextID++
	r.users[stored.ID] = &stored

	user.ID = stored.ID
	return user, nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *UserRepository) GetByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.TelegramID != nil && *u.TelegramID == telegramID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) Update(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return nil, fmt.Errorf("user with ID %d not found", user.ID)
	}
	user.UpdatedAt = time.Now()
	stored := *user
	r.users[user.ID] = &stored
	return user, nil
}
