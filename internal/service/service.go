package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShelfBoT/internal/catalog"
	apperrors "github.com/Kerhoff/ShelfBoT/internal/errors"
	"github.com/Kerhoff/ShelfBoT/internal/metrics"
	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/repository"
)

// Service is the collection engine. Every mutating method runs in a single
// store transaction that locks the siblings it renumbers.
type Service struct {
	store   repository.Store
	catalog catalog.Resolver
	users   repository.UserRepository
	logger  *logrus.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a new Service with all required dependencies. m may be nil.
func New(store repository.Store, resolver catalog.Resolver, users repository.UserRepository,
	logger *logrus.Logger, m *metrics.Metrics,
) *Service {
	return &Service{
		store:   store,
		catalog: resolver,
		users:   users,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// EnsureUser retrieves an existing user by Telegram ID, or creates a new one
// if not found. Changed profile fields are written back.
func (s *Service) EnsureUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*models.User, error) {
	username = strings.TrimSpace(username)
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup user (telegram_id=%d): %w", telegramID, err)
	}
	if user == nil {
		user = &models.User{
			TelegramID:       &telegramID,
			TelegramUsername: username,
			FirstName:        firstName,
			LastName:         lastName,
		}
		user, err = s.users.Create(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to create user (telegram_id=%d): %w", telegramID, err)
		}
		s.logger.Infof("Created new user: %s (telegram_id=%d)", user.DisplayName(), telegramID)
		return user, nil
	}

	if user.TelegramUsername == username && user.FirstName == firstName && user.LastName == lastName {
		return user, nil
	}

	user.TelegramUsername = username
	user.FirstName = firstName
	user.LastName = lastName
	user, err = s.users.Update(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to update user (telegram_id=%d): %w", telegramID, err)
	}
	s.logger.Infof("Updated user profile: %s (telegram_id=%d)", user.DisplayName(), telegramID)

	return user, nil
}

// observe records the outcome of an operation; use it deferred with a
// pointer to the named error result.
func (s *Service) observe(operation string, start time.Time, err *error) {
	s.metrics.ObserveOperation(operation, time.Since(start), *err)
	if *err != nil && apperrors.CodeOf(*err) == apperrors.CodeInternal {
		s.logger.WithError(*err).WithField("operation", operation).Error("Collection operation failed")
	}
}

func requireOwner(ownerID int64) error {
	if ownerID <= 0 {
		return apperrors.Validation("owner is required")
	}
	return nil
}

func findSystem(lists []*models.List, key models.SystemKey) *models.List {
	for _, l := range lists {
		if l.HasSystemKey(key) {
			return l
		}
	}
	return nil
}

func derefItems(items []*models.ListItem) []models.ListItem {
	out := make([]models.ListItem, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return out
}
