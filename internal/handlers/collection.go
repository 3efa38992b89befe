package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/service"
	"github.com/Kerhoff/ShelfBoT/internal/telegram"
)

// ---------------------------------------------------------------------------
// CollectionHandler – /owned [set], /wish [set]
// ---------------------------------------------------------------------------

// CollectionHandler shows a system list when called without arguments and
// adds the given sets to it otherwise.
type CollectionHandler struct {
	svc    *service.Service
	logger *logrus.Logger
	key    models.SystemKey
}

// NewOwnedHandler creates the /owned handler.
func NewOwnedHandler(svc *service.Service, logger *logrus.Logger) *CollectionHandler {
	return &CollectionHandler{svc: svc, logger: logger, key: models.SystemKeyOwned}
}

// NewWishHandler creates the /wish handler.
func NewWishHandler(svc *service.Service, logger *logrus.Logger) *CollectionHandler {
	return &CollectionHandler{svc: svc, logger: logger, key: models.SystemKeyWishlist}
}

// Handle processes the command.
func (h *CollectionHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	ownerID, err := ownerOf(ctx, h.svc, message)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		items, err := h.items(ctx, ownerID)
		if err != nil {
			return err
		}
		return sendMarkdown(bot, message, formatItems(h.key.Title(), items))
	}

	var added []string
	for _, raw := range args {
		item, err := h.add(ctx, ownerID, raw)
		if err != nil {
			return err
		}
		added = append(added, escape(item.SetNum))
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id":  message.Chat.ID,
		"owner_id": ownerID,
		"key":      h.key,
		"sets":     args,
	}).Info("Sets added to collection")

	return sendMarkdown(bot, message, fmt.Sprintf("✅ Added to *%s*: %s", h.key.Title(), strings.Join(added, ", ")))
}

func (h *CollectionHandler) items(ctx context.Context, ownerID int64) ([]*models.ListItem, error) {
	if h.key == models.SystemKeyOwned {
		return h.svc.Owned(ctx, ownerID)
	}
	return h.svc.Wishlist(ctx, ownerID)
}

func (h *CollectionHandler) add(ctx context.Context, ownerID int64, raw string) (*models.ListItem, error) {
	if h.key == models.SystemKeyOwned {
		return h.svc.AddToOwned(ctx, ownerID, raw)
	}
	return h.svc.AddToWishlist(ctx, ownerID, raw)
}

// ---------------------------------------------------------------------------
// UncollectHandler – /unown <set>, /unwish <set>
// ---------------------------------------------------------------------------

// UncollectHandler removes sets from a system list.
type UncollectHandler struct {
	svc    *service.Service
	logger *logrus.Logger
	key    models.SystemKey
}

// NewUnownHandler creates the /unown handler.
func NewUnownHandler(svc *service.Service, logger *logrus.Logger) *UncollectHandler {
	return &UncollectHandler{svc: svc, logger: logger, key: models.SystemKeyOwned}
}

// NewUnwishHandler creates the /unwish handler.
func NewUnwishHandler(svc *service.Service, logger *logrus.Logger) *UncollectHandler {
	return &UncollectHandler{svc: svc, logger: logger, key: models.SystemKeyWishlist}
}

// Handle processes the command.
func (h *UncollectHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		return usage(bot, message, "/"+h.command()+" 10305")
	}

	ownerID, err := ownerOf(ctx, h.svc, message)
	if err != nil {
		return err
	}

	for _, identifier := range args {
		if h.key == models.SystemKeyOwned {
			err = h.svc.RemoveFromOwned(ctx, ownerID, identifier)
		} else {
			err = h.svc.RemoveFromWishlist(ctx, ownerID, identifier)
		}
		if err != nil {
			return err
		}
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id":  message.Chat.ID,
		"owner_id": ownerID,
		"key":      h.key,
		"sets":     args,
	}).Info("Sets removed from collection")

	return sendMarkdown(bot, message, fmt.Sprintf("🗑 Removed from *%s*: %s", h.key.Title(), escape(strings.Join(args, ", "))))
}

func (h *UncollectHandler) command() string {
	if h.key == models.SystemKeyOwned {
		return "unown"
	}
	return "unwish"
}
