package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Kerhoff/ShelfBoT/internal/errors"
	"github.com/Kerhoff/ShelfBoT/internal/service"
	"github.com/Kerhoff/ShelfBoT/internal/telegram"
)

// ---------------------------------------------------------------------------
// ListsHandler – /lists
// ---------------------------------------------------------------------------

// ListsHandler shows the sender's lists in order.
type ListsHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewListsHandler creates a new ListsHandler.
func NewListsHandler(svc *service.Service, logger *logrus.Logger) *ListsHandler {
	return &ListsHandler{svc: svc, logger: logger}
}

// Handle processes the /lists command.
func (h *ListsHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	ownerID, err := ownerOf(ctx, h.svc, message)
	if err != nil {
		return err
	}

	lists, err := h.svc.ListsForOwner(ctx, ownerID)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("📋 *Your lists*\n")
	for _, l := range lists {
		visibility := "🔒"
		if l.IsPublic {
			visibility = "🌐"
		}
		fmt.Fprintf(&b, "\n%s *#%d* %s (%d)", visibility, l.ID, escape(l.Title), l.ItemsCount)
	}

	return sendMarkdown(bot, message, b.String())
}

// ---------------------------------------------------------------------------
// NewListHandler – /newlist <title>
// ---------------------------------------------------------------------------

// NewListHandler creates a private custom list.
type NewListHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewNewListHandler creates a new NewListHandler.
func NewNewListHandler(svc *service.Service, logger *logrus.Logger) *NewListHandler {
	return &NewListHandler{svc: svc, logger: logger}
}

// Handle processes the /newlist command.
func (h *NewListHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		return usage(bot, message, "/newlist Modular buildings")
	}

	ownerID, err := ownerOf(ctx, h.svc, message)
	if err != nil {
		return err
	}

	list, err := h.svc.CreateList(ctx, ownerID, strings.Join(args, " "), nil, false)
	if err != nil {
		return err
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"list_id": list.ID,
	}).Info("List created from chat")

	return sendMarkdown(bot, message, fmt.Sprintf("📝 Created *#%d* %s", list.ID, escape(list.Title)))
}

// ---------------------------------------------------------------------------
// ListItemHandler – /add <list id> <set>, /remove <list id> <set>
// ---------------------------------------------------------------------------

// ListItemHandler adds sets to or removes sets from a list by ID.
type ListItemHandler struct {
	svc    *service.Service
	logger *logrus.Logger
	remove bool
}

// NewAddHandler creates the /add handler.
func NewAddHandler(svc *service.Service, logger *logrus.Logger) *ListItemHandler {
	return &ListItemHandler{svc: svc, logger: logger}
}

// NewRemoveHandler creates the /remove handler.
func NewRemoveHandler(svc *service.Service, logger *logrus.Logger) *ListItemHandler {
	return &ListItemHandler{svc: svc, logger: logger, remove: true}
}

// Handle processes the command.
func (h *ListItemHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	if len(args) < 2 {
		if h.remove {
			return usage(bot, message, "/remove 3 10305")
		}
		return usage(bot, message, "/add 3 10305")
	}

	listID, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || listID <= 0 {
		return apperrors.Validationf("%q is not a list id", args[0])
	}

	ownerID, err := ownerOf(ctx, h.svc, message)
	if err != nil {
		return err
	}

	var done []string
	for _, raw := range args[1:] {
		if h.remove {
			removed, err := h.svc.RemoveItem(ctx, ownerID, listID, raw)
			if err != nil {
				return err
			}
			done = append(done, removed...)
			continue
		}
		item, err := h.svc.AddItem(ctx, ownerID, listID, raw)
		if err != nil {
			return err
		}
		done = append(done, item.SetNum)
	}

	verb := "Added to"
	if h.remove {
		verb = "Removed from"
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id":  message.Chat.ID,
		"owner_id": ownerID,
		"list_id":  listID,
		"sets":     done,
		"removed":  h.remove,
	}).Info("List items changed from chat")

	return sendMarkdown(bot, message, fmt.Sprintf("✅ %s *#%d*: %s", verb, listID, escape(strings.Join(done, ", "))))
}
