package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShelfBoT/internal/service"
	"github.com/Kerhoff/ShelfBoT/internal/telegram"
)

// StartHandler handles the /start command. It registers the user and
// creates their Owned and Wishlist lists.
type StartHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewStartHandler creates a new start command handler
func NewStartHandler(svc *service.Service, logger *logrus.Logger) *StartHandler {
	return &StartHandler{svc: svc, logger: logger}
}

// Handle processes the /start command
func (h *StartHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	ownerID, err := ownerOf(ctx, h.svc, message)
	if err != nil {
		return err
	}
	if _, _, err := h.svc.EnsureSystemLists(ctx, ownerID); err != nil {
		return err
	}

	welcomeText := `🧱 *Welcome to ShelfBoT!*

I keep track of the sets you own, the ones you want, and any lists you curate.

• /owned 10305 - Mark a set as owned
• /wish 21318 - Add a set to your wishlist
• /newlist Castles - Start a custom list
• /help - Show every command

Your *Owned* and *Wishlist* lists are ready.`

	if err := sendMarkdown(bot, message, welcomeText); err != nil {
		return err
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id":  message.Chat.ID,
		"user_id":  message.From.ID,
		"owner_id": ownerID,
	}).Info("Sent start message")

	return nil
}
