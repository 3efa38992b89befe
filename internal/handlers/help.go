package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShelfBoT/internal/telegram"
)

// HelpHandler handles the /help command
type HelpHandler struct {
	logger *logrus.Logger
}

func NewHelpHandler(logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{logger: logger}
}

func (h *HelpHandler) Handle(ctx context.Context, bot telegram.Sender, message *tgbotapi.Message, args []string) error {
	helpText := `📚 *ShelfBoT Help*

*Collection:*
• /owned [set] - Show owned sets, or mark a set as owned
• /unown <set> - Remove a set from owned
• /wish [set] - Show your wishlist, or add a set to it
• /unwish <set> - Remove a set from your wishlist

*Lists:*
• /lists - Show your lists
• /newlist <title> - Create a list
• /add <list id> <set> - Add a set to a list
• /remove <list id> <set> - Remove a set from a list

_Sets can be given as 10305-1 or just 10305._`

	if err := sendMarkdown(bot, message, helpText); err != nil {
		return err
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
	}).Info("Sent help message")

	return nil
}
