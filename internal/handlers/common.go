package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Kerhoff/ShelfBoT/internal/models"
	"github.com/Kerhoff/ShelfBoT/internal/service"
	"github.com/Kerhoff/ShelfBoT/internal/telegram"
)

// ownerOf registers the sender on first contact and returns their user ID,
// which doubles as the list owner ID.
func ownerOf(ctx context.Context, svc *service.Service, message *tgbotapi.Message) (int64, error) {
	from := message.From
	user, err := svc.EnsureUser(ctx, from.ID, from.UserName, from.FirstName, from.LastName)
	if err != nil {
		return 0, fmt.Errorf("ensure user: %w", err)
	}
	return user.ID, nil
}

// sendMarkdown sends text to the chat the message came from.
func sendMarkdown(bot telegram.Sender, message *tgbotapi.Message, text string) error {
	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func usage(bot telegram.Sender, message *tgbotapi.Message, example string) error {
	return sendMarkdown(bot, message, "❌ Missing arguments.\nUsage: `"+example+"`")
}

func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, text)
}

func formatItems(title string, items []*models.ListItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", escape(title))
	if len(items) == 0 {
		b.WriteString("_empty_")
		return b.String()
	}
	for _, item := range items {
		fmt.Fprintf(&b, "\n%d. %s", item.Position+1, escape(item.SetNum))
	}
	return b.String()
}
