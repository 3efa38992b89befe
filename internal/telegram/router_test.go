package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Kerhoff/ShelfBoT/internal/errors"
	"github.com/Kerhoff/ShelfBoT/pkg/logger"
)

type recordingSender struct {
	texts []string
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.texts = append(s.texts, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

func (s *recordingSender) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type handlerFunc func(ctx context.Context, bot Sender, message *tgbotapi.Message, args []string) error

func (f handlerFunc) Handle(ctx context.Context, bot Sender, message *tgbotapi.Message, args []string) error {
	return f(ctx, bot, message, args)
}

func command(text string) *tgbotapi.Message {
	length := len(text)
	for i, r := range text {
		if r == ' ' {
			length = i
			break
		}
	}
	return &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 42, UserName: "ada"},
		Chat:      &tgbotapi.Chat{ID: 100},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func TestRouterDispatchesArguments(t *testing.T) {
	r := NewRouter(logger.Discard())
	var got []string
	r.RegisterCommand("add", "Add a set", handlerFunc(func(_ context.Context, _ Sender, _ *tgbotapi.Message, args []string) error {
		got = args
		return nil
	}))

	bot := &recordingSender{}
	r.HandleMessage(context.Background(), bot, command("/add 3  10305"))

	assert.Equal(t, []string{"3", "10305"}, got)
	assert.Empty(t, bot.texts)
	require.Len(t, r.Commands(), 1)
	assert.Equal(t, "add", r.Commands()[0].Command)
}

func TestRouterUnknownCommand(t *testing.T) {
	r := NewRouter(logger.Discard())
	bot := &recordingSender{}

	r.HandleMessage(context.Background(), bot, command("/nope"))

	require.Len(t, bot.texts, 1)
	assert.Contains(t, bot.texts[0], "Unknown command")
}

func TestRouterReportsErrors(t *testing.T) {
	r := NewRouter(logger.Discard())
	r.RegisterCommand("conflict", "", handlerFunc(func(context.Context, Sender, *tgbotapi.Message, []string) error {
		return apperrors.Conflictf("set %s is already owned", "10305-1")
	}))
	r.RegisterCommand("broken", "", handlerFunc(func(context.Context, Sender, *tgbotapi.Message, []string) error {
		return errors.New("db down")
	}))

	bot := &recordingSender{}
	r.HandleMessage(context.Background(), bot, command("/conflict"))
	r.HandleMessage(context.Background(), bot, command("/broken"))

	require.Len(t, bot.texts, 2)
	assert.Equal(t, "❌ set 10305-1 is already owned", bot.texts[0])
	assert.NotContains(t, bot.texts[1], "db down")
}

func TestRouterIgnoresPlainText(t *testing.T) {
	r := NewRouter(logger.Discard())
	bot := &recordingSender{}

	r.HandleMessage(context.Background(), bot, &tgbotapi.Message{
		From: &tgbotapi.User{ID: 42},
		Chat: &tgbotapi.Chat{ID: 100},
		Text: "hello",
	})
	assert.Empty(t, bot.texts)
}
