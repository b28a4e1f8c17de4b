// Package telegram связывает Bot API с обработчиками бота.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/Totarae/psabot/internal/auth"
	"github.com/Totarae/psabot/internal/bot"
)

// ErrEmptyChat не задан чат для проверки участников.
var ErrEmptyChat = errors.New("chat is not configured")

// API часть tgbotapi.BotAPI, которой пользуется клиент.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Handler обработчики входящих событий.
type Handler interface {
	HandleMessage(ctx context.Context, msg bot.Message)
	HandleCallback(ctx context.Context, cb bot.Callback)
}

// ChatRef чат по числовому id или по @username.
type ChatRef struct {
	ID       int64
	Username string
}

// ParseChat разбирает значение CHAT.
func ParseChat(s string) (ChatRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ChatRef{}, ErrEmptyChat
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ChatRef{ID: id}, nil
	}
	if !strings.HasPrefix(s, "@") {
		s = "@" + s
	}
	return ChatRef{Username: s}, nil
}

// Client реализует отправку сообщений и проверку участников через Bot API.
type Client struct {
	API    API
	Chat   ChatRef
	Logger *zap.Logger
}

func NewClient(api API, chat ChatRef, logger *zap.Logger) *Client {
	return &Client{API: api, Chat: chat, Logger: logger}
}

// Reply отвечает на сообщение текстом в HTML, с меню, если оно есть.
func (c *Client) Reply(ctx context.Context, chatID int64, replyTo int, text string, menu bot.Menu) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyToMessageID = replyTo
	msg.AllowSendingWithoutReply = true
	msg.DisableWebPagePreview = true
	if len(menu) > 0 {
		msg.ReplyMarkup = keyboard(menu)
	}
	_, err := c.API.Send(msg)
	return convertError(err)
}

func (c *Client) Delete(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.API.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return convertError(err)
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.API.Request(tgbotapi.NewCallback(callbackID, text))
	return convertError(err)
}

// IsMember проверяет участие в настроенном чате. Вышедшие и исключённые не считаются участниками.
func (c *Client) IsMember(ctx context.Context, userID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	member, err := c.API.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID:             c.Chat.ID,
			SuperGroupUsername: c.Chat.Username,
			UserID:             userID,
		},
	})
	if err != nil {
		if notParticipant(err) {
			return false, auth.ErrNotParticipant
		}
		return false, convertError(err)
	}

	switch member.Status {
	case "left", "kicked":
		return false, nil
	case "restricted":
		return member.IsMember, nil
	}
	return true, nil
}

func keyboard(menu bot.Menu) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(menu))
	for _, row := range menu {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func apiError(err error) (tgbotapi.Error, bool) {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return val, true
	}
	return tgbotapi.Error{}, false
}

// convertError превращает ответ 429 в bot.FloodWaitError.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	if apiErr, ok := apiError(err); ok && apiErr.RetryAfter > 0 {
		return &bot.FloodWaitError{Wait: time.Duration(apiErr.RetryAfter) * time.Second}
	}
	return fmt.Errorf("telegram: %w", err)
}

func notParticipant(err error) bool {
	apiErr, ok := apiError(err)
	if !ok {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "user not found") ||
		strings.Contains(msg, "member not found") ||
		strings.Contains(msg, "participant")
}

// Run читает обновления и обрабатывает каждое в своей горутине.
// После отмены ctx ждёт завершения уже начатых обработчиков.
func Run(ctx context.Context, updates <-chan tgbotapi.Update, h Handler, logger *zap.Logger) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						logger.Error("update handler panic", zap.Int("update", upd.UpdateID), zap.Any("panic", r))
					}
				}()
				Dispatch(ctx, upd, h)
			}(upd)
		}
	}
}

// Dispatch передаёт обновление нужному обработчику. Каналы и служебные обновления пропускаются.
func Dispatch(ctx context.Context, upd tgbotapi.Update, h Handler) {
	switch {
	case upd.Message != nil:
		if msg, ok := toMessage(upd.Message); ok {
			h.HandleMessage(ctx, msg)
		}
	case upd.CallbackQuery != nil:
		if cb, ok := toCallback(upd.CallbackQuery); ok {
			h.HandleCallback(ctx, cb)
		}
	}
}

func toMessage(m *tgbotapi.Message) (bot.Message, bool) {
	if m.From == nil || m.Chat == nil {
		return bot.Message{}, false
	}
	if !m.Chat.IsPrivate() && !m.Chat.IsGroup() && !m.Chat.IsSuperGroup() {
		return bot.Message{}, false
	}
	text := m.Text
	if text == "" {
		text = m.Caption
	}
	return bot.Message{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		UserID:    m.From.ID,
		Text:      text,
	}, true
}

func toCallback(q *tgbotapi.CallbackQuery) (bot.Callback, bool) {
	if q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return bot.Callback{}, false
	}
	cb := bot.Callback{
		ID:        q.ID,
		ChatID:    q.Message.Chat.ID,
		MessageID: q.Message.MessageID,
		UserID:    q.From.ID,
		Data:      q.Data,
	}
	if q.Message.ReplyToMessage != nil {
		cb.ReplyToID = q.Message.ReplyToMessage.MessageID
	}
	return cb, true
}
