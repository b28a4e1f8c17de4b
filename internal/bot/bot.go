// Package bot разбирает сообщения и нажатия кнопок чата и вызывает конвейер ссылок.
package bot

//go:generate mockgen -source=bot.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"go.uber.org/zap"

	"github.com/Totarae/psabot/internal/model"
	"github.com/Totarae/psabot/internal/pace"
	"github.com/Totarae/psabot/internal/util"
)

// FloodWaitError транспорт просит подождать перед следующим запросом.
type FloodWaitError struct {
	Wait time.Duration
}

func (e *FloodWaitError) Error() string {
	return fmt.Sprintf("flood wait: retry after %s", e.Wait)
}

// Message входящее текстовое сообщение.
type Message struct {
	ChatID    int64
	MessageID int
	UserID    int64
	Text      string
}

// Callback нажатие кнопки меню.
type Callback struct {
	ID        string
	ChatID    int64
	MessageID int // сообщение с меню
	ReplyToID int // сообщение со ссылкой, на которое отвечало меню
	UserID    int64
	Data      string
}

// Messenger отправляет ответы в чат.
type Messenger interface {
	Reply(ctx context.Context, chatID int64, replyTo int, text string, menu Menu) error
	Delete(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Pipeline получает итоговые ссылки страницы.
type Pipeline interface {
	Resolve(ctx context.Context, userID int64, pageURL, code string) (model.Batch, error)
}

// Authorizer проверяет, что пользователю разрешено пользоваться ботом.
type Authorizer interface {
	Check(ctx context.Context, userID int64) error
}

type Bot struct {
	Messenger Messenger
	Pipeline  Pipeline
	Auth      Authorizer
	Links     *util.LinkRegistry
	Logger    *zap.Logger
	Sleep     func(ctx context.Context, d time.Duration) error
}

func New(messenger Messenger, pipeline Pipeline, authorizer Authorizer, logger *zap.Logger) *Bot {
	return &Bot{
		Messenger: messenger,
		Pipeline:  pipeline,
		Auth:      authorizer,
		Links:     util.NewLinkRegistry(0),
		Logger:    logger,
		Sleep:     pace.Sleep,
	}
}

// HandleMessage отвечает меню выбора качества на каждую ссылку сайта в сообщении.
// Сообщения без ссылок остаются без ответа.
func (b *Bot) HandleMessage(ctx context.Context, msg Message) {
	links := ExtractLinks(msg.Text)
	if len(links) == 0 {
		return
	}

	err := b.Auth.Check(ctx, msg.UserID)
	if err == nil {
		err = b.sendMenus(ctx, msg, links)
	}
	if err == nil {
		return
	}

	var flood *FloodWaitError
	if errors.As(err, &flood) {
		b.wait(ctx, flood.Wait)
		return
	}
	b.Logger.Debug("message failed", zap.Int64("chat", msg.ChatID), zap.Error(err))
	b.replyError(ctx, msg.ChatID, msg.MessageID, err)
}

func (b *Bot) sendMenus(ctx context.Context, msg Message, links []string) error {
	for _, link := range links {
		text, menu, ok := b.MenuFor(link)
		if !ok {
			continue
		}
		if err := b.Messenger.Reply(ctx, msg.ChatID, msg.MessageID, text, menu); err != nil {
			return err
		}
	}
	return nil
}

// HandleCallback удаляет меню и отвечает списком ссылок под выбранное качество.
func (b *Bot) HandleCallback(ctx context.Context, cb Callback) {
	if err := b.Auth.Check(ctx, cb.UserID); err != nil {
		var flood *FloodWaitError
		if errors.As(err, &flood) {
			b.Logger.Warn("flood wait", zap.Duration("wait", flood.Wait))
			b.wait(ctx, flood.Wait)
			return
		}
		b.Logger.Warn("callback rejected", zap.Int64("user", cb.UserID), zap.Error(err))
		if aerr := b.Messenger.AnswerCallback(ctx, cb.ID, err.Error()); aerr != nil {
			b.Logger.Error("answer callback", zap.Error(aerr))
		}
		return
	}

	replyTo := cb.ReplyToID
	if replyTo == 0 {
		replyTo = cb.MessageID
	}

	err := b.resolve(ctx, cb, replyTo)
	if err == nil {
		return
	}

	var flood *FloodWaitError
	if errors.As(err, &flood) {
		b.Logger.Warn("flood wait", zap.Duration("wait", flood.Wait))
		b.wait(ctx, flood.Wait)
		return
	}
	b.Logger.Error("callback failed",
		zap.Int64("user", cb.UserID),
		zap.String("data", cb.Data),
		zap.Error(err),
	)
	b.replyError(ctx, cb.ChatID, replyTo, err)
}

func (b *Bot) resolve(ctx context.Context, cb Callback, replyTo int) error {
	if err := b.Messenger.Delete(ctx, cb.ChatID, cb.MessageID); err != nil {
		return err
	}
	if cb.Data == CancelData {
		return b.Messenger.AnswerCallback(ctx, cb.ID, "❌ Cancelled")
	}
	// Пустой ответ убирает индикатор загрузки на кнопке
	if err := b.Messenger.AnswerCallback(ctx, cb.ID, ""); err != nil {
		var flood *FloodWaitError
		if errors.As(err, &flood) {
			return err
		}
		b.Logger.Debug("answer callback", zap.String("id", cb.ID), zap.Error(err))
	}

	code, pageURL, err := DecodeCallback(cb.Data, b.Links)
	if err != nil {
		return err
	}

	batch, err := b.Pipeline.Resolve(ctx, cb.UserID, pageURL, code)
	if err != nil {
		return err
	}
	return b.Messenger.Reply(ctx, cb.ChatID, replyTo, FormatLinks(batch.Links), nil)
}

func (b *Bot) replyError(ctx context.Context, chatID int64, replyTo int, err error) {
	text := "<b>⚠️ Error:</b> " + html.EscapeString(err.Error())
	if rerr := b.Messenger.Reply(ctx, chatID, replyTo, text, nil); rerr != nil {
		b.Logger.Error("failed to send error reply", zap.Error(rerr))
	}
}

// wait спит на время, которое запросил транспорт. Повтора нет.
func (b *Bot) wait(ctx context.Context, d time.Duration) {
	if err := b.Sleep(ctx, d); err != nil {
		b.Logger.Debug("flood wait interrupted", zap.Error(err))
	}
}
