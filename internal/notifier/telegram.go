// Package notifier каналы доставки билетов
package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/Freeeeeet/shuttle_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// ErrRecipientNotLinked телефон гостя не привязан к чату Telegram
var ErrRecipientNotLinked = errors.New("recipient phone is not linked to telegram")

// Sender часть API *bot.Bot, нужная для доставки
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
}

// Telegram доставляет билет в чат, привязанный к телефону гостя
type Telegram struct {
	sender      Sender
	subscribers service.SubscriberStore
	logger      *zap.Logger
}

func NewTelegram(sender Sender, subscribers service.SubscriberStore, logger *zap.Logger) *Telegram {
	return &Telegram{
		sender:      sender,
		subscribers: subscribers,
		logger:      logger,
	}
}

func (t *Telegram) Send(ctx context.Context, phone, message string, attachment *model.Attachment) error {
	subscriber, err := t.subscribers.GetByPhone(ctx, phone)
	if err != nil {
		return fmt.Errorf("get subscriber: %w", err)
	}
	if subscriber == nil {
		return ErrRecipientNotLinked
	}

	if attachment != nil {
		_, err = t.sender.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID: subscriber.ChatID,
			Document: &models.InputFileUpload{
				Filename: attachment.Filename,
				Data:     bytes.NewReader(attachment.Data),
			},
			Caption: message,
		})
	} else {
		_, err = t.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: subscriber.ChatID,
			Text:   message,
		})
	}
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}

	t.logger.Debug("Ticket sent to telegram", zap.Int64("chat_id", subscriber.ChatID))
	return nil
}
