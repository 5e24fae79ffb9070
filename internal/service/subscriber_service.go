package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"go.uber.org/zap"
)

// DefaultPhoneRegion страна для номеров, введённых без кода страны
const DefaultPhoneRegion = "RU"

// SubscriberService привязывает телефоны гостей к чатам Telegram
type SubscriberService struct {
	subscribers SubscriberStore
	region      string
	logger      *zap.Logger
}

func NewSubscriberService(subscribers SubscriberStore, region string, logger *zap.Logger) *SubscriberService {
	if region == "" {
		region = DefaultPhoneRegion
	}
	return &SubscriberService{
		subscribers: subscribers,
		region:      region,
		logger:      logger,
	}
}

// Link сохраняет привязку телефона к чату. Повторная привязка переносит телефон в новый чат.
// Telegram отдаёт номер контакта в международном формате, иногда без "+".
func (s *SubscriberService) Link(ctx context.Context, rawPhone string, chatID int64, username, firstName string) (*model.Subscriber, error) {
	rawPhone = strings.TrimSpace(rawPhone)
	if rawPhone != "" && !strings.HasPrefix(rawPhone, "+") {
		rawPhone = "+" + rawPhone
	}

	phone, err := model.NormalizePhone(rawPhone, s.region)
	if err != nil {
		return nil, &ValidationError{Field: "phone", Msg: "is not a valid phone number"}
	}

	subscriber := &model.Subscriber{
		Phone:     phone,
		ChatID:    chatID,
		Username:  username,
		FirstName: firstName,
	}
	if err := s.subscribers.Upsert(ctx, subscriber); err != nil {
		return nil, fmt.Errorf("upsert subscriber: %w", err)
	}

	s.logger.Info("Phone linked to telegram chat",
		zap.Int64("subscriber_id", subscriber.ID),
		zap.Int64("chat_id", chatID),
	)

	return subscriber, nil
}

// OwnsPhone проверяет, что телефон привязан именно к этому чату
func (s *SubscriberService) OwnsPhone(ctx context.Context, phone string, chatID int64) (bool, error) {
	subscriber, err := s.subscribers.GetByPhone(ctx, phone)
	if err != nil {
		return false, fmt.Errorf("get subscriber: %w", err)
	}
	return subscriber != nil && subscriber.ChatID == chatID, nil
}
