package model

import (
	"errors"
	"time"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed" // Подтверждено, места списаны
	BookingStatusCancelled BookingStatus = "cancelled" // Отменено, места возвращены
)

// DeliveryState видимое состояние доставки билета
type DeliveryState string

const (
	DeliverySent    DeliveryState = "sent"
	DeliveryPending DeliveryState = "pending"
	DeliveryFailed  DeliveryState = "failed" // попытки исчерпаны, нужна ручная переотправка
)

// ChannelUnreachableError фиксированная ошибка для гостей, у которых канал уведомлений недоступен
const ChannelUnreachableError = "channel_unreachable"

// ErrBookingCodeTaken возвращается хранилищем при коллизии кода бронирования
var ErrBookingCodeTaken = errors.New("booking code already taken")

type Booking struct {
	ID                 int64         `json:"id"`
	Code               string        `json:"code"`
	IdempotencyKey     string        `json:"-"`
	InstanceID         int64         `json:"instance_id"`
	CustomerName       string        `json:"customer_name"`
	Phone              string        `json:"phone"`
	RoomNumber         string        `json:"room_number"`
	PassengerCount     int           `json:"passenger_count"`
	Status             BookingStatus `json:"status"`
	ChannelUnreachable bool          `json:"channel_unreachable"` // гость сообщил, что канал ему недоступен
	NotifySent         bool          `json:"notify_sent"`
	NotifyAttempts     int           `json:"notify_attempts"`
	NotifyLastError    *string       `json:"notify_last_error"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	CancelledAt        *time.Time    `json:"cancelled_at"`

	// Дополнительные поля для удобства (не из БД)
	Instance *ScheduleInstance `json:"instance,omitempty"`
}

// IsActive сообщает, что бронирование подтверждено и не отменено
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusConfirmed
}

// DeliveryState вычисляет состояние доставки билета
func (b *Booking) DeliveryState(maxAttempts int) DeliveryState {
	switch {
	case b.NotifySent:
		return DeliverySent
	case b.NotifyAttempts >= maxAttempts:
		return DeliveryFailed
	default:
		return DeliveryPending
	}
}

// Attachment вложение к уведомлению (PDF билета)
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}
