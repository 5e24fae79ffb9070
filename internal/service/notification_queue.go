package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	maxErrorLength     = 500
)

// Channel внешний канал доставки билета
type Channel interface {
	Send(ctx context.Context, phone, message string, attachment *model.Attachment) error
}

// TicketRenderer формирует текст и вложение билета
type TicketRenderer interface {
	Render(booking *model.Booking) (string, *model.Attachment, error)
}

// BatchResult итог одного прохода очереди
type BatchResult struct {
	Processed int `json:"processed"`
	Success   int `json:"success"`
	Failed    int `json:"failed"`
}

type QueueConfig struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	SendTimeout time.Duration
}

// NotificationQueue доставляет билеты асинхронно с ограниченным числом попыток.
// Enqueue ставит немедленную первую попытку, ProcessBatch добирает неотправленные.
type NotificationQueue struct {
	bookings    BookingStore
	instances   InstanceStore
	channel     Channel
	renderer    TicketRenderer
	jobs        chan int64
	workers     int
	maxAttempts int
	sendTimeout time.Duration
	logger      *zap.Logger
	wg          sync.WaitGroup
}

func NewNotificationQueue(
	bookings BookingStore,
	instances InstanceStore,
	channel Channel,
	renderer TicketRenderer,
	cfg QueueConfig,
	logger *zap.Logger,
) *NotificationQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}

	return &NotificationQueue{
		bookings:    bookings,
		instances:   instances,
		channel:     channel,
		renderer:    renderer,
		jobs:        make(chan int64, cfg.QueueSize),
		workers:     cfg.Workers,
		maxAttempts: cfg.MaxAttempts,
		sendTimeout: cfg.SendTimeout,
		logger:      logger,
	}
}

// MaxAttempts возвращает бюджет автоматических попыток
func (q *NotificationQueue) MaxAttempts() int {
	return q.maxAttempts
}

// Start запускает воркеры; они работают до отмены ctx
func (q *NotificationQueue) Start(ctx context.Context) {
	q.logger.Info("Starting notification workers", zap.Int("workers", q.workers))

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Wait ждёт завершения воркеров после отмены контекста
func (q *NotificationQueue) Wait() {
	q.wg.Wait()
}

// Enqueue ставит бронирование в очередь без блокировки.
// Если буфер заполнен, задание пропускается: его подберёт ProcessBatch.
func (q *NotificationQueue) Enqueue(bookingID int64) {
	select {
	case q.jobs <- bookingID:
	default:
		q.logger.Warn("Notification queue is full, deferring to batch",
			zap.Int64("booking_id", bookingID),
		)
	}
}

func (q *NotificationQueue) worker(ctx context.Context, n int) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			q.logger.Debug("Notification worker stopped", zap.Int("worker", n))
			return
		case id := <-q.jobs:
			q.deliverQueued(ctx, id)
		}
	}
}

func (q *NotificationQueue) deliverQueued(ctx context.Context, bookingID int64) {
	booking, err := q.bookings.GetByID(ctx, bookingID)
	if err != nil {
		q.logger.Error("Failed to load booking for notification",
			zap.Error(err),
			zap.Int64("booking_id", bookingID),
		)
		return
	}
	if booking == nil || !booking.IsActive() || booking.NotifySent || booking.NotifyAttempts >= q.maxAttempts {
		return
	}

	if _, err := q.attempt(ctx, booking); err != nil {
		q.logger.Error("Failed to record notification attempt",
			zap.Error(err),
			zap.Int64("booking_id", bookingID),
		)
	}
}

// ProcessBatch выбирает до limit неотправленных бронирований с attempts < maxAttempts
// (сначала меньше попыток, затем раньше созданные) и пытается доставить каждое по очереди
func (q *NotificationQueue) ProcessBatch(ctx context.Context, limit, maxAttempts int) (BatchResult, error) {
	var result BatchResult

	if limit <= 0 {
		return result, &ValidationError{Field: "limit", Msg: "must be positive"}
	}
	if maxAttempts <= 0 {
		maxAttempts = q.maxAttempts
	}

	bookings, err := q.bookings.ListDeliverable(ctx, limit, maxAttempts)
	if err != nil {
		return result, fmt.Errorf("list deliverable bookings: %w", err)
	}

	for _, booking := range bookings {
		if ctx.Err() != nil {
			break
		}

		result.Processed++
		sent, err := q.attempt(ctx, booking)
		if err != nil {
			q.logger.Error("Failed to record notification attempt",
				zap.Error(err),
				zap.Int64("booking_id", booking.ID),
			)
		}
		if sent {
			result.Success++
		} else {
			result.Failed++
		}
	}

	q.logger.Info("Notification batch processed",
		zap.Int("processed", result.Processed),
		zap.Int("success", result.Success),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}

// Resend немедленно пытается доставить билет независимо от числа попыток
func (q *NotificationQueue) Resend(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := q.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if !booking.IsActive() {
		return nil, ErrBookingCancelled
	}

	if _, err := q.attempt(ctx, booking); err != nil {
		return nil, err
	}

	updated, err := q.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if updated == nil {
		return nil, ErrBookingNotFound
	}

	q.logger.Info("Manual ticket resend",
		zap.Int64("booking_id", bookingID),
		zap.Bool("sent", updated.NotifySent),
		zap.Int("attempts", updated.NotifyAttempts),
	)

	return updated, nil
}

// ListFailed возвращает бронирования с исчерпанными попытками
func (q *NotificationQueue) ListFailed(ctx context.Context) ([]*model.Booking, error) {
	bookings, err := q.bookings.ListUndelivered(ctx, q.maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("list undelivered bookings: %w", err)
	}
	return bookings, nil
}

// attempt одна попытка доставки. Каждая попытка увеличивает attempts ровно на 1,
// успех выставляет sent и очищает ошибку. Возвращает true при успешной отправке.
func (q *NotificationQueue) attempt(ctx context.Context, booking *model.Booking) (bool, error) {
	if booking.ChannelUnreachable {
		q.logger.Debug("Skipping send, channel unreachable for recipient",
			zap.Int64("booking_id", booking.ID),
		)
		return false, q.record(ctx, booking.ID, false, model.ChannelUnreachableError)
	}

	if booking.Instance == nil {
		instance, err := q.instances.GetByID(ctx, booking.InstanceID)
		if err != nil {
			return false, fmt.Errorf("get schedule instance: %w", err)
		}
		booking.Instance = instance
	}

	message, attachment, err := q.renderer.Render(booking)
	if err != nil {
		return false, q.record(ctx, booking.ID, false, "render ticket: "+err.Error())
	}

	sendCtx, cancel := context.WithTimeout(ctx, q.sendTimeout)
	err = q.channel.Send(sendCtx, booking.Phone, message, attachment)
	cancel()

	if err != nil {
		q.logger.Warn("Ticket delivery failed",
			zap.Error(err),
			zap.Int64("booking_id", booking.ID),
			zap.Int("attempt", booking.NotifyAttempts+1),
		)
		return false, q.record(ctx, booking.ID, false, err.Error())
	}

	q.logger.Info("Ticket delivered",
		zap.Int64("booking_id", booking.ID),
		zap.String("code", booking.Code),
		zap.Int("attempt", booking.NotifyAttempts+1),
	)
	return true, q.record(ctx, booking.ID, true, "")
}

func (q *NotificationQueue) record(ctx context.Context, bookingID int64, sent bool, lastError string) error {
	if err := q.bookings.RecordDelivery(ctx, bookingID, sent, truncateError(lastError)); err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// truncateError обрезает текст ошибки до maxErrorLength байт по границе руны.
// Postgres не примет строку с битым UTF-8.
func truncateError(msg string) string {
	msg = strings.ToValidUTF8(msg, "?")
	if len(msg) <= maxErrorLength {
		return msg
	}

	cut := maxErrorLength
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
