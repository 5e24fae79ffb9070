package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/Freeeeeet/shuttle_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	bookingColumns = `id, code, idempotency_key, instance_id, customer_name, phone, room_number, passenger_count,
		status, channel_unreachable, notify_sent, notify_attempts, notify_last_error, created_at, updated_at, cancelled_at`

	bookingCodeConstraint = "bookings_code_key"
)

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(pool)}
}

// InsertIfAbsent создаёт бронирование, если ключ идемпотентности ещё не занят.
// Возвращает false при конфликте ключа и model.ErrBookingCodeTaken при коллизии кода.
func (r *BookingRepository) InsertIfAbsent(ctx context.Context, booking *model.Booking) (bool, error) {
	query := `
		INSERT INTO bookings (code, idempotency_key, instance_id, customer_name, phone, room_number,
		                      passenger_count, status, channel_unreachable)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		booking.Code,
		booking.IdempotencyKey,
		booking.InstanceID,
		booking.CustomerName,
		booking.Phone,
		booking.RoomNumber,
		booking.PassengerCount,
		booking.Status,
		booking.ChannelUnreachable,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		switch {
		case base.IsNotFound(err):
			return false, nil
		case base.IsUniqueViolation(err, bookingCodeConstraint):
			return false, model.ErrBookingCodeTaken
		}
		return false, fmt.Errorf("create booking: %w", err)
	}

	return true, nil
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

// GetByCode получает бронирование по коду
func (r *BookingRepository) GetByCode(ctx context.Context, code string) (*model.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE code = $1`, code)
}

// GetByIdempotencyKey получает бронирование по ключу идемпотентности
func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, key string) (*model.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE idempotency_key = $1`, key)
}

// MarkCancelled отменяет подтверждённое бронирование. false, если оно уже отменено.
func (r *BookingRepository) MarkCancelled(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
	`

	affected, err := r.ExecAffected(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("cancel booking: %w", err)
	}

	return affected == 1, nil
}

// CancelAllForInstance отменяет все подтверждённые бронирования рейса.
// Возвращает число отменённых бронирований и сумму их мест.
func (r *BookingRepository) CancelAllForInstance(ctx context.Context, instanceID int64, at time.Time) (int, int, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = $2, updated_at = NOW()
		WHERE instance_id = $1 AND status = 'confirmed'
		RETURNING passenger_count
	`

	rows, err := r.Query(ctx, query, instanceID, at)
	if err != nil {
		return 0, 0, fmt.Errorf("cancel instance bookings: %w", err)
	}
	defer rows.Close()

	var cancelled, seats int
	for rows.Next() {
		var passengers int
		if err := rows.Scan(&passengers); err != nil {
			return 0, 0, fmt.Errorf("scan cancelled booking: %w", err)
		}
		cancelled++
		seats += passengers
	}

	return cancelled, seats, rows.Err()
}

// ListDeliverable получает до limit неотправленных подтверждённых бронирований
// с attempts < maxAttempts: сначала меньше попыток, затем раньше созданные
func (r *BookingRepository) ListDeliverable(ctx context.Context, limit, maxAttempts int) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'confirmed'
		  AND notify_sent = false
		  AND notify_attempts < $2
		ORDER BY notify_attempts, created_at, id
		LIMIT $1
	`
	return r.list(ctx, query, limit, maxAttempts)
}

// ListUndelivered получает бронирования, исчерпавшие попытки доставки
func (r *BookingRepository) ListUndelivered(ctx context.Context, maxAttempts int) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'confirmed'
		  AND notify_sent = false
		  AND notify_attempts >= $1
		ORDER BY created_at, id
	`
	return r.list(ctx, query, maxAttempts)
}

// RecordDelivery фиксирует попытку доставки: attempts + 1, sent не сбрасывается,
// ошибка хранится только пока билет не доставлен
func (r *BookingRepository) RecordDelivery(ctx context.Context, id int64, sent bool, lastError string) error {
	query := `
		UPDATE bookings
		SET notify_attempts = notify_attempts + 1,
		    notify_sent = notify_sent OR $2::boolean,
		    notify_last_error = CASE WHEN notify_sent OR $2::boolean THEN NULL ELSE $3::text END,
		    updated_at = NOW()
		WHERE id = $1
	`

	affected, err := r.ExecAffected(ctx, query, id, sent, lastError)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("booking %d not found", id)
	}

	return nil
}

func (r *BookingRepository) getOne(ctx context.Context, query string, arg any) (*model.Booking, error) {
	booking, err := scanBooking(r.QueryRow(ctx, query, arg))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) list(ctx context.Context, query string, args ...any) ([]*model.Booking, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.Code,
		&b.IdempotencyKey,
		&b.InstanceID,
		&b.CustomerName,
		&b.Phone,
		&b.RoomNumber,
		&b.PassengerCount,
		&b.Status,
		&b.ChannelUnreachable,
		&b.NotifySent,
		&b.NotifyAttempts,
		&b.NotifyLastError,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
