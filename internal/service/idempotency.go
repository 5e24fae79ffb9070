package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
)

// Admission результат проверки ключа идемпотентности
type Admission struct {
	Admitted     bool
	ExistingCode string
}

// IdempotencyGuard гарантирует не более одного бронирования на ключ.
// Гарантию даёт уникальный индекс при вставке бронирования, Admit лишь быстрый путь.
type IdempotencyGuard struct {
	bookings BookingStore
}

func NewIdempotencyGuard(bookings BookingStore) *IdempotencyGuard {
	return &IdempotencyGuard{bookings: bookings}
}

// Admit пропускает новый ключ или возвращает код уже созданного бронирования
func (g *IdempotencyGuard) Admit(ctx context.Context, key string) (Admission, error) {
	code, found, err := g.Lookup(ctx, key)
	if err != nil {
		return Admission{}, err
	}
	if found {
		return Admission{ExistingCode: code}, nil
	}
	return Admission{Admitted: true}, nil
}

// Register вставляет бронирование вместе с ключом. При конфликте ключа
// возвращает *DuplicateKeyError с кодом исходного бронирования.
func (g *IdempotencyGuard) Register(ctx context.Context, booking *model.Booking) error {
	inserted, err := g.bookings.InsertIfAbsent(ctx, booking)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	if inserted {
		return nil
	}

	existing, err := g.bookings.GetByIdempotencyKey(ctx, booking.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("get booking by idempotency key: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("idempotency key %q conflicted but no booking found", booking.IdempotencyKey)
	}

	return &DuplicateKeyError{Code: existing.Code}
}

// Lookup возвращает код бронирования, созданного с ключом
func (g *IdempotencyGuard) Lookup(ctx context.Context, key string) (string, bool, error) {
	existing, err := g.bookings.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("get booking by idempotency key: %w", err)
	}
	if existing == nil {
		return "", false, nil
	}
	return existing.Code, true, nil
}
