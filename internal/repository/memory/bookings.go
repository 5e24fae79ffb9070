package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/hashicorp/go-memdb"
)

type BookingStore struct {
	s *Store
}

// firstBooking возвращает копию записи, чтобы вызывающий не менял хранилище
func firstBooking(txn *memdb.Txn, index string, arg any) (*model.Booking, error) {
	raw, err := txn.First(tableBookings, index, arg)
	if err != nil || raw == nil {
		return nil, err
	}
	return copyBooking(raw.(*model.Booking)), nil
}

func copyBooking(src *model.Booking) *model.Booking {
	b := *src
	if b.NotifyLastError != nil {
		msg := *b.NotifyLastError
		b.NotifyLastError = &msg
	}
	if b.CancelledAt != nil {
		at := *b.CancelledAt
		b.CancelledAt = &at
	}
	return &b
}

func (r *BookingStore) InsertIfAbsent(ctx context.Context, booking *model.Booking) (bool, error) {
	var inserted bool
	err := r.s.write(ctx, func(txn *memdb.Txn) error {
		existing, err := txn.First(tableBookings, "key", booking.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		taken, err := txn.First(tableBookings, "code", booking.Code)
		if err != nil {
			return err
		}
		if taken != nil {
			return model.ErrBookingCodeTaken
		}

		now := r.s.clock.Now()
		booking.ID = r.s.newID()
		booking.CreatedAt = now
		booking.UpdatedAt = now

		stored := *booking
		stored.Instance = nil
		if err := txn.Insert(tableBookings, &stored); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return inserted, err
}

func (r *BookingStore) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	return r.first(ctx, "id", id)
}

func (r *BookingStore) GetByCode(ctx context.Context, code string) (*model.Booking, error) {
	if code == "" {
		return nil, nil
	}
	return r.first(ctx, "code", code)
}

func (r *BookingStore) GetByIdempotencyKey(ctx context.Context, key string) (*model.Booking, error) {
	if key == "" {
		return nil, nil
	}
	return r.first(ctx, "key", key)
}

func (r *BookingStore) first(ctx context.Context, index string, arg any) (*model.Booking, error) {
	var result *model.Booking
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		var err error
		result, err = firstBooking(txn, index, arg)
		return err
	})
	return result, err
}

func (r *BookingStore) MarkCancelled(ctx context.Context, id int64, at time.Time) (bool, error) {
	var changed bool
	err := r.s.write(ctx, func(txn *memdb.Txn) error {
		b, err := firstBooking(txn, "id", id)
		if err != nil {
			return err
		}
		if b == nil || b.Status != model.BookingStatusConfirmed {
			return nil
		}

		changed = true
		return r.cancel(txn, b, at)
	})
	return changed, err
}

func (r *BookingStore) CancelAllForInstance(ctx context.Context, instanceID int64, at time.Time) (int, int, error) {
	var cancelled, seats int
	err := r.s.write(ctx, func(txn *memdb.Txn) error {
		it, err := txn.Get(tableBookings, "instance", instanceID)
		if err != nil {
			return err
		}

		var confirmed []*model.Booking
		for raw := it.Next(); raw != nil; raw = it.Next() {
			if b := raw.(*model.Booking); b.Status == model.BookingStatusConfirmed {
				confirmed = append(confirmed, copyBooking(b))
			}
		}

		for _, b := range confirmed {
			if err := r.cancel(txn, b, at); err != nil {
				return err
			}
			cancelled++
			seats += b.PassengerCount
		}
		return nil
	})
	return cancelled, seats, err
}

func (r *BookingStore) cancel(txn *memdb.Txn, b *model.Booking, at time.Time) error {
	b.Status = model.BookingStatusCancelled
	b.CancelledAt = &at
	b.UpdatedAt = r.s.clock.Now()
	return txn.Insert(tableBookings, b)
}

func (r *BookingStore) ListDeliverable(ctx context.Context, limit, maxAttempts int) ([]*model.Booking, error) {
	result, err := r.filter(ctx, func(b *model.Booking) bool {
		return b.IsActive() && !b.NotifySent && b.NotifyAttempts < maxAttempts
	})

	sort.Slice(result, func(a, b int) bool {
		x, y := result[a], result[b]
		if x.NotifyAttempts != y.NotifyAttempts {
			return x.NotifyAttempts < y.NotifyAttempts
		}
		if !x.CreatedAt.Equal(y.CreatedAt) {
			return x.CreatedAt.Before(y.CreatedAt)
		}
		return x.ID < y.ID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, err
}

func (r *BookingStore) ListUndelivered(ctx context.Context, maxAttempts int) ([]*model.Booking, error) {
	result, err := r.filter(ctx, func(b *model.Booking) bool {
		return b.IsActive() && !b.NotifySent && b.NotifyAttempts >= maxAttempts
	})

	sort.Slice(result, func(a, b int) bool {
		if !result[a].CreatedAt.Equal(result[b].CreatedAt) {
			return result[a].CreatedAt.Before(result[b].CreatedAt)
		}
		return result[a].ID < result[b].ID
	})
	return result, err
}

func (r *BookingStore) RecordDelivery(ctx context.Context, id int64, sent bool, lastError string) error {
	return r.s.write(ctx, func(txn *memdb.Txn) error {
		b, err := firstBooking(txn, "id", id)
		if err != nil {
			return err
		}
		if b == nil {
			return fmt.Errorf("booking %d not found", id)
		}

		b.NotifyAttempts++
		b.NotifySent = b.NotifySent || sent
		if b.NotifySent {
			b.NotifyLastError = nil
		} else {
			msg := lastError
			b.NotifyLastError = &msg
		}
		b.UpdatedAt = r.s.clock.Now()

		return txn.Insert(tableBookings, b)
	})
}

func (r *BookingStore) filter(ctx context.Context, keep func(*model.Booking) bool) ([]*model.Booking, error) {
	var result []*model.Booking
	err := r.s.read(ctx, func(txn *memdb.Txn) error {
		it, err := txn.Get(tableBookings, "id")
		if err != nil {
			return err
		}
		for raw := it.Next(); raw != nil; raw = it.Next() {
			if b := copyBooking(raw.(*model.Booking)); keep(b) {
				result = append(result, b)
			}
		}
		return nil
	})
	return result, err
}
