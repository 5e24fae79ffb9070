package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func newInstance(t *testing.T, store *Store, capacity int) *model.ScheduleInstance {
	t.Helper()

	instance := &model.ScheduleInstance{
		TemplateID:  1,
		Hotel:       "Seaside",
		Destination: "Airport",
		ServiceDate: model.DateOnly(testNow),
		DepartsAt:   testNow.Add(2 * time.Hour),
		MaxCapacity: capacity,
		Status:      model.InstanceStatusActive,
	}
	inserted, err := store.Instances().CreateIfAbsent(context.Background(), instance)
	require.NoError(t, err)
	require.True(t, inserted)
	return instance
}

func TestInstanceStore_CreateIfAbsent(t *testing.T) {
	store := NewStore(clockwork.NewFakeClockAt(testNow))
	first := newInstance(t, store, 4)

	dup := &model.ScheduleInstance{
		TemplateID:  1,
		ServiceDate: testNow.Add(3 * time.Hour),
		DepartsAt:   testNow.Add(4 * time.Hour),
		MaxCapacity: 4,
		Status:      model.InstanceStatusActive,
	}
	inserted, err := store.Instances().CreateIfAbsent(context.Background(), dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	list, err := store.Instances().ListByDate(context.Background(), testNow)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestInstanceStore_TryIncrement(t *testing.T) {
	ctx := context.Background()
	store := NewStore(clockwork.NewFakeClockAt(testNow))
	instances := store.Instances()
	instance := newInstance(t, store, 3)

	tests := []struct {
		name     string
		id       int64
		seats    int
		after    time.Time
		expected model.LedgerResult
		reserved int
		status   model.InstanceStatus
	}{
		{"applied", instance.ID, 2, testNow, model.LedgerApplied, 2, model.InstanceStatusActive},
		{"insufficient", instance.ID, 2, testNow, model.LedgerInsufficientCapacity, 2, model.InstanceStatusActive},
		{"departure passed", instance.ID, 1, instance.DepartsAt, model.LedgerNotBookable, 2, model.InstanceStatusActive},
		{"fills up", instance.ID, 1, testNow, model.LedgerApplied, 3, model.InstanceStatusFull},
		{"full is not bookable", instance.ID, 1, testNow, model.LedgerNotBookable, 3, model.InstanceStatusFull},
		{"unknown instance", 999, 1, testNow, model.LedgerInstanceNotFound, 3, model.InstanceStatusFull},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := instances.TryIncrement(ctx, tt.id, tt.seats, tt.after)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)

			current, err := instances.GetByID(ctx, instance.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.reserved, current.Reserved)
			assert.Equal(t, tt.status, current.Status)
		})
	}
}

func TestInstanceStore_AdjustBounds(t *testing.T) {
	ctx := context.Background()
	store := NewStore(clockwork.NewFakeClockAt(testNow))
	instances := store.Instances()
	instance := newInstance(t, store, 2)

	result, err := instances.Adjust(ctx, instance.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, model.LedgerOutOfBounds, result)

	result, err = instances.Adjust(ctx, instance.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, model.LedgerApplied, result)

	current, _ := instances.GetByID(ctx, instance.ID)
	assert.Equal(t, model.InstanceStatusFull, current.Status)

	result, err = instances.Adjust(ctx, instance.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, model.LedgerApplied, result)

	current, _ = instances.GetByID(ctx, instance.ID)
	assert.Equal(t, 1, current.Reserved)
	assert.Equal(t, model.InstanceStatusActive, current.Status)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewStore(clockwork.NewFakeClockAt(testNow))
	instance := newInstance(t, store, 4)
	errBoom := errors.New("boom")

	err := store.WithTx(ctx, func(txCtx context.Context) error {
		booking := &model.Booking{
			Code:           "SHTAAAA2222",
			IdempotencyKey: "key-1",
			InstanceID:     instance.ID,
			PassengerCount: 2,
			Status:         model.BookingStatusConfirmed,
		}
		inserted, err := store.Bookings().InsertIfAbsent(txCtx, booking)
		require.NoError(t, err)
		require.True(t, inserted)

		result, err := store.Instances().TryIncrement(txCtx, instance.ID, 2, testNow)
		require.NoError(t, err)
		require.Equal(t, model.LedgerApplied, result)

		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	booking, err := store.Bookings().GetByIdempotencyKey(ctx, "key-1")
	require.NoError(t, err)
	assert.Nil(t, booking)

	current, _ := store.Instances().GetByID(ctx, instance.ID)
	assert.Equal(t, 0, current.Reserved)
}

func TestBookingStore_InsertConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewStore(clockwork.NewFakeClockAt(testNow))
	bookings := store.Bookings()

	first := &model.Booking{Code: "SHTAAAA2222", IdempotencyKey: "k1", Status: model.BookingStatusConfirmed}
	inserted, err := bookings.InsertIfAbsent(ctx, first)
	require.NoError(t, err)
	require.True(t, inserted)

	sameKey := &model.Booking{Code: "SHTBBBB3333", IdempotencyKey: "k1", Status: model.BookingStatusConfirmed}
	inserted, err = bookings.InsertIfAbsent(ctx, sameKey)
	require.NoError(t, err)
	assert.False(t, inserted)

	sameCode := &model.Booking{Code: "SHTAAAA2222", IdempotencyKey: "k2", Status: model.BookingStatusConfirmed}
	_, err = bookings.InsertIfAbsent(ctx, sameCode)
	assert.ErrorIs(t, err, model.ErrBookingCodeTaken)
}

func TestBookingStore_RecordDeliveryKeepsSent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(clockwork.NewFakeClockAt(testNow))
	bookings := store.Bookings()

	booking := &model.Booking{Code: "SHTAAAA2222", IdempotencyKey: "k1", Status: model.BookingStatusConfirmed}
	_, err := bookings.InsertIfAbsent(ctx, booking)
	require.NoError(t, err)

	require.NoError(t, bookings.RecordDelivery(ctx, booking.ID, false, "timeout"))
	got, _ := bookings.GetByID(ctx, booking.ID)
	require.NotNil(t, got.NotifyLastError)
	assert.Equal(t, "timeout", *got.NotifyLastError)

	require.NoError(t, bookings.RecordDelivery(ctx, booking.ID, true, ""))
	require.NoError(t, bookings.RecordDelivery(ctx, booking.ID, false, "late failure"))

	got, _ = bookings.GetByID(ctx, booking.ID)
	assert.True(t, got.NotifySent)
	assert.Nil(t, got.NotifyLastError)
	assert.Equal(t, 3, got.NotifyAttempts)
}

func TestStore_TxWritesVisibleOnlyInsideUntilCommit(t *testing.T) {
	ctx := context.Background()
	store := NewStore(clockwork.NewFakeClockAt(testNow))
	instance := newInstance(t, store, 4)

	err := store.WithTx(ctx, func(txCtx context.Context) error {
		_, err := store.Instances().TryIncrement(txCtx, instance.ID, 3, testNow)
		require.NoError(t, err)

		inside, err := store.Instances().GetForUpdate(txCtx, instance.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, inside.Reserved)

		outside, err := store.Instances().GetByID(ctx, instance.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, outside.Reserved)
		return nil
	})
	require.NoError(t, err)

	current, _ := store.Instances().GetByID(ctx, instance.ID)
	assert.Equal(t, 3, current.Reserved)

	// изменение возвращённой копии не трогает хранилище
	current.Reserved = 0
	again, _ := store.Instances().GetByID(ctx, instance.ID)
	assert.Equal(t, 3, again.Reserved)
}

func TestBookingStore_CancelAllForInstance(t *testing.T) {
	ctx := context.Background()
	store := NewStore(clockwork.NewFakeClockAt(testNow))
	bookings := store.Bookings()
	instance := newInstance(t, store, 10)

	for i, seats := range []int{1, 2, 3} {
		_, err := bookings.InsertIfAbsent(ctx, &model.Booking{
			Code:           "SHTAAAA222" + string(rune('2'+i)),
			IdempotencyKey: "k" + string(rune('1'+i)),
			InstanceID:     instance.ID,
			PassengerCount: seats,
			Status:         model.BookingStatusConfirmed,
		})
		require.NoError(t, err)
	}
	other := &model.Booking{Code: "SHTBBBB2222", IdempotencyKey: "other", InstanceID: instance.ID + 100, PassengerCount: 4, Status: model.BookingStatusConfirmed}
	_, err := bookings.InsertIfAbsent(ctx, other)
	require.NoError(t, err)

	first, _ := bookings.GetByIdempotencyKey(ctx, "k1")
	changed, err := bookings.MarkCancelled(ctx, first.ID, testNow)
	require.NoError(t, err)
	require.True(t, changed)

	cancelled, seats, err := bookings.CancelAllForInstance(ctx, instance.ID, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, cancelled)
	assert.Equal(t, 5, seats)

	untouched, _ := bookings.GetByID(ctx, other.ID)
	assert.Equal(t, model.BookingStatusConfirmed, untouched.Status)

	deliverable, err := bookings.ListDeliverable(ctx, 10, 3)
	require.NoError(t, err)
	require.Len(t, deliverable, 1)
	assert.Equal(t, other.ID, deliverable[0].ID)
}
