package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/Freeeeeet/shuttle_booking/internal/repository/memory"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	keySeq  atomic.Int64
)

type fakeChannel struct {
	mu       sync.Mutex
	failures int
	calls    []string
}

func (c *fakeChannel) Send(_ context.Context, phone, _ string, _ *model.Attachment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, phone)
	if c.failures > 0 {
		c.failures--
		return errors.New("gateway timeout")
	}
	return nil
}

func (c *fakeChannel) failNext(n int) {
	c.mu.Lock()
	c.failures = n
	c.mu.Unlock()
}

func (c *fakeChannel) sentTo() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakeRenderer struct{}

func (fakeRenderer) Render(b *model.Booking) (string, *model.Attachment, error) {
	return "Ticket " + b.Code, nil, nil
}

type fixture struct {
	clock        *clockwork.FakeClock
	store        *memory.Store
	channel      *fakeChannel
	lifecycle    *ScheduleLifecycle
	queue        *NotificationQueue
	reservations *ReservationService
	schedules    *ScheduleService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zap.NewNop()
	clk := clockwork.NewFakeClockAt(testNow)
	store := memory.NewStore(clk)
	channel := &fakeChannel{}

	lifecycle := NewScheduleLifecycle(store.Instances(), DefaultBoardingLead, time.UTC, clk, logger)
	ledger := NewCapacityLedger(store.Instances(), DefaultBoardingLead, logger)
	guard := NewIdempotencyGuard(store.Bookings())
	queue := NewNotificationQueue(store.Bookings(), store.Instances(), channel, fakeRenderer{}, QueueConfig{
		QueueSize:   1000,
		MaxAttempts: 3,
	}, logger)

	return &fixture{
		clock:     clk,
		store:     store,
		channel:   channel,
		lifecycle: lifecycle,
		queue:     queue,
		reservations: NewReservationService(
			store, store.Instances(), store.Bookings(), guard, ledger, lifecycle, queue, logger,
			WithClock(clk),
		),
		schedules: NewScheduleService(store.Templates(), store.Instances(), lifecycle, clk, logger),
	}
}

// instance создаёт рейс с отправлением через departsIn от текущего времени
func (f *fixture) instance(t *testing.T, capacity int, departsIn time.Duration) *model.ScheduleInstance {
	t.Helper()

	departsAt := f.clock.Now().Add(departsIn)
	instance := &model.ScheduleInstance{
		TemplateID:  departsAt.UnixNano(),
		Hotel:       "Seaside",
		Destination: "Airport",
		ServiceDate: model.DateOnly(departsAt),
		DepartsAt:   departsAt,
		MaxCapacity: capacity,
		Status:      model.InstanceStatusActive,
	}
	inserted, err := f.store.Instances().CreateIfAbsent(context.Background(), instance)
	require.NoError(t, err)
	require.True(t, inserted)
	return instance
}

func (f *fixture) reserved(t *testing.T, instanceID int64) *model.ScheduleInstance {
	t.Helper()

	instance, err := f.store.Instances().GetByID(context.Background(), instanceID)
	require.NoError(t, err)
	require.NotNil(t, instance)
	return instance
}

func (f *fixture) booking(t *testing.T, id int64) *model.Booking {
	t.Helper()

	booking, err := f.store.Bookings().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, booking)
	return booking
}

func reserveRequest(instanceID int64, passengers int, key string) ReserveRequest {
	return ReserveRequest{
		CustomerName:   "Anna Petrova",
		Phone:          "+7 (999) 123-45-67",
		PassengerCount: passengers,
		InstanceID:     instanceID,
		IdempotencyKey: key,
		RoomNumber:     "214",
	}
}

func (f *fixture) reserve(t *testing.T, instanceID int64, passengers int) *model.Booking {
	t.Helper()

	res, err := f.reservations.Reserve(context.Background(), reserveRequest(instanceID, passengers, fmt.Sprintf("key-%d", keySeq.Add(1))))
	require.NoError(t, err)
	require.False(t, res.Duplicate)
	return res.Booking
}
