package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReserve_Success(t *testing.T) {
	f := newFixture(t)
	instance := f.instance(t, 10, 2*time.Hour)

	res, err := f.reservations.Reserve(context.Background(), reserveRequest(instance.ID, 3, "key-1"))
	require.NoError(t, err)

	assert.False(t, res.Duplicate)
	assert.Regexp(t, `^SHT[A-HJ-NP-Z2-9]{8}$`, res.Code)
	assert.Equal(t, "79991234567", res.Booking.Phone)
	assert.Equal(t, model.BookingStatusConfirmed, res.Booking.Status)
	assert.Equal(t, 3, f.reserved(t, instance.ID).Reserved)
}

func TestReserve_Validation(t *testing.T) {
	f := newFixture(t)
	instance := f.instance(t, 10, 2*time.Hour)

	tests := []struct {
		name   string
		mutate func(*ReserveRequest)
	}{
		{"empty name", func(r *ReserveRequest) { r.CustomerName = "  " }},
		{"zero passengers", func(r *ReserveRequest) { r.PassengerCount = 0 }},
		{"too many passengers", func(r *ReserveRequest) { r.PassengerCount = MaxPassengers + 1 }},
		{"bad phone", func(r *ReserveRequest) { r.Phone = "12ab" }},
		{"missing key", func(r *ReserveRequest) { r.IdempotencyKey = "" }},
		{"missing instance", func(r *ReserveRequest) { r.InstanceID = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := reserveRequest(instance.ID, 1, "key-"+tt.name)
			tt.mutate(&req)

			_, err := f.reservations.Reserve(context.Background(), req)
			assert.True(t, IsValidation(err), "expected validation error, got %v", err)
		})
	}

	assert.Equal(t, 0, f.reserved(t, instance.ID).Reserved)
}

func TestReserve_CapacityScenario(t *testing.T) {
	f := newFixture(t)
	instance := f.instance(t, 2, 2*time.Hour)

	_, err := f.reservations.Reserve(context.Background(), reserveRequest(instance.ID, 1, "a"))
	require.NoError(t, err)

	_, err = f.reservations.Reserve(context.Background(), reserveRequest(instance.ID, 2, "b"))
	assert.ErrorIs(t, err, ErrInsufficientCapacity)

	_, err = f.reservations.Reserve(context.Background(), reserveRequest(instance.ID, 1, "c"))
	require.NoError(t, err)

	current := f.reserved(t, instance.ID)
	assert.Equal(t, 2, current.Reserved)
	assert.Equal(t, model.InstanceStatusFull, current.Status)

	_, err = f.reservations.Reserve(context.Background(), reserveRequest(instance.ID, 1, "d"))
	assert.ErrorIs(t, err, ErrScheduleNotBookable)
}

func TestReserve_BoardingCutoff(t *testing.T) {
	f := newFixture(t)

	passed := f.instance(t, 10, DefaultBoardingLead-time.Second)
	_, err := f.reservations.Reserve(context.Background(), reserveRequest(passed.ID, 1, "passed"))
	assert.ErrorIs(t, err, ErrScheduleNotBookable)

	exact := f.instance(t, 10, DefaultBoardingLead)
	_, err = f.reservations.Reserve(context.Background(), reserveRequest(exact.ID, 1, "exact"))
	assert.ErrorIs(t, err, ErrScheduleNotBookable)

	open := f.instance(t, 10, DefaultBoardingLead+time.Second)
	_, err = f.reservations.Reserve(context.Background(), reserveRequest(open.ID, 1, "open"))
	assert.NoError(t, err)

	assert.Equal(t, 0, f.reserved(t, passed.ID).Reserved)
	assert.Equal(t, 0, f.reserved(t, exact.ID).Reserved)
}

func TestReserve_UnknownInstance(t *testing.T) {
	f := newFixture(t)

	_, err := f.reservations.Reserve(context.Background(), reserveRequest(404, 1, "k"))
	assert.ErrorIs(t, err, ErrScheduleNotBookable)
}

func TestReserve_NoOversellUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	instance := f.instance(t, 10, 2*time.Hour)

	const requests = 40
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		rejected int
	)

	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			_, err := f.reservations.Reserve(context.Background(), reserveRequest(instance.ID, 1, fmt.Sprintf("guest-%d", i)))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, ErrInsufficientCapacity), errors.Is(err, ErrScheduleNotBookable):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, accepted)
	assert.Equal(t, requests-10, rejected)

	current := f.reserved(t, instance.ID)
	assert.Equal(t, 10, current.Reserved)
	assert.Equal(t, model.InstanceStatusFull, current.Status)
}

func TestReserve_SameKeyConcurrent(t *testing.T) {
	f := newFixture(t)
	instance := f.instance(t, 10, 2*time.Hour)

	const requests = 10
	codes := make([]string, requests)

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			res, err := f.reservations.Reserve(context.Background(), reserveRequest(instance.ID, 1, "same-key"))
			if assert.NoError(t, err) {
				codes[i] = res.Code
			}
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, codes[0], code)
	}
	assert.Equal(t, 1, f.reserved(t, instance.ID).Reserved)
}

func TestReserve_DuplicateKeyReturnsOriginalCode(t *testing.T) {
	f := newFixture(t)
	instance := f.instance(t, 10, 2*time.Hour)

	first, err := f.reservations.Reserve(context.Background(), reserveRequest(instance.ID, 1, "retry-key"))
	require.NoError(t, err)

	// Повтор с другим числом пассажиров всё равно возвращает исходное бронирование
	second, err := f.reservations.Reserve(context.Background(), reserveRequest(instance.ID, 4, "retry-key"))
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, 1, f.reserved(t, instance.ID).Reserved)

	code, found, err := f.reservations.LookupByKey(context.Background(), "retry-key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, first.Code, code)
}

func TestCancel_ReleasesSeatsOnce(t *testing.T) {
	f := newFixture(t)
	instance := f.instance(t, 4, 2*time.Hour)
	booking := f.reserve(t, instance.ID, 2)

	const callers = 8
	outcomes := make(chan CancelOutcome, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			outcome, err := f.reservations.Cancel(context.Background(), booking.ID)
			if assert.NoError(t, err) {
				outcomes <- outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	counts := map[CancelOutcome]int{}
	for outcome := range outcomes {
		counts[outcome]++
	}
	assert.Equal(t, 1, counts[CancelOutcomeCancelled])
	assert.Equal(t, callers-1, counts[CancelOutcomeAlreadyCancelled])

	assert.Equal(t, 0, f.reserved(t, instance.ID).Reserved)

	got := f.booking(t, booking.ID)
	assert.Equal(t, model.BookingStatusCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)
}

func TestCancel_FullInstanceReopens(t *testing.T) {
	f := newFixture(t)
	instance := f.instance(t, 2, 2*time.Hour)
	booking := f.reserve(t, instance.ID, 2)
	require.Equal(t, model.InstanceStatusFull, f.reserved(t, instance.ID).Status)

	outcome, err := f.reservations.CancelByCode(context.Background(), booking.Code)
	require.NoError(t, err)
	assert.Equal(t, CancelOutcomeCancelled, outcome)

	current := f.reserved(t, instance.ID)
	assert.Equal(t, 0, current.Reserved)
	assert.Equal(t, model.InstanceStatusActive, current.Status)
}

func TestCancel_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.reservations.Cancel(context.Background(), 42)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	_, err = f.reservations.CancelByCode(context.Background(), "SHTNOPE2222")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCancelInstance_Cascade(t *testing.T) {
	f := newFixture(t)
	instance := f.instance(t, 10, 2*time.Hour)
	first := f.reserve(t, instance.ID, 2)
	second := f.reserve(t, instance.ID, 3)

	outcome, err := f.reservations.CancelInstance(context.Background(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, CancelOutcomeCancelled, outcome)

	current := f.reserved(t, instance.ID)
	assert.Equal(t, model.InstanceStatusCancelled, current.Status)
	assert.Equal(t, 0, current.Reserved)

	assert.Equal(t, model.BookingStatusCancelled, f.booking(t, first.ID).Status)
	assert.Equal(t, model.BookingStatusCancelled, f.booking(t, second.ID).Status)

	outcome, err = f.reservations.CancelInstance(context.Background(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, CancelOutcomeAlreadyCancelled, outcome)

	_, err = f.reservations.Reserve(context.Background(), reserveRequest(instance.ID, 1, "after-cancel"))
	assert.ErrorIs(t, err, ErrScheduleNotBookable)
}

// lockLog пишет порядок, в котором сервис трогает рейс и бронирования
type lockLog struct {
	mu     sync.Mutex
	events []string
}

func (l *lockLog) add(event string) {
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

type loggedInstances struct {
	InstanceStore
	log *lockLog
}

func (s loggedInstances) GetForUpdate(ctx context.Context, id int64) (*model.ScheduleInstance, error) {
	s.log.add("instance")
	return s.InstanceStore.GetForUpdate(ctx, id)
}

type loggedBookings struct {
	BookingStore
	log *lockLog
}

func (s loggedBookings) MarkCancelled(ctx context.Context, id int64, at time.Time) (bool, error) {
	s.log.add("booking")
	return s.BookingStore.MarkCancelled(ctx, id, at)
}

func (s loggedBookings) CancelAllForInstance(ctx context.Context, instanceID int64, at time.Time) (int, int, error) {
	s.log.add("booking")
	return s.BookingStore.CancelAllForInstance(ctx, instanceID, at)
}

func TestCancel_LocksInstanceBeforeBooking(t *testing.T) {
	f := newFixture(t)
	first := f.instance(t, 10, 2*time.Hour)
	second := f.instance(t, 10, 3*time.Hour)
	booking := f.reserve(t, first.ID, 2)
	f.reserve(t, second.ID, 1)

	logger := zap.NewNop()
	log := &lockLog{}
	svc := NewReservationService(
		f.store,
		loggedInstances{InstanceStore: f.store.Instances(), log: log},
		loggedBookings{BookingStore: f.store.Bookings(), log: log},
		NewIdempotencyGuard(f.store.Bookings()),
		NewCapacityLedger(f.store.Instances(), DefaultBoardingLead, logger),
		f.lifecycle, f.queue, logger,
		WithClock(f.clock),
	)

	outcome, err := svc.Cancel(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, CancelOutcomeCancelled, outcome)
	assert.Equal(t, []string{"instance", "booking"}, log.events)

	log.events = nil
	outcome, err = svc.CancelInstance(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, CancelOutcomeCancelled, outcome)
	assert.Equal(t, []string{"instance", "booking"}, log.events)
}

func TestCancelInstance_Expired(t *testing.T) {
	f := newFixture(t)
	instance := f.instance(t, 10, 10*time.Minute)

	_, err := f.reservations.CancelInstance(context.Background(), instance.ID)
	assert.ErrorIs(t, err, ErrInstanceNotCancellable)

	_, err = f.reservations.CancelInstance(context.Background(), 404)
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestAdjustCapacity(t *testing.T) {
	f := newFixture(t)
	instance := f.instance(t, 3, 2*time.Hour)

	updated, err := f.reservations.AdjustCapacity(context.Background(), instance.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Reserved)
	assert.Equal(t, model.InstanceStatusFull, updated.Status)

	_, err = f.reservations.AdjustCapacity(context.Background(), instance.ID, 1)
	assert.ErrorIs(t, err, ErrLedgerBounds)

	_, err = f.reservations.AdjustCapacity(context.Background(), instance.ID, -4)
	assert.ErrorIs(t, err, ErrLedgerBounds)

	_, err = f.reservations.AdjustCapacity(context.Background(), instance.ID, 0)
	assert.True(t, IsValidation(err))

	_, err = f.reservations.AdjustCapacity(context.Background(), 404, 1)
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestListSchedules_EffectiveStatus(t *testing.T) {
	f := newFixture(t)
	soon := f.instance(t, 5, 10*time.Minute)
	later := f.instance(t, 5, 3*time.Hour)

	views, err := f.reservations.ListSchedules(context.Background(), testNow)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, soon.ID, views[0].ID)
	assert.Equal(t, model.InstanceStatusExpired, views[0].EffectiveStatus)
	assert.False(t, views[0].Bookable)

	assert.Equal(t, later.ID, views[1].ID)
	assert.Equal(t, model.InstanceStatusActive, views[1].EffectiveStatus)
	assert.Equal(t, 5, views[1].Available)
	assert.True(t, views[1].Bookable)
}

func TestGetByCode(t *testing.T) {
	f := newFixture(t)
	instance := f.instance(t, 5, 2*time.Hour)
	booking := f.reserve(t, instance.ID, 1)

	got, err := f.reservations.GetByCode(context.Background(), " "+booking.Code+" ")
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)
	require.NotNil(t, got.Instance)
	assert.Equal(t, instance.ID, got.Instance.ID)

	_, err = f.reservations.GetByCode(context.Background(), "SHTNOPE2222")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}
