package app

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/Freeeeeet/shuttle_booking/internal/notifier"
	"github.com/Freeeeeet/shuttle_booking/internal/repository/memory"
	"github.com/Freeeeeet/shuttle_booking/internal/service"
	"github.com/Freeeeeet/shuttle_booking/internal/ticket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSchedulerGeneratesOnStartAndStops(t *testing.T) {
	logger := zap.NewNop()
	clk := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	store := memory.NewStore(clk)

	lifecycle := service.NewScheduleLifecycle(store.Instances(), service.DefaultBoardingLead, time.UTC, clk, logger)
	schedules := service.NewScheduleService(store.Templates(), store.Instances(), lifecycle, clk, logger)
	queue := service.NewNotificationQueue(store.Bookings(), store.Instances(), notifier.NewLog(logger),
		ticket.NewRenderer(time.UTC, service.DefaultBoardingLead), service.QueueConfig{}, logger)

	ctx := context.Background()
	require.NoError(t, schedules.CreateTemplate(ctx, &model.ScheduleTemplate{
		Hotel:         "Seaside",
		Destination:   "Airport",
		DepartureHour: 18,
		MaxCapacity:   10,
	}))

	scheduler := NewScheduler(schedules, lifecycle, queue, SchedulerConfig{
		DaysAhead:     3,
		SweepInterval: time.Hour,
		BatchInterval: time.Hour,
		BatchSize:     10,
	}, logger)

	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	assert.Eventually(t, func() bool {
		instances, err := store.Instances().ListByDate(ctx, time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC))
		return err == nil && len(instances) == 1
	}, 2*time.Second, 10*time.Millisecond)

	scheduler.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
