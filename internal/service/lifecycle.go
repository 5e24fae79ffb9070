package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const DefaultBoardingLead = 20 * time.Minute

// InstanceView рейс с вычисленным статусом для чтения
type InstanceView struct {
	*model.ScheduleInstance
	EffectiveStatus model.InstanceStatus `json:"effective_status"`
	Available       int                  `json:"available"`
	BoardingCutoff  time.Time            `json:"boarding_cutoff"`
	Bookable        bool                 `json:"bookable"`
}

// ScheduleLifecycle вычисляет и применяет статусы рейсов: active, full, expired, cancelled
type ScheduleLifecycle struct {
	instances InstanceStore
	lead      time.Duration
	location  *time.Location
	clock     clockwork.Clock
	logger    *zap.Logger
}

func NewScheduleLifecycle(instances InstanceStore, lead time.Duration, location *time.Location, clk clockwork.Clock, logger *zap.Logger) *ScheduleLifecycle {
	if location == nil {
		location = time.UTC
	}
	return &ScheduleLifecycle{
		instances: instances,
		lead:      lead,
		location:  location,
		clock:     clk,
		logger:    logger,
	}
}

// Lead возвращает окно закрытия посадки до отправления
func (l *ScheduleLifecycle) Lead() time.Duration {
	return l.lead
}

// Location возвращает часовой пояс отеля
func (l *ScheduleLifecycle) Location() *time.Location {
	return l.location
}

// IsBookable true только для активного рейса строго до закрытия посадки
func (l *ScheduleLifecycle) IsBookable(instance *model.ScheduleInstance, now time.Time) bool {
	return instance.IsBookable(now, l.lead)
}

// EffectiveStatus статус рейса с учётом текущего времени
func (l *ScheduleLifecycle) EffectiveStatus(instance *model.ScheduleInstance, now time.Time) model.InstanceStatus {
	return instance.EffectiveStatus(now, l.lead)
}

// Today возвращает текущую дату по часовому поясу отеля
func (l *ScheduleLifecycle) Today(now time.Time) time.Time {
	return model.DateOnly(now.In(l.location))
}

// CheckCancellable проверяет, что оператор может отменить рейс
func (l *ScheduleLifecycle) CheckCancellable(instance *model.ScheduleInstance, now time.Time) error {
	status := l.EffectiveStatus(instance, now)
	if !status.CanTransitionTo(model.InstanceStatusCancelled) {
		return ErrInstanceNotCancellable
	}
	if instance.ServiceDate.Before(l.Today(now)) {
		return ErrInstanceNotCancellable
	}
	return nil
}

// View собирает представление рейса для API
func (l *ScheduleLifecycle) View(instance *model.ScheduleInstance, now time.Time) InstanceView {
	status := l.EffectiveStatus(instance, now)
	return InstanceView{
		ScheduleInstance: instance,
		EffectiveStatus:  status,
		Available:        instance.Available(),
		BoardingCutoff:   instance.BoardingCutoff(l.lead),
		Bookable:         status == model.InstanceStatusActive,
	}
}

// SweepExpired записывает статус expired рейсам, у которых закрылась посадка
func (l *ScheduleLifecycle) SweepExpired(ctx context.Context) (int64, error) {
	now := l.clock.Now()

	count, err := l.instances.ExpireDeparted(ctx, now.Add(l.lead))
	if err != nil {
		return 0, fmt.Errorf("expire departed instances: %w", err)
	}

	if count > 0 {
		l.logger.Info("Expired schedule instances",
			zap.Int64("count", count),
			zap.Time("now", now),
		)
	}

	return count, nil
}
