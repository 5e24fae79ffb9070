package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"go.uber.org/zap"
)

// CapacityLedger владеет счётчиком занятых мест рейса.
// Все изменения идут через условную операцию хранилища, без чтения перед записью.
type CapacityLedger struct {
	instances InstanceStore
	lead      time.Duration
	logger    *zap.Logger
}

func NewCapacityLedger(instances InstanceStore, lead time.Duration, logger *zap.Logger) *CapacityLedger {
	return &CapacityLedger{
		instances: instances,
		lead:      lead,
		logger:    logger,
	}
}

// TryReserve занимает seats мест, если они есть и рейс ещё открыт для бронирования.
// Проверка статуса и закрытия посадки повторяется внутри той же атомарной операции.
func (l *CapacityLedger) TryReserve(ctx context.Context, instanceID int64, seats int, now time.Time) (model.LedgerResult, error) {
	if seats <= 0 {
		return 0, fmt.Errorf("seats must be positive, got %d", seats)
	}

	result, err := l.instances.TryIncrement(ctx, instanceID, seats, now.Add(l.lead))
	if err != nil {
		return 0, fmt.Errorf("try increment reserved: %w", err)
	}

	l.logger.Debug("Ledger reserve",
		zap.Int64("instance_id", instanceID),
		zap.Int("seats", seats),
		zap.Stringer("result", result),
	)

	return result, nil
}

// Release возвращает seats мест в рейс
func (l *CapacityLedger) Release(ctx context.Context, instanceID int64, seats int) (model.LedgerResult, error) {
	if seats <= 0 {
		return 0, fmt.Errorf("seats must be positive, got %d", seats)
	}

	result, err := l.instances.Adjust(ctx, instanceID, -seats)
	if err != nil {
		return 0, fmt.Errorf("release reserved: %w", err)
	}

	l.logger.Debug("Ledger release",
		zap.Int64("instance_id", instanceID),
		zap.Int("seats", seats),
		zap.Stringer("result", result),
	)

	return result, nil
}

// Adjust изменяет счётчик на delta в пределах 0..max_capacity без проверки жизненного цикла
func (l *CapacityLedger) Adjust(ctx context.Context, instanceID int64, delta int) (model.LedgerResult, error) {
	if delta == 0 {
		return 0, &ValidationError{Field: "delta", Msg: "must not be zero"}
	}

	result, err := l.instances.Adjust(ctx, instanceID, delta)
	if err != nil {
		return 0, fmt.Errorf("adjust reserved: %w", err)
	}

	l.logger.Info("Ledger adjusted",
		zap.Int64("instance_id", instanceID),
		zap.Int("delta", delta),
		zap.Stringer("result", result),
	)

	return result, nil
}
