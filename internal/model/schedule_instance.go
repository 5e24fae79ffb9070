package model

import "time"

type InstanceStatus string

const (
	InstanceStatusActive    InstanceStatus = "active"    // Открыт для бронирования
	InstanceStatusFull      InstanceStatus = "full"      // Все места заняты
	InstanceStatusExpired   InstanceStatus = "expired"   // Посадка закрыта
	InstanceStatusCancelled InstanceStatus = "cancelled" // Отменён оператором
)

// IsTerminal сообщает, что из статуса нет переходов
func (s InstanceStatus) IsTerminal() bool {
	return s == InstanceStatusExpired || s == InstanceStatusCancelled
}

// CanTransitionTo проверяет допустимость перехода жизненного цикла рейса
func (s InstanceStatus) CanTransitionTo(next InstanceStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case InstanceStatusActive:
		return next == InstanceStatusFull || next == InstanceStatusExpired || next == InstanceStatusCancelled
	case InstanceStatusFull:
		return next == InstanceStatusActive || next == InstanceStatusExpired || next == InstanceStatusCancelled
	default:
		return false
	}
}

// ScheduleInstance представляет конкретный рейс (шаблон × дата)
type ScheduleInstance struct {
	ID          int64          `json:"id"`
	TemplateID  int64          `json:"template_id"`
	Hotel       string         `json:"hotel"`
	Destination string         `json:"destination"`
	ServiceDate time.Time      `json:"service_date"` // дата рейса, полночь UTC
	DepartsAt   time.Time      `json:"departs_at"`
	MaxCapacity int            `json:"max_capacity"` // копируется из шаблона при генерации
	Reserved    int            `json:"reserved"`
	Status      InstanceStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Available возвращает количество свободных мест
func (i *ScheduleInstance) Available() int {
	if i.Reserved >= i.MaxCapacity {
		return 0
	}
	return i.MaxCapacity - i.Reserved
}

// BoardingCutoff возвращает момент закрытия посадки
func (i *ScheduleInstance) BoardingCutoff(lead time.Duration) time.Time {
	return i.DepartsAt.Add(-lead)
}

// EffectiveStatus вычисляет статус с учётом времени: рейс после закрытия посадки
// считается истёкшим, даже если фоновая очистка ещё не записала это в базу
func (i *ScheduleInstance) EffectiveStatus(now time.Time, lead time.Duration) InstanceStatus {
	if i.Status.IsTerminal() {
		return i.Status
	}
	if !now.Before(i.BoardingCutoff(lead)) {
		return InstanceStatusExpired
	}
	return i.Status
}

// IsBookable true только для активного рейса строго до закрытия посадки
func (i *ScheduleInstance) IsBookable(now time.Time, lead time.Duration) bool {
	return i.EffectiveStatus(now, lead) == InstanceStatusActive
}

// StatusForReserved пересчитывает статус после изменения занятых мест.
// Терминальные статусы не меняются.
func StatusForReserved(current InstanceStatus, reserved, maxCapacity int) InstanceStatus {
	if current.IsTerminal() {
		return current
	}
	if reserved >= maxCapacity {
		return InstanceStatusFull
	}
	return InstanceStatusActive
}

// DateOnly приводит время к полуночи UTC той же календарной даты
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
