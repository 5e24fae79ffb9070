package model

import (
	"fmt"
	"time"
)

// ScheduleTemplate представляет шаблон ежедневного рейса шаттла
type ScheduleTemplate struct {
	ID              int64     `json:"id"`
	Hotel           string    `json:"hotel"`
	Destination     string    `json:"destination"`
	DepartureHour   int       `json:"departure_hour"`   // 0-23
	DepartureMinute int       `json:"departure_minute"` // 0-59
	MaxCapacity     int       `json:"max_capacity"`
	IsActive        bool      `json:"is_active"` // активен ли шаблон
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DepartureOn возвращает время отправления для указанной даты в часовом поясе отеля
func (t *ScheduleTemplate) DepartureOn(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.DepartureHour, t.DepartureMinute, 0, 0, loc)
}

// DepartureLabel возвращает время отправления в виде HH:MM
func (t *ScheduleTemplate) DepartureLabel() string {
	return fmt.Sprintf("%02d:%02d", t.DepartureHour, t.DepartureMinute)
}

// Validate проверяет поля шаблона
func (t *ScheduleTemplate) Validate() error {
	switch {
	case t.Hotel == "":
		return fmt.Errorf("hotel is required")
	case t.Destination == "":
		return fmt.Errorf("destination is required")
	case t.DepartureHour < 0 || t.DepartureHour > 23:
		return fmt.Errorf("departure hour must be within 0-23")
	case t.DepartureMinute < 0 || t.DepartureMinute > 59:
		return fmt.Errorf("departure minute must be within 0-59")
	case t.MaxCapacity <= 0:
		return fmt.Errorf("max capacity must be positive")
	}
	return nil
}
