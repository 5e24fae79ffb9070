package service

import (
	"errors"
	"fmt"
)

var (
	ErrScheduleNotBookable    = errors.New("schedule not bookable")
	ErrInsufficientCapacity   = errors.New("insufficient capacity")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrBookingCancelled       = errors.New("booking is cancelled")
	ErrInstanceNotFound       = errors.New("schedule instance not found")
	ErrInstanceNotCancellable = errors.New("schedule instance cannot be cancelled")
	ErrTemplateNotFound       = errors.New("schedule template not found")
	ErrLedgerBounds           = errors.New("reserved seats out of bounds")
)

// ValidationError некорректные входные данные
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// DuplicateKeyError ключ идемпотентности уже использован; Code код исходного бронирования
type DuplicateKeyError struct {
	Code string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("idempotency key already used by booking %s", e.Code)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
