package httpapi

import (
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/Freeeeeet/shuttle_booking/internal/service"
)

// bookingView бронирование для гостя: без телефона и внутренних счётчиков
type bookingView struct {
	Code           string                `json:"booking_code"`
	Status         model.BookingStatus   `json:"status"`
	CustomerName   string                `json:"customer_name"`
	RoomNumber     string                `json:"room_number"`
	PassengerCount int                   `json:"passenger_count"`
	Delivery       model.DeliveryState   `json:"delivery"`
	CreatedAt      time.Time             `json:"created_at"`
	CancelledAt    *time.Time            `json:"cancelled_at,omitempty"`
	Schedule       *service.InstanceView `json:"schedule,omitempty"`
}

// adminBookingView бронирование для оператора со статусом доставки
type adminBookingView struct {
	*model.Booking
	Delivery model.DeliveryState `json:"delivery"`
}

func (h *Handler) bookingView(b *model.Booking) bookingView {
	view := bookingView{
		Code:           b.Code,
		Status:         b.Status,
		CustomerName:   b.CustomerName,
		RoomNumber:     b.RoomNumber,
		PassengerCount: b.PassengerCount,
		Delivery:       b.DeliveryState(h.queue.MaxAttempts()),
		CreatedAt:      b.CreatedAt,
		CancelledAt:    b.CancelledAt,
	}
	if b.Instance != nil {
		schedule := h.lifecycle.View(b.Instance, h.clock.Now())
		view.Schedule = &schedule
	}
	return view
}

func (h *Handler) adminBookingView(b *model.Booking) adminBookingView {
	return adminBookingView{Booking: b, Delivery: b.DeliveryState(h.queue.MaxAttempts())}
}
