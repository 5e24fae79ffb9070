package httpapi

import (
	"strconv"
	"time"

	"github.com/Freeeeeet/shuttle_booking/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Handler HTTP обработчики поверх сервисов бронирования
type Handler struct {
	reservations *service.ReservationService
	schedules    *service.ScheduleService
	lifecycle    *service.ScheduleLifecycle
	queue        *service.NotificationQueue
	clock        clockwork.Clock
	batchSize    int
	logger       *zap.Logger
}

func NewHandler(
	reservations *service.ReservationService,
	schedules *service.ScheduleService,
	lifecycle *service.ScheduleLifecycle,
	queue *service.NotificationQueue,
	clk clockwork.Clock,
	batchSize int,
	logger *zap.Logger,
) *Handler {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Handler{
		reservations: reservations,
		schedules:    schedules,
		lifecycle:    lifecycle,
		queue:        queue,
		clock:        clk,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// today текущая дата по часовому поясу отеля
func (h *Handler) today() time.Time {
	return h.lifecycle.Today(h.clock.Now())
}

// parseDate разбирает YYYY-MM-DD; пустая строка означает сегодня
func (h *Handler) parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return h.today(), nil
	}
	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, &service.ValidationError{Field: "date", Msg: "must be YYYY-MM-DD"}
	}
	return date, nil
}

func paramID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Field: "id", Msg: "must be a positive integer"}
	}
	return id, nil
}
