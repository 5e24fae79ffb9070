package handlers

import (
	"github.com/Freeeeeet/shuttle_booking/internal/controller/state"
	"github.com/Freeeeeet/shuttle_booking/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд бота
type Handlers struct {
	subscriberService  *service.SubscriberService
	reservationService *service.ReservationService
	queue              *service.NotificationQueue
	stateManager       *state.Manager
	logger             *zap.Logger
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	subscriberService *service.SubscriberService,
	reservationService *service.ReservationService,
	queue *service.NotificationQueue,
	stateManager *state.Manager,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		subscriberService:  subscriberService,
		reservationService: reservationService,
		queue:              queue,
		stateManager:       stateManager,
		logger:             logger,
	}
}
