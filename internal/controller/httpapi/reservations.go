package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/shuttle_booking/internal/service"
	"github.com/gin-gonic/gin"
)

type reserveRequest struct {
	CustomerName       string `json:"customer_name"`
	Phone              string `json:"phone"`
	PassengerCount     int    `json:"passenger_count"`
	ScheduleInstanceID int64  `json:"schedule_instance_id"`
	IdempotencyKey     string `json:"idempotency_key"`
	RoomNumber         string `json:"room_number"`
	ChannelUnreachable bool   `json:"channel_unreachable"`
}

// Reserve POST /api/reservations
func (h *Handler) Reserve(c *gin.Context) {
	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	res, err := h.reservations.Reserve(c.Request.Context(), service.ReserveRequest{
		CustomerName:       req.CustomerName,
		Phone:              req.Phone,
		PassengerCount:     req.PassengerCount,
		InstanceID:         req.ScheduleInstanceID,
		IdempotencyKey:     req.IdempotencyKey,
		RoomNumber:         req.RoomNumber,
		ChannelUnreachable: req.ChannelUnreachable,
	})
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	if res.Duplicate {
		c.JSON(http.StatusOK, gin.H{"booking_code": res.Code, "duplicate": true})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"booking_code": res.Code,
		"duplicate":    false,
		"booking":      h.bookingView(res.Booking),
	})
}

// LookupByKey GET /api/reservations/by-key/:key
func (h *Handler) LookupByKey(c *gin.Context) {
	code, found, err := h.reservations.LookupByKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	if !found {
		respondError(c, http.StatusNotFound, codeNotFound, "no booking for idempotency key")
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking_code": code})
}

// ListSchedules GET /api/schedules?date=YYYY-MM-DD
func (h *Handler) ListSchedules(c *gin.Context) {
	date, err := h.parseDate(c.Query("date"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	views, err := h.reservations.ListSchedules(c.Request.Context(), date)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":      date.Format("2006-01-02"),
		"schedules": views,
	})
}
