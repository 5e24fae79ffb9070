package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetBooking GET /api/bookings/:code
func (h *Handler) GetBooking(c *gin.Context) {
	booking, err := h.reservations.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.bookingView(booking))
}

// CancelBooking POST /api/bookings/:code/cancel
func (h *Handler) CancelBooking(c *gin.Context) {
	outcome, err := h.reservations.CancelByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": outcome.String()})
}

// ResendBooking POST /api/bookings/:code/resend
func (h *Handler) ResendBooking(c *gin.Context) {
	booking, err := h.reservations.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	updated, err := h.queue.Resend(c.Request.Context(), booking.ID)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	updated.Instance = booking.Instance
	c.JSON(http.StatusOK, h.bookingView(updated))
}
