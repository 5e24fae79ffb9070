package httpapi

import (
	"net/http"
	"strconv"

	"github.com/Freeeeeet/shuttle_booking/internal/model"
	"github.com/Freeeeeet/shuttle_booking/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type capacityRequest struct {
	Delta int `json:"delta"`
}

// AdjustCapacity POST /api/admin/instances/:id/capacity
func (h *Handler) AdjustCapacity(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	var req capacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	instance, err := h.reservations.AdjustCapacity(c.Request.Context(), id, req.Delta)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.logger.Info("Capacity adjusted by operator",
		zap.String("operator", c.GetString(operatorKey)),
		zap.Int64("instance_id", id),
		zap.Int("delta", req.Delta),
	)

	c.JSON(http.StatusOK, h.lifecycle.View(instance, h.clock.Now()))
}

// CancelBookingByID POST /api/admin/bookings/:id/cancel
func (h *Handler) CancelBookingByID(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	outcome, err := h.reservations.Cancel(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": outcome.String()})
}

// CancelInstance POST /api/admin/instances/:id/cancel
func (h *Handler) CancelInstance(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	outcome, err := h.reservations.CancelInstance(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	h.logger.Info("Schedule instance cancelled by operator",
		zap.String("operator", c.GetString(operatorKey)),
		zap.Int64("instance_id", id),
		zap.Stringer("outcome", outcome),
	)

	c.JSON(http.StatusOK, gin.H{"result": outcome.String()})
}

// ResendBookingByID POST /api/admin/bookings/:id/resend
func (h *Handler) ResendBookingByID(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	booking, err := h.queue.Resend(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.adminBookingView(booking))
}

// ListFailedNotifications GET /api/admin/notifications/failed
func (h *Handler) ListFailedNotifications(c *gin.Context) {
	bookings, err := h.queue.ListFailed(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	views := make([]adminBookingView, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, h.adminBookingView(b))
	}

	c.JSON(http.StatusOK, gin.H{"bookings": views})
}

type templateRequest struct {
	Hotel           string `json:"hotel"`
	Destination     string `json:"destination"`
	DepartureHour   int    `json:"departure_hour"`
	DepartureMinute int    `json:"departure_minute"`
	MaxCapacity     int    `json:"max_capacity"`
	IsActive        *bool  `json:"is_active"`
}

// toModel без флага активности: при создании шаблон всегда активен,
// при обновлении флаг меняется только если передан is_active
func (r templateRequest) toModel() *model.ScheduleTemplate {
	return &model.ScheduleTemplate{
		Hotel:           r.Hotel,
		Destination:     r.Destination,
		DepartureHour:   r.DepartureHour,
		DepartureMinute: r.DepartureMinute,
		MaxCapacity:     r.MaxCapacity,
	}
}

// ListTemplates GET /api/admin/templates
func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.schedules.ListTemplates(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}
	if templates == nil {
		templates = []*model.ScheduleTemplate{}
	}

	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// CreateTemplate POST /api/admin/templates
func (h *Handler) CreateTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	template := req.toModel()
	if err := h.schedules.CreateTemplate(c.Request.Context(), template); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, template)
}

// UpdateTemplate PUT /api/admin/templates/:id
func (h *Handler) UpdateTemplate(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	template := req.toModel()
	template.ID = id
	if err := h.schedules.UpdateTemplate(c.Request.Context(), template, req.IsActive); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, template)
}

// DeactivateTemplate POST /api/admin/templates/:id/deactivate
func (h *Handler) DeactivateTemplate(c *gin.Context) {
	id, err := paramID(c)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	if err := h.schedules.DeactivateTemplate(c.Request.Context(), id); err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type generateRequest struct {
	StartDate string `json:"start_date"`
	Days      int    `json:"days"`
}

// GenerateSchedules POST /api/admin/schedules/generate
func (h *Handler) GenerateSchedules(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}

	start, err := h.parseDate(req.StartDate)
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	result, err := h.schedules.Generate(c.Request.Context(), start, req.Days)
	if err != nil && result.Failed == 0 {
		h.respondServiceError(c, err)
		return
	}
	if err != nil {
		// часть рейсов не создана; повторный запуск безопасен и досоздаст их
		h.logger.Error("Schedule generation partially failed",
			zap.Error(err),
			zap.Int("created", result.Created),
			zap.Int("failed", result.Failed),
			zap.String("request_id", GetRequestID(c)),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"created":    result.Created,
			"failed":     result.Failed,
			"error":      "some schedule instances were not created",
			"code":       codeInternal,
			"request_id": GetRequestID(c),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ProcessNotifications POST /api/cron/notifications
func (h *Handler) ProcessNotifications(c *gin.Context) {
	limit := h.batchSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.respondServiceError(c, &service.ValidationError{Field: "limit", Msg: "must be an integer"})
			return
		}
		limit = n
	}

	result, err := h.queue.ProcessBatch(c.Request.Context(), limit, h.queue.MaxAttempts())
	if err != nil {
		h.respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
