package httpapi

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/shuttle_booking/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	codeValidation     = "validation_failed"
	codeNotBookable    = "schedule_not_bookable"
	codeInsufficient   = "insufficient_capacity"
	codeNotFound       = "not_found"
	codeCancelled      = "booking_cancelled"
	codeNotCancellable = "instance_not_cancellable"
	codeLedgerBounds   = "ledger_out_of_bounds"
	codeUnauthorized   = "unauthorized"
	codeForbidden      = "forbidden"
	codeInternal       = "internal_error"
)

// ErrorResponse единый формат ошибки API
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: GetRequestID(c),
	})
}

// respondServiceError переводит ошибки сервисов в HTTP ответ; текст внутренних ошибок не раскрывается
func (h *Handler) respondServiceError(c *gin.Context, err error) {
	switch {
	case service.IsValidation(err):
		respondError(c, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, service.ErrScheduleNotBookable):
		respondError(c, http.StatusConflict, codeNotBookable, err.Error())
	case errors.Is(err, service.ErrInsufficientCapacity):
		respondError(c, http.StatusConflict, codeInsufficient, err.Error())
	case errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrInstanceNotFound),
		errors.Is(err, service.ErrTemplateNotFound):
		respondError(c, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, service.ErrBookingCancelled):
		respondError(c, http.StatusConflict, codeCancelled, err.Error())
	case errors.Is(err, service.ErrInstanceNotCancellable):
		respondError(c, http.StatusConflict, codeNotCancellable, err.Error())
	case errors.Is(err, service.ErrLedgerBounds):
		respondError(c, http.StatusConflict, codeLedgerBounds, err.Error())
	default:
		h.logger.Error("Request failed",
			zap.Error(err),
			zap.String("request_id", GetRequestID(c)),
			zap.String("path", c.FullPath()),
		)
		respondError(c, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
