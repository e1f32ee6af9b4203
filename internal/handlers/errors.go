package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sendback/service-dashboard/internal/domain/returns"
	"github.com/sendback/service-dashboard/internal/domain/upstream"
	"github.com/sendback/service-dashboard/internal/services"
)

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	var subErr *returns.SubmissionError
	switch {
	case errors.As(err, &subErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, returns.ErrNotFound), errors.Is(err, services.ErrFlowNotFound),
		errors.Is(err, upstream.ErrResourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, returns.ErrSubmissionInFlight), errors.Is(err, returns.ErrGuardViolation):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// respondError writes err as a JSON error body.
func respondError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, zap.Error(err))
	} else {
		logger.Debug(msg, zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
