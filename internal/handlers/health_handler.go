package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sendback/service-dashboard/internal/domain/upstream"
)

// HealthHandler reports service liveness.
type HealthHandler struct {
	service string
	limiter *upstream.RateLimiter
	flows   interface{ Count() int }
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(service string, limiter *upstream.RateLimiter, flows interface{ Count() int }) *HealthHandler {
	return &HealthHandler{service: service, limiter: limiter, flows: flows}
}

// Health returns service status
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"service": h.service,
	}
	if h.flows != nil {
		body["active_flows"] = h.flows.Count()
	}
	if h.limiter != nil {
		body["rate_limits"] = h.limiter.GetStatus()
	}
	c.JSON(http.StatusOK, body)
}
