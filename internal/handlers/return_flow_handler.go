package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sendback/service-dashboard/internal/domain/returns"
	"github.com/sendback/service-dashboard/internal/returnflow"
	"github.com/sendback/service-dashboard/internal/services"
)

// ReturnFlowHandler exposes return flow sessions.
type ReturnFlowHandler struct {
	flows  *services.ReturnFlowService
	logger *zap.Logger
}

// NewReturnFlowHandler creates a new ReturnFlowHandler
func NewReturnFlowHandler(flows *services.ReturnFlowService, logger *zap.Logger) *ReturnFlowHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReturnFlowHandler{flows: flows, logger: logger}
}

// OpenFlow aggregates the order and opens a flow session
// POST /api/v1/orders/:id/return-flow
func (h *ReturnFlowHandler) OpenFlow(c *gin.Context) {
	id, controller, err := h.flows.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "Failed to open return flow", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"flow_id":  id,
		"snapshot": controller.Snapshot(),
	})
}

// GetFlow returns the current snapshot
// GET /api/v1/return-flows/:flow_id
func (h *ReturnFlowHandler) GetFlow(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshot": controller.Snapshot()})
}

// Start begins item selection
// POST /api/v1/return-flows/:flow_id/start
func (h *ReturnFlowHandler) Start(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}
	h.respond(c, controller, controller.Start())
}

// ToggleItem adds or removes an item from the selection
// POST /api/v1/return-flows/:flow_id/items/:item_id/toggle
func (h *ReturnFlowHandler) ToggleItem(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}
	itemID, err := strconv.ParseInt(c.Param("item_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}
	h.respond(c, controller, controller.ToggleItem(itemID))
}

// SelectOption chooses a return option by position
// POST /api/v1/return-flows/:flow_id/options/:index/select
func (h *ReturnFlowHandler) SelectOption(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid option index"})
		return
	}

	selection, err := controller.SelectOption(index)
	if err != nil {
		respondError(c, h.logger, "Option rejected", err)
		return
	}

	body := gin.H{"snapshot": controller.Snapshot()}
	if selection.OpenURL != "" {
		body["open_url"] = selection.OpenURL
	}
	c.JSON(http.StatusOK, body)
}

// Continue submits the selection
// POST /api/v1/return-flows/:flow_id/continue
func (h *ReturnFlowHandler) Continue(c *gin.Context) {
	controller, ok := h.controller(c)
	if !ok {
		return
	}

	result, err := controller.Continue(c.Request.Context())
	if err != nil {
		var subErr *returns.SubmissionError
		if errors.As(err, &subErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"message":  subErr.Message,
				"snapshot": controller.Snapshot(),
			})
			return
		}
		respondError(c, h.logger, "Continue rejected", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"next":     result.Next,
		"snapshot": controller.Snapshot(),
	})
}

// CloseFlow discards the session
// DELETE /api/v1/return-flows/:flow_id
func (h *ReturnFlowHandler) CloseFlow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("flow_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flow ID"})
		return
	}
	if !h.flows.Close(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Return flow not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReturnFlowHandler) controller(c *gin.Context) (*returnflow.Controller, bool) {
	id, err := uuid.Parse(c.Param("flow_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flow ID"})
		return nil, false
	}
	controller, err := h.flows.Get(id)
	if err != nil {
		respondError(c, h.logger, "Return flow lookup failed", err)
		return nil, false
	}
	return controller, true
}

func (h *ReturnFlowHandler) respond(c *gin.Context, controller *returnflow.Controller, err error) {
	if err != nil {
		respondError(c, h.logger, "Transition rejected", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshot": controller.Snapshot()})
}
