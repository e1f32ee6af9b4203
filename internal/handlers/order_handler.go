package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sendback/service-dashboard/internal/clients"
	"github.com/sendback/service-dashboard/internal/domain/returns"
	"github.com/sendback/service-dashboard/internal/services"
)

// maxReceiptBytes bounds an uploaded receipt.
const maxReceiptBytes = 10 << 20

// OrderHandler handles dashboard order API requests
type OrderHandler struct {
	lists    *services.OrderListAggregator
	views    *services.OrderAggregator
	client   *clients.OrderClient
	policies *services.PolicyService
	logger   *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(
	lists *services.OrderListAggregator,
	views *services.OrderAggregator,
	client *clients.OrderClient,
	policies *services.PolicyService,
	logger *zap.Logger,
) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{
		lists:    lists,
		views:    views,
		client:   client,
		policies: policies,
		logger:   logger,
	}
}

// OrderViewResponse is the order page payload.
type OrderViewResponse struct {
	returns.OrderView
	Checklist []string `json:"checklist"`
}

// ListOrders returns the dashboard partition of all orders
// GET /api/v1/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	c.JSON(http.StatusOK, h.lists.FetchOrderList(c.Request.Context()))
}

// GetOrder returns the aggregated order page
// GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	view, err := h.views.FetchOrderView(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "Failed to get order", err)
		return
	}

	c.JSON(http.StatusOK, OrderViewResponse{
		OrderView: view,
		Checklist: returns.Checklist,
	})
}

// DownloadCalendar streams the return reminder as an .ics download
// GET /api/v1/orders/:id/calendar
func (h *OrderHandler) DownloadCalendar(c *gin.Context) {
	orderID := c.Param("id")
	if services.IsMissingOrderID(orderID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	resp, err := h.client.GetCalendar(c.Request.Context(), orderID)
	if err != nil {
		h.logger.Warn("Failed to get calendar", zap.String("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Calendar unavailable"})
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "text/calendar"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="return-reminder-%s.ics"`, sanitizeFilename(orderID)))
	c.Data(http.StatusOK, contentType, resp.Body)
}

// GetPolicy returns a merchant's summarized return policy
// GET /api/v1/policy?merchant=
func (h *OrderHandler) GetPolicy(c *gin.Context) {
	merchant := strings.TrimSpace(c.Query("merchant"))
	if merchant == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "merchant is required"})
		return
	}

	policy, cached, err := h.policies.Lookup(c.Request.Context(), merchant)
	if err != nil {
		respondError(c, h.logger, "Failed to get policy", err)
		return
	}

	if cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Data(http.StatusOK, "application/json", policy)
}

// UploadReceipt forwards a receipt to the ingest service
// POST /api/v1/receipts
func (h *OrderHandler) UploadReceipt(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxReceiptBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read file"})
		return
	}
	defer f.Close()

	resp, err := h.client.UploadReceipt(c.Request.Context(), fh.Filename, f)
	if err != nil {
		h.logger.Error("Failed to upload receipt", zap.String("filename", fh.Filename), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upload failed"})
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}

func sanitizeFilename(s string) string {
	s = filepath.Base(s)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
