package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sendback/service-dashboard/internal/handlers"
)

// RouteConfig holds configuration for routes
type RouteConfig struct {
	HealthHandler     *handlers.HealthHandler
	OrderHandler      *handlers.OrderHandler
	ReturnFlowHandler *handlers.ReturnFlowHandler
	AllowedOrigins    string
	Logger            *zap.Logger
}

// NewRouter builds the engine with global middleware and all routes
func NewRouter(cfg *RouteConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handlers.RequestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     splitOrigins(cfg.AllowedOrigins),
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Cache"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	SetupRoutes(router, cfg)
	return router
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, cfg *RouteConfig) {
	router.GET("/health", cfg.HealthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")

	orders := v1.Group("/orders")
	{
		orders.GET("", cfg.OrderHandler.ListOrders)
		orders.GET("/:id", cfg.OrderHandler.GetOrder)
		orders.GET("/:id/calendar", cfg.OrderHandler.DownloadCalendar)
		orders.POST("/:id/return-flow", cfg.ReturnFlowHandler.OpenFlow)
	}

	v1.GET("/policy", cfg.OrderHandler.GetPolicy)
	v1.POST("/receipts", cfg.OrderHandler.UploadReceipt)

	// Return flow sessions
	flows := v1.Group("/return-flows/:flow_id")
	{
		flows.GET("", cfg.ReturnFlowHandler.GetFlow)
		flows.DELETE("", cfg.ReturnFlowHandler.CloseFlow)
		flows.POST("/start", cfg.ReturnFlowHandler.Start)
		flows.POST("/items/:item_id/toggle", cfg.ReturnFlowHandler.ToggleItem)
		flows.POST("/options/:index/select", cfg.ReturnFlowHandler.SelectOption)
		flows.POST("/continue", cfg.ReturnFlowHandler.Continue)
	}
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return origins
}
