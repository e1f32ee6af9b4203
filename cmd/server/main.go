package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sendback/service-dashboard/internal/clients"
	"github.com/sendback/service-dashboard/internal/config"
	"github.com/sendback/service-dashboard/internal/domain/upstream"
	"github.com/sendback/service-dashboard/internal/events"
	"github.com/sendback/service-dashboard/internal/handlers"
	"github.com/sendback/service-dashboard/internal/logger"
	"github.com/sendback/service-dashboard/internal/routes"
	"github.com/sendback/service-dashboard/internal/services"
)

func main() {
	// Load .env file in development
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	zlog, err := logger.New(cfg.App.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Redis (optional - policy cache disabled without it)
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			zlog.Warn("Failed to connect to Redis, policy cache disabled", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		} else {
			zlog.Info("Connected to Redis", zap.String("host", cfg.Redis.Host))
			defer redisClient.Close()
		}
		cancel()
	}

	// Connect to NATS (optional - only if configured)
	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		natsConn, err = nats.Connect(cfg.NATS.URL, nats.Name(cfg.App.Name))
		if err != nil {
			zlog.Warn("Failed to connect to NATS, events disabled", zap.Error(err))
			natsConn = nil
		} else {
			zlog.Info("Connected to NATS", zap.String("url", cfg.NATS.URL))
			defer natsConn.Close()
		}
	}

	// Initialize order service client
	rateLimit := upstream.DefaultRateLimitConfig(cfg.Upstream.RPS, cfg.Upstream.Burst)
	orderClient := clients.NewOrderClient(&clients.OrderClientConfig{
		BaseURL:     cfg.Upstream.BaseURL,
		Timeout:     cfg.Upstream.Timeout,
		RetryPolicy: upstream.DefaultRetryPolicy().WithMaxAttempts(cfg.Upstream.MaxAttempts),
		RateLimit:   &rateLimit,
		Logger:      zlog,
	})

	// Initialize services
	orderAggregator := services.NewOrderAggregator(orderClient, cfg.Returns.EligibilityReasonMaxLen, zlog)
	orderLists := services.NewOrderListAggregator(orderClient, cfg.Returns.ExpiringSoonDays, zlog)
	policyCache := services.NewPolicyCacheService(redisClient, cfg.Redis.PolicyCacheTTL, zlog)
	policyService := services.NewPolicyService(orderClient, policyCache, zlog)
	eventPublisher := events.NewPublisher(natsConn, zlog)

	flowService := services.NewReturnFlowService(
		orderAggregator,
		orderClient,
		eventPublisher,
		services.ReturnFlowServiceConfig{TTL: cfg.Returns.FlowSessionTTL},
		zlog,
	)
	if err := flowService.Start(ctx); err != nil {
		zlog.Fatal("Failed to start return flow service", zap.Error(err))
	}
	defer flowService.Stop()

	// Start NATS subscriber if connected
	if natsConn != nil {
		subscriber := events.NewSubscriber(natsConn, policyService, zlog)
		if err := subscriber.Start(); err != nil {
			zlog.Warn("Failed to start event subscriber", zap.Error(err))
		}
		defer subscriber.Stop()
	}

	// Set Gin mode
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.NewRouter(&routes.RouteConfig{
		HealthHandler:     handlers.NewHealthHandler(cfg.App.Name, orderClient.Limiter(), flowService),
		OrderHandler:      handlers.NewOrderHandler(orderLists, orderAggregator, orderClient, policyService, zlog),
		ReturnFlowHandler: handlers.NewReturnFlowHandler(flowService, zlog),
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		Logger:            zlog,
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		zlog.Info("Dashboard service starting", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()

	zlog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}

	zlog.Info("Server exited")
}
