package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cotuzatours/booking-backend/internal/config"
	"github.com/cotuzatours/booking-backend/internal/database"
	"github.com/cotuzatours/booking-backend/internal/handlers"
	"github.com/cotuzatours/booking-backend/internal/middleware"
	"github.com/cotuzatours/booking-backend/internal/services"
	"github.com/cotuzatours/booking-backend/pkg/reference"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

const (
	webhookBodyLimit = 64 << 10
	tokenCacheKey    = "cotuza:wompi:token"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Cotuza Tours booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.PingContext(startupCtx); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	if err := database.EnsureSchema(startupCtx, db); err != nil {
		logger.Fatalf("Failed to prepare database schema: %v", err)
	}
	cancelStartup()

	// Tour catalog
	catalog, err := database.NewTourCatalog(cfg.Catalog.Path)
	if err != nil {
		logger.Fatalf("Failed to load tour catalog: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"path":  cfg.Catalog.Path,
		"tours": catalog.Len(),
	}).Info("Tour catalog loaded")

	// Gateway token cache (Redis when configured, in-process otherwise)
	var tokens services.TokenCache
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Fatalf("Invalid REDIS_URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		tokens = services.NewRedisTokenCache(redisClient, tokenCacheKey)
		logger.Info("Using Redis for gateway token cache")
	} else {
		tokens = services.NewMemoryTokenCache()
	}

	// Initialize repositories
	bookingRepo := database.NewBookingRepository(db)
	legacyBookingRepo := database.NewLegacyBookingRepository(db)
	paymentAuditRepo := database.NewPaymentAuditRepository(db, logger)

	// Initialize services
	logger.Info("Initializing services...")
	codec, err := reference.NewCodec(cfg.Checkout.ReferenceSecret)
	if err != nil {
		logger.Fatalf("Failed to initialize reference codec: %v", err)
	}

	wompiService := services.NewWompiService(&cfg.Wompi, tokens, logger)
	pricingService := services.NewPricingService(cfg.Pricing)
	paymentAuditService := services.NewPaymentAuditService(paymentAuditRepo, logger)
	rateLimitService := services.NewRateLimitService(db, cfg.RateLimit)

	orchestrator := services.NewBookingOrchestratorService(
		catalog,
		bookingRepo,
		legacyBookingRepo,
		wompiService,
		codec,
		pricingService,
		paymentAuditService,
		services.OrchestratorConfig{
			ProductName:  cfg.Checkout.ProductName,
			Currency:     cfg.Wompi.Currency,
			LinkValidity: cfg.Wompi.LinkValidity,
			RedirectURL:  cfg.Wompi.RedirectURL,
		},
		logger,
	)
	logger.WithFields(logrus.Fields{
		"pricing_mode":  cfg.Pricing.Mode,
		"pickup_fee":    cfg.Pricing.PickupFee.StringFixed(2),
		"checkout_mode": cfg.Checkout.Mode,
		"currency":      cfg.Wompi.Currency,
	}).Info("Booking orchestrator initialized")

	// Scheduled jobs: catalog reload and rate limit cleanup
	cronService := services.NewCronService(catalog, rateLimitService, logger)
	if err := cronService.Start(services.CronSchedules{
		CatalogReload:    cfg.Catalog.ReloadSchedule,
		RateLimitCleanup: cfg.RateLimit.CleanupSchedule,
	}); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	renderer, err := handlers.NewTemplateRenderer(cfg.Checkout.ConfirmationTemplate)
	if err != nil {
		logger.Fatalf("Failed to load confirmation template: %v", err)
	}

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(orchestrator, rateLimitService, renderer, cfg.Checkout.Mode, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     append(cfg.CORS.AllowedHeaders, middleware.CorrelationIDHeader),
		ExposeHeaders:    []string{"Content-Length", middleware.CorrelationIDHeader},
		AllowCredentials: !containsWildcard(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db, catalog))

	bookingHandler.RegisterRoutes(router, webhookBodyLimit)

	// Create HTTP server. WriteTimeout leaves room for a full gateway round trip.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Wompi.Timeout*2 + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// SIGHUP reloads the tour catalog, SIGINT/SIGTERM shut down
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for running := true; running; {
		select {
		case <-reload:
			logger.Info("SIGHUP received, reloading tour catalog")
			cronService.ReloadCatalogNow()
		case <-quit:
			running = false
		}
	}

	logger.Info("Shutting down server...")

	// Stop cron service
	logger.Info("Stopping cron service...")
	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":         c.Writer.Status(),
			"method":         c.Request.Method,
			"path":           path,
			"query":          query,
			"ip":             c.ClientIP(),
			"latency_ms":     latency.Milliseconds(),
			"user_agent":     c.Request.UserAgent(),
			"correlation_id": middleware.GetCorrelationID(c),
		}

		entry := logger.WithFields(fields)

		// Log errors with more details
		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB, catalog *database.TourCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		// Check database connection
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"tours":     catalog.Len(),
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
