package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/slaptrapper/distribution-api/internal/client"
	"github.com/slaptrapper/distribution-api/internal/config"
	"github.com/slaptrapper/distribution-api/internal/handler"
	"github.com/slaptrapper/distribution-api/internal/ids"
	"github.com/slaptrapper/distribution-api/internal/logger"
	"github.com/slaptrapper/distribution-api/internal/middleware"
	"github.com/slaptrapper/distribution-api/internal/repository"
	"github.com/slaptrapper/distribution-api/internal/service"
	"github.com/slaptrapper/distribution-api/internal/worker"
	ws "github.com/slaptrapper/distribution-api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Server.LogLevel)

	// Connect Postgres
	db, err := repository.Open(&cfg.Postgres)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer repository.Close(db)

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Log.Warnf("Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// External clients. Each one is optional: services fall back to local
	// behavior when the corresponding integration is not configured.
	masteringProvider := client.NewDolbyClient(&cfg.Mastering)

	var artifactStore client.ArtifactStore
	if cfg.Storage.AccessKeyID != "" && cfg.Storage.SecretAccessKey != "" {
		r2Client, err := client.NewR2Client(&cfg.Storage)
		if err != nil {
			logger.Log.Warnf("R2 client not initialized: %v", err)
		} else {
			artifactStore = r2Client
		}
	} else {
		logger.Log.Info("R2 storage not configured, mastered files stay at the provider")
	}

	var notifier client.Notifier
	if cfg.Email.RelayURL != "" {
		notifier = client.NewEmailClient(&cfg.Email)
	} else {
		logger.Log.Info("Email relay not configured, notifications disabled")
	}

	var deliveryGateway client.DeliveryGateway
	if cfg.Delivery.APIKey != "" {
		deliveryGateway = client.NewFugaClient(&cfg.Delivery)
	} else {
		logger.Log.Info("Delivery gateway not configured, using simulated stats")
	}

	var orderAPI client.MasteringOrderAPI
	if cfg.Mixmea.APIKey != "" {
		orderAPI = client.NewMixmeaClient(&cfg.Mixmea)
	}

	// Code generator for releases submitted without ISRC/UPC.
	idgen := ids.NewDefaultGenerator()

	// Repositories
	releaseRepo := repository.NewReleaseRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	playlistRepo := repository.NewPlaylistRepository(db)

	// Services
	pitchService := service.NewPitchService(releaseRepo, campaignRepo, playlistRepo, notifier, cfg.Pipeline.PitchTargetLimit)
	releaseService := service.NewReleaseService(releaseRepo, pitchService, notifier, asynqClient, idgen, cfg.Pipeline)
	statsService := service.NewStatsService(releaseRepo, deliveryGateway)
	reconcileService := service.NewReconcileService(releaseRepo, notifier)
	masteringService := service.NewMasteringService(masteringProvider, artifactStore, orderAPI, notifier, redisClient, hub, &cfg.Mastering)

	// Handlers
	releaseHandler := handler.NewReleaseHandler(releaseService, statsService, validate)
	pitchHandler := handler.NewPitchHandler(pitchService, validate)
	masteringHandler := handler.NewMasteringHandler(masteringService, validate)
	reconcileHandler := handler.NewReconcileHandler(reconcileService, validate)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
	}
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"mastering": cfg.Mastering.APIKey != "",
				"storage":   artifactStore != nil,
				"email":     notifier != nil,
				"delivery":  deliveryGateway != nil,
				"orders":    orderAPI != nil,
			},
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Distribution routes
	distributions := api.Group("/distributions")
	distributions.Post("/", releaseHandler.Submit)
	distributions.Post("/stats/sync", releaseHandler.SyncStats)
	distributions.Post("/:id/express", releaseHandler.Express)
	distributions.Post("/:id/advance", releaseHandler.Advance)
	distributions.Post("/:id/promote", middleware.RequireAdmin(), releaseHandler.Promote)
	distributions.Get("/:id/status", releaseHandler.Status)

	// Pitching routes
	pitching := api.Group("/pitching", rateLimiter.PitchLimit(cfg.RateLimit.PitchPerHour))
	pitching.Post("/campaigns", pitchHandler.BuildCampaign)

	// Mastering routes
	mastering := api.Group("/mastering", rateLimiter.MasteringLimit(cfg.RateLimit.MasteringPerHour))
	mastering.Post("/", masteringHandler.Master)
	mastering.Post("/orders", masteringHandler.SubmitOrder)
	mastering.Get("/:jobId", masteringHandler.Status)

	// Reconciliation routes
	api.Post("/reconciliation", rateLimiter.ReconcileLimit(cfg.RateLimit.ReconcilePerHour), reconcileHandler.Reconcile)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/mastering/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, releaseRepo, releaseService, deliveryGateway)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Log.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Log.Errorf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	logger.Log.Infof("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		logger.Log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	releases *repository.ReleaseRepository,
	releaseService *service.ReleaseService,
	delivery client.DeliveryGateway,
) {
	asynqLogLevel := asynq.InfoLevel
	switch {
	case strings.EqualFold(cfg.Server.LogLevel, "debug"):
		asynqLogLevel = asynq.DebugLevel
	case strings.EqualFold(cfg.Server.LogLevel, "warn"):
		asynqLogLevel = asynq.WarnLevel
	case strings.EqualFold(cfg.Server.LogLevel, "error"):
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				service.QueueDistribution: 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	distributionWorker := worker.NewDistributionWorker(releases, releaseService, delivery)

	mux := asynq.NewServeMux()
	distributionWorker.Register(mux)

	if err := srv.Run(mux); err != nil {
		logger.Log.Errorf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
