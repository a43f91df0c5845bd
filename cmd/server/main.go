package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/resona/api/internal/config"
	"github.com/resona/api/internal/credential"
	"github.com/resona/api/internal/handler"
	"github.com/resona/api/internal/middleware"
	"github.com/resona/api/internal/provider"
	"github.com/resona/api/internal/service"
	"github.com/resona/api/internal/storage"
	"github.com/resona/api/internal/store"
	"github.com/resona/api/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client (rate limiting)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Open the job store
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	// Initialize validator
	validate := validator.New()

	// Credential resolution and durable-storage migration
	resolver := credential.NewResolver(st, nil)
	migrator := storage.NewMigrator(resolver, cfg.Storage.BunnyBaseURL,
		time.Duration(cfg.Storage.MigrateTimeoutSeconds)*time.Second)

	// Provider adapters
	var registry *provider.Registry
	if cfg.Providers.Mock {
		log.Println("Info: mock providers enabled")
		registry = provider.NewMockRegistry()
	} else {
		registry = provider.NewRegistry(&cfg.Providers)
	}

	// Initialize services
	jobService := service.NewJobService(st, resolver, registry, migrator, st, cfg.Billing.Enforce)

	// Initialize handlers
	musicHandler := handler.NewMusicHandler(jobService, validate)
	voiceHandler := handler.NewVoiceHandler(jobService, validate)
	jobsHandler := handler.NewJobsHandler(jobService)
	settingsHandler := handler.NewSettingsHandler(st, validate)

	// Initialize middleware
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
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis": redisClient.Ping(c.Context()).Err() == nil,
				"mock":  cfg.Providers.Mock,
			},
		})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	// Music generation
	music := api.Group("/music")
	music.Post("/generate", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), musicHandler.Generate)

	// Voice clones and conversions
	voice := api.Group("/voice")
	voice.Post("/clones", rateLimiter.CloneLimit(cfg.RateLimit.ClonePerHour), voiceHandler.CreateClone)
	voice.Post("/conversions", rateLimiter.ConversionLimit(cfg.RateLimit.ConversionPerHour), voiceHandler.StartConversion)
	voice.Get("/singers", voiceHandler.ListSingers)

	// Job lifecycle
	jobs := api.Group("/jobs")
	jobs.Get("/", jobsHandler.List)
	jobs.Get("/active", jobsHandler.Active)
	jobs.Get("/:jobId/status", jobsHandler.Status)
	jobs.Post("/:jobId/favorite", jobsHandler.Favorite)
	jobs.Post("/:jobId/store", jobsHandler.Store)
	jobs.Delete("/:jobId", jobsHandler.Delete)

	// Settings
	settings := api.Group("/settings", rateLimiter.SettingsLimit(cfg.RateLimit.SettingsPerMin))
	settings.Get("/", settingsHandler.Get)
	settings.Put("/keys", settingsHandler.UpdateKeys)
	settings.Put("/storage", settingsHandler.UpdateStorage)
	settings.Delete("/storage", settingsHandler.DeleteStorage)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	if code == fiber.StatusNotFound {
		return response.NotFound(c, "Resource not found")
	}

	log.Printf("Unhandled error: %v", err)
	return response.Error(c, code, response.CodeServiceError, "Internal server error", nil)
}
