package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/photomanager/api/internal/config"
	"github.com/photomanager/api/internal/handler"
	"github.com/photomanager/api/internal/middleware"
	"github.com/photomanager/api/internal/service"
	"github.com/photomanager/api/internal/store"
	"github.com/photomanager/api/internal/worker"
	ws "github.com/photomanager/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Make sure uploads and data directories exist
	if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		log.Fatalf("Failed to create uploads dir: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}

	// Open SQLite store
	st, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
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

	// Initialize services
	photoService := service.NewPhotoService(redisClient, asynqClient, st, cfg)
	analysisService := service.NewAnalysisService(cfg)

	// Initialize handlers
	photoHandler := handler.NewPhotoHandler(photoService, st, cfg.Uploads.Dir, cfg.Uploads.MaxSizeMB)
	settingsHandler := handler.NewSettingsHandler(st, validate, handler.SettingsDefaults{
		Provider: cfg.Analysis.DefaultProvider,
		Language: cfg.Analysis.DefaultLanguage,
	})

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, cfg.JWT.Expiration)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    (cfg.Uploads.MaxSizeMB + 1) * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Socket-Id",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	photos := api.Group("/photos")
	photos.Get("/", photoHandler.List)
	photos.Post("/", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour), photoHandler.Upload)
	photos.Get("/:id", photoHandler.Get)
	photos.Delete("/:id", photoHandler.Delete)
	photos.Put("/:id/rename", photoHandler.Rename)
	photos.Post("/:id/reanalyze", photoHandler.Reanalyze)
	photos.Get("/:id/tags", photoHandler.PhotoTags)
	photos.Post("/:id/tags", photoHandler.AddTag)
	photos.Delete("/:photoId/tags/:tagId", photoHandler.RemoveTag)

	api.Get("/tags", photoHandler.ListTags)
	api.Get("/jobs/:jobId", photoHandler.JobStatus)

	settings := api.Group("/settings")
	settings.Get("/ai", settingsHandler.Get)
	settings.Put("/ai", settingsHandler.Update)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		sessionID := c.Query("sid")
		if sessionID == "" {
			c.Close()
			return
		}
		hub.HandleConnection(c, sessionID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, photoService, analysisService, st, hub)

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

func startWorkerServer(cfg *config.Config, photoService *service.PhotoService, analysisService *service.AnalysisService, st store.Store, hub *ws.Hub) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Analysis.Concurrency,
			Queues: map[string]int{
				service.QueueAnalysis: 1,
			},
		},
	)

	analyzeWorker := worker.NewAnalyzeWorker(analysisService, photoService, st, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeAnalyze, analyzeWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
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
