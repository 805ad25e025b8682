package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"pagequiz/internal/adapter"
	"pagequiz/internal/adapter/provider"
	"pagequiz/internal/cache"
	"pagequiz/internal/config"
	"pagequiz/internal/content"
	"pagequiz/internal/database"
	"pagequiz/internal/domain"
	"pagequiz/internal/handler"
	"pagequiz/internal/logger"
	"pagequiz/internal/middleware"
	"pagequiz/internal/repository"
	"pagequiz/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// requestLogger is a middleware that logs HTTP requests
func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()

		err := c.Next()

		logger.Get().Info("HTTP Request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
			zap.String("ip", c.IP()),
		)

		return err
	}
}

// newSessionRepository builds the configured durable session store.
func newSessionRepository(cfg *config.Config, appLogger *zap.Logger) domain.SessionRepository {
	switch cfg.Storage.Driver {
	case "redis":
		redisClient, err := cache.NewRedisClient(cfg.Storage.Redis)
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		appLogger.Info("Session store: redis", zap.String("address", cfg.Storage.Redis.Address))
		return repository.NewCacheSessionRepository(adapter.NewRedisCacheAdapter(redisClient))
	case "sqlite":
		db, err := database.NewSQLXSQLiteDB(cfg.Storage.SQLite.Path)
		if err != nil {
			appLogger.Fatal("Failed to open sqlite database", zap.Error(err))
		}
		repo, err := repository.NewSQLiteSessionRepository(db)
		if err != nil {
			appLogger.Fatal("Failed to initialize sqlite session store", zap.Error(err))
		}
		appLogger.Info("Session store: sqlite", zap.String("path", cfg.Storage.SQLite.Path))
		return repo
	default:
		appLogger.Fatal("Unsupported storage driver", zap.String("driver", cfg.Storage.Driver))
		return nil
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	sessionRepo := newSessionRepository(cfg, appLogger)

	generator := provider.NewAdapter(cfg.Provider.Timeout, appLogger)
	appLogger.Info("Provider adapter initialized", zap.String("provider", cfg.Provider.Provider))

	events := adapter.NewLatestEventNotifier(adapter.NewLogNotifier(appLogger))
	runner := service.NewTaskRunner(cfg.Provider.Timeout * 2)

	orchestrator := service.NewQuizOrchestrator(
		sessionRepo,
		generator,
		content.NewSelector(),
		cfg,
		events,
		runner,
	)
	appLogger.Info("QuizOrchestrator initialized")

	quizHandler := handler.NewQuizHandler(orchestrator, events, cfg.Snapshot)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(requestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
		MaxAge:       300,
	}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	apiGroup := app.Group("/api")

	quizGroup := apiGroup.Group("/quiz")
	quizGroup.Post("/start", quizHandler.StartQuiz)
	quizGroup.Get("/session", quizHandler.GetSession)
	quizGroup.Post("/answer", quizHandler.SubmitAnswer)
	quizGroup.Post("/advance", quizHandler.Advance)
	quizGroup.Post("/reset", quizHandler.ResetQuiz)
	quizGroup.Get("/results", quizHandler.GetResults)
	quizGroup.Get("/events/latest", quizHandler.GetLatestEvent)

	apiGroup.Post("/provider/test", quizHandler.TestConnection)

	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Let in-flight generation and enrichment tasks land in the store, so
	// already-paid provider calls are not thrown away.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer drainCancel()
	if err := runner.Drain(drainCtx); err != nil {
		appLogger.Warn("Background tasks did not drain before shutdown", zap.Error(err))
	}

	appLogger.Info("Server exited gracefully")
}
