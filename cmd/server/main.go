package main

import (
	_ "github.com/joho/godotenv/autoload" // Load .env file automatically

	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"wellcheck-api/api/routes"
	"wellcheck-api/internal/chatbot"
	"wellcheck-api/internal/checkin"
	"wellcheck-api/internal/common"
	"wellcheck-api/internal/config"
	"wellcheck-api/internal/database"
	"wellcheck-api/internal/escalation"
	"wellcheck-api/internal/events"
	"wellcheck-api/internal/registry"
	"wellcheck-api/internal/scheduler"
	"wellcheck-api/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logger.New(cfg.Log.Level)
	defer func() { _ = logger.Sync() }()

	// Get the underlying zap logger for services
	zapLogger := logger.SugaredLogger.Desugar()

	// Storage
	db, userRepo, checkRepo, err := openStorage(cfg.Database, zapLogger)
	if err != nil {
		logger.Fatalw("Failed to initialize storage", "error", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warnw("Failed to close database", "error", err)
		}
	}()

	// Initialize event bus
	eventBus := events.NewEventBus(zapLogger)
	publisher := events.NewPublisher(eventBus, zapLogger)

	// Telegram transport
	provider, err := chatbot.NewTelegramProvider(cfg.Chatbot, zapLogger)
	if err != nil {
		logger.Fatalw("Failed to initialize Telegram provider", "error", err)
	}
	gateway := chatbot.NewTelegramGateway(provider, zapLogger)

	// Initialize services
	clock := common.NewRealClock()
	users := registry.NewService(userRepo, registry.Defaults{
		CheckHour:      cfg.CheckIn.DefaultCheckHour,
		TimeoutMinutes: cfg.CheckIn.DefaultTimeoutMinutes,
	}, zapLogger)
	manager := checkin.NewManager(checkin.Dependencies{
		Checks:    checkRepo,
		Users:     userRepo,
		Gateway:   gateway,
		Escalator: escalation.NewNotifier(userRepo, gateway, publisher, zapLogger),
		Clock:     clock,
		Publisher: publisher,
		Logger:    zapLogger,
	})

	chatbotService, err := chatbot.NewChatbotService(chatbot.Dependencies{
		Provider: provider,
		Users:    users,
		Checks:   manager,
		EventBus: eventBus,
		Config:   cfg.Chatbot,
		Logger:   zapLogger,
	})
	if err != nil {
		logger.Fatalw("Failed to initialize chatbot service", "error", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Re-arm timeouts of checks left pending by a previous run
	if cfg.CheckIn.RecoverOnStart {
		recovered, err := manager.Recover(ctx)
		if err != nil {
			logger.Errorw("Failed to recover pending checks", "error", err)
		} else {
			logger.Infow("Recovered pending checks", "count", recovered)
		}
	}

	// Initialize scheduler
	var checkScheduler scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		checkScheduler, err = scheduler.NewScheduler(cfg.Scheduler, userRepo, manager, clock, zapLogger)
		if err != nil {
			logger.Fatalw("Failed to create scheduler", "error", err)
		}
		if err := checkScheduler.Start(ctx); err != nil {
			logger.Fatalw("Scheduler failed to start", "error", err)
		}
		logger.Infow("Check-in scheduler started",
			"poll_interval", cfg.Scheduler.PollInterval,
			"timezone", cfg.Scheduler.Timezone)
	} else {
		logger.Infow("Check-in scheduler disabled")
	}

	// Long polling runs until ctx is cancelled; webhook mode is served by gin
	pollingDone := make(chan struct{})
	if cfg.Chatbot.Mode == config.ModePolling {
		go func() {
			defer close(pollingDone)
			if err := chatbotService.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorw("Telegram polling stopped", "error", err)
			}
		}()
	} else {
		close(pollingDone)
	}

	// Setup Gin router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	routes.SetupRoutes(router, routes.Dependencies{
		DB:        db,
		Logger:    logger,
		Chatbot:   chatbotService,
		Users:     users,
		Checks:    manager,
		Scheduler: checkScheduler,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infow("Starting server",
			"port", cfg.Server.Port,
			"storage", cfg.Database.Driver,
			"chatbot_mode", cfg.Chatbot.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infow("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop taking webhooks and admin requests first
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("Server forced to shutdown", "error", err)
	}

	// Stop scheduler so no new checks are created
	if checkScheduler != nil {
		logger.Infow("Stopping check-in scheduler...")
		if err := checkScheduler.Stop(); err != nil {
			logger.Errorw("Failed to stop scheduler gracefully", "error", err)
		}
	}

	// Stop polling and wait for the update loop to return
	stop()
	<-pollingDone

	// Cancel watchers and drain in-flight escalations
	manager.Stop()

	if err := chatbotService.Close(); err != nil {
		logger.Warnw("Failed to close chatbot service", "error", err)
	}

	// Close event bus with timeout
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		if err := eventBus.Close(); err != nil {
			logger.Errorw("Failed to close event bus", "error", err)
		}
	}()

	select {
	case <-closed:
		logger.Infow("Event bus closed successfully")
	case <-time.After(time.Duration(cfg.Events.ShutdownTimeout) * time.Second):
		logger.Warnw("Event bus shutdown timed out")
	}

	logger.Infow("Server exited")
}

// openStorage returns the repositories for the configured driver.
// The returned db is nil for the memory driver.
func openStorage(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, registry.Repository, checkin.Repository, error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		return nil, registry.NewMemoryRepository(), checkin.NewMemoryRepository(), nil
	}

	db, err := database.NewPostgresConnection(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := database.Migrate(db); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, registry.NewGormRepository(db, logger), checkin.NewGormRepository(db, logger), nil
}
