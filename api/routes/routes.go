package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"wellcheck-api/api/handlers"
	"wellcheck-api/api/middleware"
	"wellcheck-api/internal/chatbot"
	"wellcheck-api/internal/checkin"
	"wellcheck-api/internal/registry"
	"wellcheck-api/internal/scheduler"
	"wellcheck-api/pkg/logger"
)

// Dependencies carries the services routed by SetupRoutes.
// DB and Scheduler may be nil for the memory driver and a disabled scheduler.
type Dependencies struct {
	DB        *gorm.DB
	Logger    *logger.Logger
	Chatbot   chatbot.ChatbotService
	Users     registry.Service
	Checks    checkin.Manager
	Scheduler scheduler.Scheduler
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	// Add middleware
	router.Use(middleware.RequestLogging(deps.Logger))
	router.Use(gin.Recovery())

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Scheduler, deps.Logger)
	webhookHandler := handlers.NewWebhookHandler(deps.Chatbot, deps.Logger)
	userHandler := handlers.NewUserHandler(deps.Users, deps.Checks, deps.Logger)
	schedulerHandler := handlers.NewSchedulerHandler(deps.Scheduler)

	// Setup routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Check)

		// Telegram webhook endpoint
		v1.POST("/telegram/webhook", webhookHandler.HandleTelegramWebhook)

		users := v1.Group("/users/:id")
		{
			users.GET("", userHandler.GetUser)
			users.PATCH("", userHandler.UpdateUser)
			users.GET("/contacts", userHandler.ListContacts)
			users.POST("/contacts", userHandler.AddContact)
			users.DELETE("/contacts/:contactId", userHandler.RemoveContact)
			users.GET("/checks", userHandler.ListChecks)
			users.POST("/checks", userHandler.CreateCheck)
			users.POST("/responses", userHandler.RecordResponse)
		}

		v1.GET("/scheduler/metrics", schedulerHandler.GetMetrics)
		v1.POST("/scheduler/tick", schedulerHandler.Tick)
	}

	// Root health check
	router.GET("/health", healthHandler.Check)
}
