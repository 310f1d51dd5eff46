package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"wellcheck-api/internal/database"
	"wellcheck-api/internal/scheduler"
	"wellcheck-api/pkg/logger"
)

const serviceName = "wellcheck-api"

type HealthHandler struct {
	db        *gorm.DB
	scheduler scheduler.Scheduler
	logger    *logger.Logger
}

// NewHealthHandler creates a health handler. A nil db means the in-memory
// store is in use; a nil scheduler means scheduling is disabled.
func NewHealthHandler(db *gorm.DB, sched scheduler.Scheduler, logger *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		scheduler: sched,
		logger:    logger,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	status := "ok"
	statusCode := http.StatusOK
	storage := "memory"

	if h.db != nil {
		storage = "postgres"
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := database.HealthCheck(ctx, h.db); err != nil {
			h.logger.Errorw("Database health check failed", "error", err)
			status = "error"
			statusCode = http.StatusServiceUnavailable
		}
	}

	response := gin.H{
		"status":    status,
		"storage":   storage,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   serviceName,
	}
	if h.scheduler != nil {
		response["scheduler"] = gin.H{
			"running": h.scheduler.IsRunning(),
			"healthy": h.scheduler.GetHealthStatus().IsHealthy,
		}
	}

	c.JSON(statusCode, response)
}
