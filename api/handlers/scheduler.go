package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wellcheck-api/internal/scheduler"
)

type SchedulerHandler struct {
	scheduler scheduler.Scheduler
}

// NewSchedulerHandler accepts a nil scheduler when scheduling is disabled
func NewSchedulerHandler(sched scheduler.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{scheduler: sched}
}

func (h *SchedulerHandler) GetMetrics(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "scheduler is disabled"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"running": h.scheduler.IsRunning(),
		"health":  h.scheduler.GetHealthStatus(),
		"metrics": h.scheduler.GetMetrics().GetMetricsSummary(),
	})
}

// Tick runs one evaluation pass at the current time, for external cron drivers
func (h *SchedulerHandler) Tick(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "scheduler is disabled"})
		return
	}

	c.JSON(http.StatusOK, h.scheduler.OnTimeElapsed(c.Request.Context()))
}
