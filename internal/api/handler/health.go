package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/lookaloud/internal/domain"
	"github.com/timmy/lookaloud/internal/workflow"
)

// HistoryCounter counts recorded submissions by outcome.
type HistoryCounter interface {
	CountByOutcome(ctx context.Context) (map[domain.SubmissionOutcome]int64, error)
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	stats   *workflow.StatsObserver
	history HistoryCounter
	backend string
}

// NewHealthHandler creates a new health handler. stats and history may be nil.
func NewHealthHandler(stats *workflow.StatsObserver, history HistoryCounter, backendURL string) *HealthHandler {
	return &HealthHandler{stats: stats, history: history, backend: backendURL}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":  "ok",
		"backend": h.backend,
	}
	if h.stats != nil {
		body["submissions"] = h.stats.Snapshot()
	}
	if h.history != nil {
		counts, err := h.history.CountByOutcome(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			body["status"] = "degraded"
			body["database"] = "unavailable"
		} else {
			body["history"] = counts
		}
	}
	c.JSON(http.StatusOK, body)
}
