package handler

import (
	"net/http"

	"github.com/Benaah/amaniquery-sub002/internal/metrics"
	"github.com/Benaah/amaniquery-sub002/internal/stream"
	"github.com/gin-gonic/gin"
)

// OpsHandler exposes health and metrics for the running consumer.
type OpsHandler struct {
	reporter *metrics.Reporter
	log      stream.Log
}

// NewOpsHandler creates a new ops handler
func NewOpsHandler(reporter *metrics.Reporter, log stream.Log) *OpsHandler {
	return &OpsHandler{
		reporter: reporter,
		log:      log,
	}
}

// Health returns per-store health; 503 when any backing store is down.
func (h *OpsHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	stores := h.reporter.Health(ctx)

	status := http.StatusOK
	overall := "ok"
	for _, s := range stores {
		if s != "ok" {
			status = http.StatusServiceUnavailable
			overall = "degraded"
			break
		}
	}

	c.JSON(status, gin.H{
		"status": overall,
		"stores": stores,
	})
}

// Metrics returns aggregated counters plus the group's pending-entry count.
func (h *OpsHandler) Metrics(c *gin.Context) {
	ctx := c.Request.Context()
	summary := h.reporter.Snapshot()

	pending := int64(-1)
	if n, err := h.log.Pending(ctx); err == nil {
		pending = n
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
		"pending": pending,
	})
}
