package api

import (
	"net/http"
	"strconv"

	"chatrelay/internal/buffer"
	"chatrelay/internal/dto/resp"
	"chatrelay/internal/repository"
	"chatrelay/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// QueueHandler serves the read-only ops surface.
type QueueHandler struct {
	jobs      repository.JobInterface
	pending   repository.PendingInterface
	history   repository.HistoryInterface
	recent    *buffer.RecentBuffer
	queueName string
}

func NewQueueHandler(jobs repository.JobInterface, pending repository.PendingInterface, history repository.HistoryInterface, recent *buffer.RecentBuffer, queueName string) *QueueHandler {
	return &QueueHandler{
		jobs:      jobs,
		pending:   pending,
		history:   history,
		recent:    recent,
		queueName: queueName,
	}
}

func (h *QueueHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *QueueHandler) Stats(c *gin.Context) {
	counts, err := h.jobs.Stats(c.Request.Context())
	if err != nil {
		logger.Error("stats query failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stats unavailable"})
		return
	}
	c.JSON(http.StatusOK, resp.QueueStats{Queue: h.queueName, Counts: counts, Total: counts.Total()})
}

func (h *QueueHandler) PendingSummary(c *gin.Context) {
	summary, err := h.pending.Summary(c.Request.Context())
	if err != nil {
		logger.Error("pending summary query failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summary unavailable"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *QueueHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	c.JSON(http.StatusOK, h.recent.Snapshot(limit))
}

func (h *QueueHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	instanceID := c.GetString("instance_id")

	entries, err := h.history.List(c.Request.Context(), instanceID, limit)
	if err != nil {
		logger.Error("history query failed", zap.String("instance", instanceID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, entries)
}
