package api

import (
	"net/http"

	"chatrelay/internal/dto/req"
	"chatrelay/internal/dto/resp"
	"chatrelay/internal/model"
	"chatrelay/internal/service"
	"chatrelay/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MessageHandler is the enqueue-side HTTP surface. The instance scope comes
// from the API key, never from the request body.
type MessageHandler struct {
	outbound *service.OutboundService
}

func NewMessageHandler(outbound *service.OutboundService) *MessageHandler {
	return &MessageHandler{outbound: outbound}
}

func (h *MessageHandler) SendText(c *gin.Context) {
	var body req.SendText
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	instanceID := c.GetString("instance_id")
	jobID, err := h.outbound.Queue(c.Request.Context(), instanceID, model.TypeText, body.To, body.Text, body.MaxAttempts)
	if err != nil {
		logger.Error("enqueue text failed", zap.String("instance", instanceID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue unavailable"})
		return
	}

	c.JSON(http.StatusAccepted, resp.Enqueued{JobID: jobID, Status: model.JobPending})
}

func (h *MessageHandler) SendMedia(c *gin.Context) {
	var body req.SendMedia
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	instanceID := c.GetString("instance_id")
	jobID, err := h.outbound.Queue(c.Request.Context(), instanceID, model.TypeMedia, body.To, body.MediaURL, body.MaxAttempts)
	if err != nil {
		logger.Error("enqueue media failed", zap.String("instance", instanceID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue unavailable"})
		return
	}

	c.JSON(http.StatusAccepted, resp.Enqueued{JobID: jobID, Status: model.JobPending})
}

// DrainPending is the reachability signal: the transport (or an integration
// webhook) tells us a recipient can now be messaged, and every deferred
// message for that conversation moves onto the queue.
func (h *MessageHandler) DrainPending(c *gin.Context) {
	instanceID := c.GetString("instance_id")
	recipient := c.Param("recipient")

	moved, err := h.outbound.DrainPending(c.Request.Context(), instanceID, recipient)
	if err != nil {
		logger.Error("pending drain failed", zap.String("instance", instanceID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pending buffer unavailable"})
		return
	}

	c.JSON(http.StatusOK, resp.Drained{Moved: moved})
}
