package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nodonorteit/wspbot/models"
	"github.com/nodonorteit/wspbot/worker"
)

// WebhookHandler is the unauthenticated ingress for gateway webhooks.
type WebhookHandler struct {
	worker *worker.WebhookWorker
}

// NewWebhookHandler wires the handler to the worker.
func NewWebhookHandler(w *worker.WebhookWorker) *WebhookHandler {
	return &WebhookHandler{worker: w}
}

// HandleWebhook enqueues one inbound payload for asynchronous processing.
// Processing failures are contained in the worker; a bad message never fails
// the HTTP response to the sending gateway.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	tenantID := c.Param("tenantId")

	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		zap.L().Warn("invalid webhook payload",
			zap.String("tenantId", tenantID), zap.Error(err))
		c.JSON(http.StatusBadRequest, models.Fail("Invalid payload"))
		return
	}

	if !h.worker.Enqueue(tenantID, payload) {
		zap.L().Warn("webhook dropped", zap.String("tenantId", tenantID))
	}

	c.JSON(http.StatusOK, models.OKMessage(nil, "Webhook processed"))
}
