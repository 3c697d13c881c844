package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nodonorteit/wspbot/models"
	"github.com/nodonorteit/wspbot/services"
)

// SendTextRequest is the body for the send-text endpoint.
type SendTextRequest struct {
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
}

// SendImageRequest is the body for the send-image endpoint.
type SendImageRequest struct {
	ChatID  string `json:"chatId"`
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// SendFileRequest is the body for the send-file endpoint.
type SendFileRequest struct {
	ChatID   string `json:"chatId"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// WhatsAppHandler exposes the session registry over REST.
type WhatsAppHandler struct {
	sessions *services.SessionManager
}

// NewWhatsAppHandler wires the handler to the registry.
func NewWhatsAppHandler(sessions *services.SessionManager) *WhatsAppHandler {
	return &WhatsAppHandler{sessions: sessions}
}

// GetSessionStatus refreshes and returns the tenant's session.
func (h *WhatsAppHandler) GetSessionStatus(c *gin.Context) {
	tenantID := c.Param("tenantId")

	session, err := h.sessions.GetSessionStatus(c.Request.Context(), tenantID)
	if err != nil {
		zap.L().Error("error getting session status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Fail("Failed to get session status"))
		return
	}
	c.JSON(http.StatusOK, models.OK(session))
}

// StartSession creates or reuses the tenant's gateway session.
func (h *WhatsAppHandler) StartSession(c *gin.Context) {
	tenantID := c.Param("tenantId")

	session, err := h.sessions.StartSession(c.Request.Context(), tenantID)
	if err != nil {
		zap.L().Error("error starting session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Fail("Failed to start session"))
		return
	}
	c.JSON(http.StatusOK, models.OKMessage(session, "Session started successfully"))
}

// StopSession deletes the tenant's session locally and on the gateway.
func (h *WhatsAppHandler) StopSession(c *gin.Context) {
	tenantID := c.Param("tenantId")

	found, err := h.sessions.StopSession(c.Request.Context(), tenantID)
	if err != nil {
		zap.L().Error("error stopping session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Fail("Failed to stop session"))
		return
	}
	if !found {
		c.JSON(http.StatusOK, models.Fail("Session not found"))
		return
	}
	c.JSON(http.StatusOK, models.OKMessage(nil, "Session stopped successfully"))
}

// GetQRCode returns the pairing QR image as a data URI.
func (h *WhatsAppHandler) GetQRCode(c *gin.Context) {
	tenantID := c.Param("tenantId")

	qr, err := h.sessions.GetQRCode(c.Request.Context(), tenantID)
	if err != nil {
		zap.L().Error("error getting QR code", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Fail("Failed to get QR code"))
		return
	}
	if qr == "" {
		c.JSON(http.StatusNotFound, models.Fail("QR code not available"))
		return
	}
	c.JSON(http.StatusOK, models.OK(gin.H{"qrCode": qr}))
}

// GetScreenshot returns the gateway screenshot, base64 encoded.
func (h *WhatsAppHandler) GetScreenshot(c *gin.Context) {
	tenantID := c.Param("tenantId")

	screenshot, err := h.sessions.GetScreenshot(c.Request.Context(), tenantID)
	if err != nil {
		zap.L().Error("error getting screenshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Fail("Failed to get screenshot"))
		return
	}
	if len(screenshot) == 0 {
		c.JSON(http.StatusNotFound, models.Fail("Screenshot not available"))
		return
	}
	c.JSON(http.StatusOK, models.OK(gin.H{
		"screenshot": base64.StdEncoding.EncodeToString(screenshot),
	}))
}

// SendTextMessage dispatches a text message for a connected tenant.
func (h *WhatsAppHandler) SendTextMessage(c *gin.Context) {
	var req SendTextRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" || req.Text == "" {
		c.JSON(http.StatusBadRequest, models.Fail("chatId and text are required"))
		return
	}
	h.send(c, models.NewTextMessage(req.ChatID, req.Text), "Message sent successfully", "Failed to send message")
}

// SendImageMessage dispatches an image message for a connected tenant.
func (h *WhatsAppHandler) SendImageMessage(c *gin.Context) {
	var req SendImageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" || req.URL == "" {
		c.JSON(http.StatusBadRequest, models.Fail("chatId and url are required"))
		return
	}
	h.send(c, models.NewImageMessage(req.ChatID, req.URL, req.Caption), "Image sent successfully", "Failed to send image")
}

// SendFileMessage dispatches a file message for a connected tenant.
func (h *WhatsAppHandler) SendFileMessage(c *gin.Context) {
	var req SendFileRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" || req.URL == "" {
		c.JSON(http.StatusBadRequest, models.Fail("chatId and url are required"))
		return
	}
	h.send(c, models.NewFileMessage(req.ChatID, req.URL, req.Filename), "File sent successfully", "Failed to send file")
}

func (h *WhatsAppHandler) send(c *gin.Context, msg models.OutboundMessage, okMsg, failMsg string) {
	tenantID := c.Param("tenantId")

	ok, err := h.sessions.SendMessage(c.Request.Context(), tenantID, msg)
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, models.Fail("No session for this tenant"))
		return
	case errors.Is(err, services.ErrNotConnected):
		c.JSON(http.StatusConflict, models.Fail("Session is not connected"))
		return
	case err != nil:
		zap.L().Error("error sending message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Fail(failMsg))
		return
	}

	if !ok {
		c.JSON(http.StatusOK, models.Fail(failMsg))
		return
	}
	c.JSON(http.StatusOK, models.OKMessage(nil, okMsg))
}

// GetMessages returns the tenant's message history from the gateway.
func (h *WhatsAppHandler) GetMessages(c *gin.Context) {
	tenantID := c.Param("tenantId")

	messages, err := h.sessions.GetMessages(c.Request.Context(), tenantID)
	if err != nil {
		zap.L().Error("error getting messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.Fail("Failed to get messages"))
		return
	}
	c.JSON(http.StatusOK, models.OK(messages))
}

// GetContacts is a placeholder; contact listing is not proxied yet.
func (h *WhatsAppHandler) GetContacts(c *gin.Context) {
	c.JSON(http.StatusOK, models.OK([]interface{}{}))
}
