package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nodonorteit/wspbot/services"
)

// HomePage shows basic service info.
func HomePage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "whatsapp-service",
		"status":  "running",
		"version": "1.0.0",
	})
}

// HealthCheck reports service health and the number of connected sessions.
func HealthCheck(sessions *services.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "healthy",
			"timestamp":      time.Now().Format(time.RFC3339),
			"service":        "whatsapp-service",
			"version":        "1.0.0",
			"activeSessions": sessions.GetActiveSessionsCount(),
		})
	}
}
