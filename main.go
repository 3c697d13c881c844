package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nodonorteit/wspbot/config"
	"github.com/nodonorteit/wspbot/database"
	"github.com/nodonorteit/wspbot/handlers"
	"github.com/nodonorteit/wspbot/logger"
	"github.com/nodonorteit/wspbot/middleware"
	"github.com/nodonorteit/wspbot/services"
	"github.com/nodonorteit/wspbot/worker"
)

func main() {
	// .env is optional; system environment is used either way.
	_ = godotenv.Load()

	logger.Init()
	defer zap.L().Sync()

	cfg := config.Load()

	// Session store: in-memory by default, Postgres when a DSN is set.
	var store services.SessionStore = services.NewMemorySessionStore()
	var stats *services.MessageStatsRecorder
	if cfg.DatabaseDSN != "" {
		db, err := database.Connect(cfg.DatabaseDSN)
		if err != nil {
			zap.L().Fatal("failed to connect database", zap.Error(err))
		}
		store = services.NewGormSessionStore(db)
		stats = services.NewMessageStatsRecorder(db)
		zap.L().Info("using postgres session store")
	}

	waha := services.NewWAHAClient(cfg.WAHA)
	sessions := services.NewSessionManager(waha, store, cfg.TenantPrefix, stats)
	turns := services.NewHTTPTurnClient(cfg.Turns)
	processor := services.NewMessageProcessor(sessions, sessions, turns)

	webhookWorker := worker.NewWebhookWorker(processor, cfg.WebhookQueueSize)
	webhookWorker.Start()

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	wa := handlers.NewWhatsAppHandler(sessions)
	webhook := handlers.NewWebhookHandler(webhookWorker)

	router.GET("/", handlers.HomePage)
	router.GET("/health", handlers.HealthCheck(sessions))

	api := router.Group("/api", middleware.AuthMiddleware(cfg.JWTSecret))
	{
		tenant := api.Group("/sessions/:tenantId", middleware.RequireTenant())
		{
			tenant.GET("/status", wa.GetSessionStatus)
			tenant.POST("/start", wa.StartSession)
			tenant.DELETE("/stop", wa.StopSession)
			tenant.GET("/qr", wa.GetQRCode)
			tenant.GET("/screenshot", wa.GetScreenshot)

			tenant.POST("/send-text", wa.SendTextMessage)
			tenant.POST("/send-image", wa.SendImageMessage)
			tenant.POST("/send-file", wa.SendFileMessage)

			tenant.GET("/messages", wa.GetMessages)
			tenant.GET("/contacts", wa.GetContacts)
		}
	}

	// Webhook ingress authenticates via gateway configuration, not JWT.
	router.POST("/webhook/:tenantId", webhook.HandleWebhook)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		zap.L().Info("whatsapp service starting",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("wahaBaseURL", cfg.WAHA.BaseURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-quit
	zap.L().Info("shutting down server")

	webhookWorker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Fatal("server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("server exited gracefully")
}
