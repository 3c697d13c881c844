package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nodonorteit/wspbot/models"
)

// MessageStatsRecorder accumulates per-tenant send counters in Postgres.
type MessageStatsRecorder struct {
	db *gorm.DB
}

// NewMessageStatsRecorder wraps a gorm connection. A nil recorder disables
// stats entirely.
func NewMessageStatsRecorder(db *gorm.DB) *MessageStatsRecorder {
	if db == nil {
		return nil
	}
	return &MessageStatsRecorder{db: db}
}

// Record bumps the tenant's sent or failed counter. Called asynchronously
// after every send attempt; failures only log.
func (r *MessageStatsRecorder) Record(tenantID string, success bool) {
	now := time.Now()

	var stats models.MessageStats
	err := r.db.Where("tenant_id = ?", tenantID).First(&stats).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		stats = models.MessageStats{
			ID:        uuid.New().String(),
			TenantID:  tenantID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if success {
			stats.TotalMessagesSent = 1
			stats.LastMessageSentAt = &now
		} else {
			stats.TotalMessagesFailed = 1
			stats.LastMessageFailedAt = &now
		}
		if err := r.db.Create(&stats).Error; err != nil {
			zap.L().Error("failed to create message stats", zap.Error(err))
		}
		return
	}
	if err != nil {
		zap.L().Error("failed to query message stats", zap.Error(err))
		return
	}

	if success {
		stats.TotalMessagesSent++
		stats.LastMessageSentAt = &now
	} else {
		stats.TotalMessagesFailed++
		stats.LastMessageFailedAt = &now
	}
	stats.UpdatedAt = now
	if err := r.db.Save(&stats).Error; err != nil {
		zap.L().Error("failed to update message stats", zap.Error(err))
	}
}
