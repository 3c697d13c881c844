package models

import "time"

// MessageStats accumulates per-tenant send counters. Only recorded when the
// Postgres store is configured.
type MessageStats struct {
	ID                  string     `gorm:"column:id;primaryKey" json:"id"`
	TenantID            string     `gorm:"column:tenant_id;uniqueIndex" json:"tenantId"`
	TotalMessagesSent   int64      `gorm:"column:total_messages_sent" json:"totalMessagesSent"`
	TotalMessagesFailed int64      `gorm:"column:total_messages_failed" json:"totalMessagesFailed"`
	LastMessageSentAt   *time.Time `gorm:"column:last_message_sent_at" json:"lastMessageSentAt,omitempty"`
	LastMessageFailedAt *time.Time `gorm:"column:last_message_failed_at" json:"lastMessageFailedAt,omitempty"`
	CreatedAt           time.Time  `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt           time.Time  `gorm:"column:updated_at" json:"updatedAt"`
}

// TableName overrides the gorm default.
func (MessageStats) TableName() string {
	return "whatsapp_message_stats"
}
