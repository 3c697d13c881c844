package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nodonorteit/wspbot/models"
)

// GormSessionStore persists sessions in Postgres so registry state survives
// a process restart.
type GormSessionStore struct {
	db *gorm.DB
}

// NewGormSessionStore wraps an existing gorm connection.
func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{db: db}
}

// Get returns the tenant's session, or nil when untracked.
func (s *GormSessionStore) Get(tenantID string) (*models.Session, error) {
	var record models.SessionRecord
	err := s.db.Where("tenant_id = ?", tenantID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}
	return recordToSession(&record), nil
}

// Set upserts the session row.
func (s *GormSessionStore) Set(session *models.Session) error {
	record := models.SessionRecord{
		TenantID:     session.TenantID,
		SessionName:  session.SessionName,
		Status:       string(session.Status),
		QRCode:       session.QRCode,
		LastActivity: session.LastActivity,
		UpdatedAt:    time.Now(),
	}
	err := s.db.Save(&record).Error
	if err != nil {
		return fmt.Errorf("session save failed: %w", err)
	}
	return nil
}

// Delete removes the tenant's session row, reporting whether it existed.
func (s *GormSessionStore) Delete(tenantID string) (bool, error) {
	result := s.db.Where("tenant_id = ?", tenantID).Delete(&models.SessionRecord{})
	if result.Error != nil {
		return false, fmt.Errorf("session delete failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// List returns all tracked sessions.
func (s *GormSessionStore) List() ([]*models.Session, error) {
	var records []models.SessionRecord
	if err := s.db.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("session list failed: %w", err)
	}
	out := make([]*models.Session, 0, len(records))
	for i := range records {
		out = append(out, recordToSession(&records[i]))
	}
	return out, nil
}

func recordToSession(record *models.SessionRecord) *models.Session {
	return &models.Session{
		TenantID:     record.TenantID,
		SessionName:  record.SessionName,
		Status:       models.SessionStatus(record.Status),
		QRCode:       record.QRCode,
		LastActivity: record.LastActivity,
	}
}
