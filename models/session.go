package models

import (
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of a tenant's WhatsApp session.
type SessionStatus string

const (
	StatusDisconnected SessionStatus = "disconnected"
	StatusConnecting   SessionStatus = "connecting"
	StatusConnected    SessionStatus = "connected"
	StatusFailed       SessionStatus = "failed"
)

// validTransitions is the per-state set of reachable next states.
// Self-transitions are always allowed (the gateway re-reports state on
// every status poll).
var validTransitions = map[SessionStatus][]SessionStatus{
	StatusDisconnected: {StatusConnecting},
	StatusConnecting:   {StatusConnected, StatusFailed, StatusDisconnected},
	StatusConnected:    {StatusConnecting, StatusFailed, StatusDisconnected},
	StatusFailed:       {StatusConnecting, StatusDisconnected},
}

// CanTransition reports whether moving from s to next is legal.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusDisconnected, StatusConnecting, StatusConnected, StatusFailed:
		return true
	}
	return false
}

// Session is the registry's record for one tenant. At most one exists per
// tenant at any time; SessionName is derived from TenantID and is the
// external gateway's own session key.
type Session struct {
	TenantID     string        `json:"tenantId"`
	SessionName  string        `json:"sessionName"`
	Status       SessionStatus `json:"status"`
	QRCode       string        `json:"qrCode,omitempty"`
	LastActivity time.Time     `json:"lastActivity"`
}

// ApplyStatus moves the session to next, rejecting illegal transitions
// instead of silently overwriting. LastActivity is refreshed on success.
func (s *Session) ApplyStatus(next SessionStatus) error {
	if !next.Valid() {
		return fmt.Errorf("unknown session status %q", next)
	}
	if !s.Status.CanTransition(next) {
		return fmt.Errorf("illegal session transition %s -> %s for tenant %s", s.Status, next, s.TenantID)
	}
	s.Status = next
	s.LastActivity = time.Now()
	if next != StatusConnecting {
		// QR is only meaningful while pairing is unresolved.
		s.QRCode = ""
	}
	return nil
}

// SessionRecord is the persisted form of Session for the Postgres-backed
// store.
type SessionRecord struct {
	TenantID     string    `gorm:"column:tenant_id;primaryKey"`
	SessionName  string    `gorm:"column:session_name;uniqueIndex"`
	Status       string    `gorm:"column:status"`
	QRCode       string    `gorm:"column:qr_code"`
	LastActivity time.Time `gorm:"column:last_activity"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

// TableName overrides the gorm default.
func (SessionRecord) TableName() string {
	return "whatsapp_sessions"
}
