package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/nodonorteit/wspbot/models"
)

var (
	// ErrSessionNotFound reports that a tenant has no tracked session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNotConnected reports a send attempted on a non-connected session.
	ErrNotConnected = errors.New("session not connected")
)

// SessionManager is the authoritative registry of one WhatsApp session per
// tenant, each proxied 1:1 onto a WAHA gateway session. All mutations are
// serialized per tenant; operations on different tenants proceed in
// parallel.
type SessionManager struct {
	waha   *WAHAClient
	store  SessionStore
	prefix string

	locks      sync.Map // tenantID -> *sync.Mutex
	startGroup singleflight.Group

	stats *MessageStatsRecorder
}

// NewSessionManager builds the registry and runs a one-time reconciliation
// pass against the gateway, adopting any externally-known session whose name
// carries the tenant prefix. Reconciliation failure means starting from
// empty, never a startup failure.
func NewSessionManager(waha *WAHAClient, store SessionStore, prefix string, stats *MessageStatsRecorder) *SessionManager {
	m := &SessionManager{
		waha:   waha,
		store:  store,
		prefix: prefix,
		stats:  stats,
	}
	m.reconcile(context.Background())
	return m
}

func (m *SessionManager) reconcile(ctx context.Context) {
	sessions, err := m.waha.ListSessions(ctx)
	if err != nil {
		zap.L().Error("failed to initialize sessions from gateway", zap.Error(err))
		return
	}

	adopted := 0
	for _, s := range sessions {
		if !strings.HasPrefix(s.Name, m.prefix) {
			continue
		}
		tenantID := strings.TrimPrefix(s.Name, m.prefix)
		session := &models.Session{
			TenantID:     tenantID,
			SessionName:  s.Name,
			Status:       StatusFromWAHA(s.Status),
			QRCode:       s.QR,
			LastActivity: time.Now(),
		}
		if err := m.store.Set(session); err != nil {
			zap.L().Error("failed to adopt session",
				zap.String("tenantId", tenantID), zap.Error(err))
			continue
		}
		adopted++
	}
	zap.L().Info("initialized tenant sessions", zap.Int("count", adopted))
}

// SessionName derives the external gateway session key for a tenant. Pure
// function of the tenant id; never collides across tenants.
func (m *SessionManager) SessionName(tenantID string) string {
	return m.prefix + tenantID
}

func (m *SessionManager) tenantLock(tenantID string) *sync.Mutex {
	v, _ := m.locks.LoadOrStore(tenantID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// StartSession ensures the tenant has a gateway session. Idempotent when the
// session is already connected. Concurrent calls for the same tenant are
// collapsed into a single gateway create.
func (m *SessionManager) StartSession(ctx context.Context, tenantID string) (*models.Session, error) {
	v, err, _ := m.startGroup.Do(tenantID, func() (interface{}, error) {
		// Piggybacked callers share this one execution, so it must not die
		// with the winning caller's context. The HTTP client timeout still
		// bounds the gateway call.
		return m.startSession(context.WithoutCancel(ctx), tenantID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Session), nil
}

func (m *SessionManager) startSession(ctx context.Context, tenantID string) (*models.Session, error) {
	lock := m.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := m.store.Get(tenantID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == models.StatusConnected {
		zap.L().Info("session already connected", zap.String("tenantId", tenantID))
		return existing, nil
	}

	sessionName := m.SessionName(tenantID)
	if err := m.waha.CreateSession(ctx, sessionName); err != nil {
		zap.L().Error("failed to start session",
			zap.String("tenantId", tenantID), zap.Error(err))
		return nil, err
	}

	session := &models.Session{
		TenantID:     tenantID,
		SessionName:  sessionName,
		Status:       models.StatusConnecting,
		LastActivity: time.Now(),
	}
	if err := m.store.Set(session); err != nil {
		return nil, err
	}

	zap.L().Info("started session", zap.String("tenantId", tenantID))
	return session, nil
}

// StopSession removes the tenant's session. Untracked tenants return
// (false, nil) without a gateway call. For tracked tenants the gateway
// delete is attempted at least once and the local record is removed
// regardless; a delete failure is returned so the caller can distinguish it
// from not-found.
func (m *SessionManager) StopSession(ctx context.Context, tenantID string) (bool, error) {
	lock := m.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.store.Get(tenantID)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}

	deleteErr := m.waha.DeleteSession(ctx, session.SessionName)

	// Local state is authoritative for later StartSession idempotency, so
	// the record goes away even when the gateway delete failed.
	if _, storeErr := m.store.Delete(tenantID); storeErr != nil {
		return true, storeErr
	}

	if deleteErr != nil {
		zap.L().Error("failed to stop session on gateway",
			zap.String("tenantId", tenantID), zap.Error(deleteErr))
		return true, fmt.Errorf("gateway delete failed: %w", deleteErr)
	}

	zap.L().Info("stopped session", zap.String("tenantId", tenantID))
	return true, nil
}

// GetSessionStatus refreshes the tenant's status from a live gateway query
// and returns the updated session. Returns (nil, nil) for untracked
// tenants; status is never trusted stale beyond one request.
func (m *SessionManager) GetSessionStatus(ctx context.Context, tenantID string) (*models.Session, error) {
	lock := m.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.store.Get(tenantID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	remote, err := m.waha.GetSession(ctx, session.SessionName)
	if err != nil {
		zap.L().Error("failed to refresh session status",
			zap.String("tenantId", tenantID), zap.Error(err))
		return nil, err
	}

	next := StatusFromWAHA(remote.Status)
	if err := session.ApplyStatus(next); err != nil {
		// The gateway reported a state the machine rejects; keep the local
		// state rather than overwriting.
		zap.L().Warn("rejected session transition",
			zap.String("tenantId", tenantID), zap.Error(err))
	} else if remote.QR != "" && next == models.StatusConnecting {
		session.QRCode = remote.QR
	}
	if err := m.store.Set(session); err != nil {
		return nil, err
	}
	return session, nil
}

// UpdateSessionStatus applies a locally-observed status change (webhook
// driven). Unknown tenants and illegal transitions are no-ops beyond a log
// line.
func (m *SessionManager) UpdateSessionStatus(tenantID string, status models.SessionStatus) {
	lock := m.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	session, err := m.store.Get(tenantID)
	if err != nil || session == nil {
		return
	}
	if err := session.ApplyStatus(status); err != nil {
		zap.L().Warn("rejected session transition",
			zap.String("tenantId", tenantID), zap.Error(err))
		return
	}
	if err := m.store.Set(session); err != nil {
		zap.L().Error("failed to persist session status",
			zap.String("tenantId", tenantID), zap.Error(err))
	}
}

// GetQRCode derives a QR image (PNG data URI) from the gateway screenshot.
// Returns ("", nil) when the session is untracked or the gateway has
// nothing to show; only transport failures are errors.
func (m *SessionManager) GetQRCode(ctx context.Context, tenantID string) (string, error) {
	session, err := m.store.Get(tenantID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", nil
	}

	screenshot, err := m.waha.GetScreenshot(ctx, session.SessionName)
	if err != nil {
		zap.L().Error("failed to get QR code",
			zap.String("tenantId", tenantID), zap.Error(err))
		return "", err
	}
	if len(screenshot) == 0 {
		return "", nil
	}

	png, err := qrcode.Encode(string(screenshot), qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("qr encode failed: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// GetScreenshot returns the raw gateway screenshot, or (nil, nil) when the
// session is untracked or the gateway had nothing.
func (m *SessionManager) GetScreenshot(ctx context.Context, tenantID string) ([]byte, error) {
	session, err := m.store.Get(tenantID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	screenshot, err := m.waha.GetScreenshot(ctx, session.SessionName)
	if err != nil {
		zap.L().Error("failed to get screenshot",
			zap.String("tenantId", tenantID), zap.Error(err))
		return nil, err
	}
	if len(screenshot) == 0 {
		return nil, nil
	}
	return screenshot, nil
}

// SendMessage dispatches one outbound message for a connected tenant. A
// non-connected session fails fast without a gateway call: ErrSessionNotFound
// and ErrNotConnected are distinguishable by the caller. Gateway-reported
// non-success is a soft false after logging.
func (m *SessionManager) SendMessage(ctx context.Context, tenantID string, msg models.OutboundMessage) (bool, error) {
	session, err := m.store.Get(tenantID)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, fmt.Errorf("%w for tenant %s", ErrSessionNotFound, tenantID)
	}
	if session.Status != models.StatusConnected {
		return false, fmt.Errorf("%w for tenant %s (status %s)", ErrNotConnected, tenantID, session.Status)
	}

	ok, err := m.waha.Send(ctx, session.SessionName, msg)
	if m.stats != nil {
		go m.stats.Record(tenantID, ok && err == nil)
	}
	if err != nil {
		zap.L().Error("failed to send message",
			zap.String("tenantId", tenantID), zap.Error(err))
		return false, err
	}
	return ok, nil
}

// GetMessages returns the tenant's message history from the gateway, or an
// empty list for untracked tenants.
func (m *SessionManager) GetMessages(ctx context.Context, tenantID string) ([]WAHAMessage, error) {
	session, err := m.store.Get(tenantID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return []WAHAMessage{}, nil
	}
	messages, err := m.waha.GetMessages(ctx, session.SessionName)
	if err != nil {
		zap.L().Error("failed to get messages",
			zap.String("tenantId", tenantID), zap.Error(err))
		return nil, err
	}
	return messages, nil
}

// GetActiveSessionsCount counts sessions currently connected.
func (m *SessionManager) GetActiveSessionsCount() int {
	sessions, err := m.store.List()
	if err != nil {
		zap.L().Error("failed to list sessions", zap.Error(err))
		return 0
	}
	count := 0
	for _, s := range sessions {
		if s.Status == models.StatusConnected {
			count++
		}
	}
	return count
}

// GetAllSessions returns every tracked session.
func (m *SessionManager) GetAllSessions() []*models.Session {
	sessions, err := m.store.List()
	if err != nil {
		zap.L().Error("failed to list sessions", zap.Error(err))
		return nil
	}
	return sessions
}
