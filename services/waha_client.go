package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nodonorteit/wspbot/config"
	"github.com/nodonorteit/wspbot/models"
)

// WAHASession is the gateway's view of one session.
type WAHASession struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	QR     string `json:"qr,omitempty"`
}

// WAHAMessage is one message as returned by the gateway's message listing.
type WAHAMessage struct {
	ID        string `json:"id"`
	ChatID    string `json:"chatId"`
	Body      string `json:"body"`
	From      string `json:"from"`
	To        string `json:"to"`
	Timestamp int64  `json:"timestamp"`
}

// WAHAClient is a thin HTTP client bound to one WAHA gateway. It does no
// business logic beyond request/response marshalling. Reads (status,
// screenshot, listings) are retried up to the configured attempt count;
// writes are never blindly retried, the gateway has no exactly-once
// guarantee.
type WAHAClient struct {
	baseURL       string
	apiKey        string
	retryAttempts int
	client        *http.Client
	breaker       *CircuitBreaker
}

// NewWAHAClient creates a client from the WAHA section of the configuration.
func NewWAHAClient(cfg config.WAHAConfig) *WAHAClient {
	return &WAHAClient{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:        cfg.APIKey,
		retryAttempts: cfg.RetryAttempts,
		client:        &http.Client{Timeout: cfg.Timeout},
		breaker:       NewCircuitBreaker("waha", 5, 60*time.Second),
	}
}

// ListSessions returns every session the gateway currently knows about.
func (w *WAHAClient) ListSessions(ctx context.Context) ([]WAHASession, error) {
	var sessions []WAHASession
	if err := w.getJSON(ctx, "/api/sessions", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreateSession asks the gateway to create a session. The gateway answers
// 201 on creation.
func (w *WAHAClient) CreateSession(ctx context.Context, name string) error {
	payload := map[string]string{"name": name}
	resp, err := w.do(ctx, http.MethodPost, "/api/sessions", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("waha create session %s: unexpected status %d", name, resp.StatusCode)
	}
	return nil
}

// DeleteSession removes a session from the gateway.
func (w *WAHAClient) DeleteSession(ctx context.Context, name string) error {
	resp, err := w.do(ctx, http.MethodDelete, "/api/sessions/"+name, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("waha delete session %s: unexpected status %d", name, resp.StatusCode)
	}
	return nil
}

// GetSession fetches the live status of one session.
func (w *WAHAClient) GetSession(ctx context.Context, name string) (*WAHASession, error) {
	var session WAHASession
	if err := w.getJSON(ctx, "/api/sessions/"+name, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetScreenshot fetches the raw screenshot bytes for a session. An empty
// slice means the gateway had nothing to show; that is not an error.
func (w *WAHAClient) GetScreenshot(ctx context.Context, name string) ([]byte, error) {
	var body []byte
	err := w.withRetry(func() error {
		resp, err := w.do(ctx, http.MethodGet, "/api/screenshot/"+name, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			body = nil
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("waha screenshot %s: unexpected status %d", name, resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// GetMessages fetches the message history for a session.
func (w *WAHAClient) GetMessages(ctx context.Context, name string) ([]WAHAMessage, error) {
	var messages []WAHAMessage
	if err := w.getJSON(ctx, "/api/messages/"+name, &messages); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []WAHAMessage{}
	}
	return messages, nil
}

// Send dispatches one outbound message through the gateway. It returns true
// when the gateway accepted the message (201). A non-success status is a
// soft false; only transport problems are errors.
func (w *WAHAClient) Send(ctx context.Context, sessionName string, msg models.OutboundMessage) (bool, error) {
	path := "/api/sendText"
	payload := map[string]interface{}{
		"session": sessionName,
		"chatId":  msg.ChatID,
	}

	switch msg.Kind {
	case models.OutboundText:
		payload["text"] = msg.Text
	case models.OutboundImage:
		path = "/api/sendImage"
		payload["url"] = msg.URL
		payload["caption"] = msg.Caption
	case models.OutboundFile:
		path = "/api/sendFile"
		payload["url"] = msg.URL
		payload["filename"] = msg.Filename
	default:
		return false, fmt.Errorf("unknown outbound message kind %q", msg.Kind)
	}

	resp, err := w.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		zap.L().Warn("waha rejected outbound message",
			zap.String("session", sessionName),
			zap.String("kind", string(msg.Kind)),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody))
		return false, nil
	}
	return true, nil
}

// getJSON performs a retried GET and decodes the JSON response into out.
func (w *WAHAClient) getJSON(ctx context.Context, path string, out interface{}) error {
	return w.withRetry(func() error {
		resp, err := w.do(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("waha GET %s: unexpected status %d", path, resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	})
}

// withRetry retries fn with a short backoff. Only used for idempotent reads.
func (w *WAHAClient) withRetry(fn func() error) error {
	attempts := w.retryAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i) * 250 * time.Millisecond)
		}
		if err = fn(); err == nil {
			return nil
		}
	}
	return err
}

// do builds and executes one request against the gateway, wrapped in the
// circuit breaker.
func (w *WAHAClient) do(ctx context.Context, method, path string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, w.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	var resp *http.Response
	err = w.breaker.Call(func() error {
		var callErr error
		resp, callErr = w.client.Do(req)
		if callErr != nil {
			return callErr
		}
		// A gateway persistently answering 5xx is as unhealthy as an
		// unreachable one. Only reads fail through the breaker; writes keep
		// their response so callers can tell a rejection from an outage.
		if method == http.MethodGet && resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("server error %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("waha request %s %s failed: %w", method, path, err)
	}
	return resp, nil
}

// StatusFromWAHA maps a gateway-reported status onto the session state
// machine. The registry never invents a status the gateway did not report.
func StatusFromWAHA(status string) models.SessionStatus {
	switch strings.ToUpper(status) {
	case "WORKING", "CONNECTED":
		return models.StatusConnected
	case "STARTING", "SCAN_QR_CODE", "CONNECTING":
		return models.StatusConnecting
	case "FAILED":
		return models.StatusFailed
	case "STOPPED", "DISCONNECTED":
		return models.StatusDisconnected
	default:
		return models.StatusConnecting
	}
}
