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

	"github.com/nodonorteit/wspbot/config"
	"github.com/nodonorteit/wspbot/models"
)

// TurnAction names one forwarded scheduling action.
type TurnAction string

const (
	ActionBookTurn          TurnAction = "BOOK_TURN"
	ActionGetMyTurns        TurnAction = "GET_MY_TURNS"
	ActionGetAvailableTimes TurnAction = "GET_AVAILABLE_TIMES"
	ActionCancelTurn        TurnAction = "CANCEL_TURN"
)

// TurnForward is the payload sent to the turn-scheduling service.
type TurnForward struct {
	TenantID string                 `json:"tenantId"`
	Message  models.InboundMessage  `json:"message"`
	Action   TurnAction             `json:"action"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// TurnService is the outbound port to the turn-scheduling collaborator.
// Fire-and-forget from this service's perspective.
type TurnService interface {
	Forward(ctx context.Context, fwd TurnForward) error
}

// HTTPTurnClient forwards actions to the turns service over HTTP.
type HTTPTurnClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPTurnClient creates a client from the turns section of the
// configuration.
func NewHTTPTurnClient(cfg config.TurnsConfig) *HTTPTurnClient {
	return &HTTPTurnClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Forward posts the action to the turns service webhook.
func (c *HTTPTurnClient) Forward(ctx context.Context, fwd TurnForward) error {
	jsonData, err := json.Marshal(fwd)
	if err != nil {
		return fmt.Errorf("failed to marshal turn forward: %w", err)
	}

	url := c.baseURL + "/api/whatsapp/webhook"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call turns service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("turns service returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
