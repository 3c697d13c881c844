package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nodonorteit/wspbot/models"
	"github.com/nodonorteit/wspbot/worker"
)

type stubProcessor struct {
	mu   sync.Mutex
	seen []models.WebhookPayload
}

func (s *stubProcessor) ProcessIncomingMessage(ctx context.Context, tenantID string, payload models.WebhookPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, payload)
}

func webhookRouter(w *worker.WebhookWorker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook/:tenantId", NewWebhookHandler(w).HandleWebhook)
	return r
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	proc := &stubProcessor{}
	wk := worker.NewWebhookWorker(proc, 8)
	defer wk.Stop()
	r := webhookRouter(wk)

	body := `{"id":"m1","chatId":"123@c.us","body":"hola","from":"123@c.us","messageType":"text"}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/acme", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Webhook processed") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	deadline := time.Now().Add(time.Second)
	for {
		proc.mu.Lock()
		n := len(proc.seen)
		proc.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("payload never reached the processor")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	wk := worker.NewWebhookWorker(&stubProcessor{}, 8)
	defer wk.Stop()
	r := webhookRouter(wk)

	req := httptest.NewRequest(http.MethodPost, "/webhook/acme", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSendValidationRejectsMissingFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewWhatsAppHandler(nil) // validation fails before the registry is touched
	r.POST("/api/sessions/:tenantId/send-text", h.SendTextMessage)
	r.POST("/api/sessions/:tenantId/send-image", h.SendImageMessage)
	r.POST("/api/sessions/:tenantId/send-file", h.SendFileMessage)

	cases := []struct {
		path string
		body string
	}{
		{"/api/sessions/acme/send-text", `{"chatId":"123"}`},
		{"/api/sessions/acme/send-text", `{"text":"hi"}`},
		{"/api/sessions/acme/send-image", `{"chatId":"123"}`},
		{"/api/sessions/acme/send-file", `{"url":"http://x/file.pdf"}`},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s %s: status = %d, want 400", tc.path, tc.body, rec.Code)
		}
	}
}
