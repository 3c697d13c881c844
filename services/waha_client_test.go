package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nodonorteit/wspbot/config"
)

func TestBreakerOpensOnPersistentServerErrors(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewWAHAClient(config.WAHAConfig{
		BaseURL:       srv.URL,
		Timeout:       2 * time.Second,
		RetryAttempts: 1,
	})

	// A reachable gateway that only answers 500 must open the breaker at
	// the failure threshold, same as an unreachable one would.
	for i := 0; i < 5; i++ {
		if _, err := client.GetSession(context.Background(), "tenant_acme"); err == nil {
			t.Fatalf("call %d: expected error from erroring gateway", i)
		}
	}
	if !client.breaker.IsOpen() {
		t.Fatal("breaker should be open after repeated server errors")
	}

	mu.Lock()
	before := hits
	mu.Unlock()

	_, err := client.GetSession(context.Background(), "tenant_acme")
	if err == nil || !strings.Contains(err.Error(), "circuit breaker") {
		t.Fatalf("expected fast breaker rejection, got %v", err)
	}

	mu.Lock()
	after := hits
	mu.Unlock()
	if after != before {
		t.Errorf("open breaker still reached the gateway (%d -> %d hits)", before, after)
	}
}
