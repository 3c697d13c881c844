package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nodonorteit/wspbot/models"
)

type recordingProcessor struct {
	mu    sync.Mutex
	seen  map[string][]string
	block chan struct{}
}

func (p *recordingProcessor) ProcessIncomingMessage(ctx context.Context, tenantID string, payload models.WebhookPayload) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen == nil {
		p.seen = make(map[string][]string)
	}
	p.seen[tenantID] = append(p.seen[tenantID], payload.Body)
}

func TestWorkerPreservesPerTenantOrder(t *testing.T) {
	proc := &recordingProcessor{}
	w := NewWebhookWorker(proc, 128)
	w.Start()

	const n = 50
	for i := 0; i < n; i++ {
		body := fmt.Sprintf("msg-%03d", i)
		if !w.Enqueue("a", models.WebhookPayload{Body: body}) {
			t.Fatalf("enqueue a/%d failed", i)
		}
		if !w.Enqueue("b", models.WebhookPayload{Body: body}) {
			t.Fatalf("enqueue b/%d failed", i)
		}
	}
	w.Stop()

	for _, tenant := range []string{"a", "b"} {
		got := proc.seen[tenant]
		if len(got) != n {
			t.Fatalf("tenant %s processed %d, want %d", tenant, len(got), n)
		}
		for i, body := range got {
			want := fmt.Sprintf("msg-%03d", i)
			if body != want {
				t.Fatalf("tenant %s order broken at %d: got %s, want %s", tenant, i, body, want)
			}
		}
	}
}

func TestWorkerDropsOnFullQueue(t *testing.T) {
	block := make(chan struct{})
	proc := &recordingProcessor{block: block}
	w := NewWebhookWorker(proc, 1)
	w.Start()

	// First payload occupies the processor, second fills the queue.
	w.Enqueue("a", models.WebhookPayload{Body: "one"})
	time.Sleep(20 * time.Millisecond)
	w.Enqueue("a", models.WebhookPayload{Body: "two"})

	if w.Enqueue("a", models.WebhookPayload{Body: "three"}) {
		t.Error("expected enqueue to report drop on full queue")
	}

	close(block)
	w.Stop()
}

func TestWorkerEnqueueRacingStopNeverPanics(t *testing.T) {
	// Enqueue must never send on a queue Stop has already closed, no matter
	// how the two interleave.
	for iter := 0; iter < 50; iter++ {
		proc := &recordingProcessor{}
		w := NewWebhookWorker(proc, 4)

		start := make(chan struct{})
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				<-start
				tenant := fmt.Sprintf("t%d", g%4)
				for i := 0; i < 20; i++ {
					w.Enqueue(tenant, models.WebhookPayload{Body: "x"})
				}
			}(g)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			w.Stop()
		}()

		close(start)
		wg.Wait()
	}
}

func TestWorkerRejectsAfterStop(t *testing.T) {
	proc := &recordingProcessor{}
	w := NewWebhookWorker(proc, 4)
	w.Start()
	w.Stop()

	if w.Enqueue("a", models.WebhookPayload{Body: "late"}) {
		t.Error("expected enqueue to fail after stop")
	}
}
