package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nodonorteit/wspbot/models"
)

// Processor is the consuming side of the queue.
type Processor interface {
	ProcessIncomingMessage(ctx context.Context, tenantID string, payload models.WebhookPayload)
}

type job struct {
	tenantID string
	payload  models.WebhookPayload
}

// WebhookWorker fans inbound webhooks out to one bounded queue per tenant.
// Within a tenant, arrival order is preserved; across tenants, processing is
// fully parallel. A full queue drops the payload with a warning, it never
// blocks the webhook response.
type WebhookWorker struct {
	processor  Processor
	queueSize  int
	jobTimeout time.Duration

	mu      sync.Mutex
	queues  map[string]chan job
	stopped bool
	wg      sync.WaitGroup
}

// NewWebhookWorker creates a worker with the given per-tenant queue size.
func NewWebhookWorker(processor Processor, queueSize int) *WebhookWorker {
	if queueSize < 1 {
		queueSize = 1
	}
	return &WebhookWorker{
		processor:  processor,
		queueSize:  queueSize,
		jobTimeout: 30 * time.Second,
		queues:     make(map[string]chan job),
	}
}

// Start logs readiness. Queues are created lazily on first enqueue.
func (w *WebhookWorker) Start() {
	zap.L().Info("webhook worker started", zap.Int("queueSize", w.queueSize))
}

// Enqueue hands one webhook payload to the tenant's queue. Returns false
// when the worker is stopped or the queue is full.
func (w *WebhookWorker) Enqueue(tenantID string, payload models.WebhookPayload) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return false
	}
	queue, ok := w.queues[tenantID]
	if !ok {
		queue = make(chan job, w.queueSize)
		w.queues[tenantID] = queue
		w.wg.Add(1)
		go w.drain(tenantID, queue)
	}

	// The send must stay inside the critical section: Stop closes the queue
	// under the same mutex, so a send after the stopped check can never hit
	// a closed channel. The send is non-blocking, holding the lock is cheap.
	select {
	case queue <- job{tenantID: tenantID, payload: payload}:
		return true
	default:
		zap.L().Warn("webhook queue full, dropping payload",
			zap.String("tenantId", tenantID))
		return false
	}
}

// drain processes one tenant's jobs in arrival order.
func (w *WebhookWorker) drain(tenantID string, queue chan job) {
	defer w.wg.Done()
	for j := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
		w.processor.ProcessIncomingMessage(ctx, j.tenantID, j.payload)
		cancel()
	}
	zap.L().Debug("webhook queue drained", zap.String("tenantId", tenantID))
}

// Stop closes all queues and waits for in-flight jobs to finish.
func (w *WebhookWorker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	for _, queue := range w.queues {
		close(queue)
	}
	w.mu.Unlock()

	w.wg.Wait()
	zap.L().Info("webhook worker stopped")
}
