package services

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CircuitBreaker implements the circuit breaker pattern to prevent hammering
// an unhealthy upstream.
type CircuitBreaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration
	failures    int
	lastFailure time.Time
	isOpen      bool
	mu          sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(name string, maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
	}
}

// Call executes fn with circuit breaker protection.
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.isOpen {
		if time.Since(cb.lastFailure) > cb.cooldown {
			// Half-open: allow one attempt through.
			cb.isOpen = false
			cb.failures = 0
			zap.L().Info("circuit breaker half-open", zap.String("breaker", cb.name))
		} else {
			return fmt.Errorf("circuit breaker %s is open (cooldown until %v)",
				cb.name, cb.lastFailure.Add(cb.cooldown))
		}
	}

	err := fn()

	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()

		if cb.failures >= cb.maxFailures {
			cb.isOpen = true
			zap.L().Warn("circuit breaker opened",
				zap.String("breaker", cb.name),
				zap.Int("failures", cb.failures),
				zap.Duration("cooldown", cb.cooldown))
		}

		return err
	}

	if cb.failures > 0 {
		zap.L().Info("circuit breaker recovered",
			zap.String("breaker", cb.name),
			zap.Int("failures", cb.failures))
	}
	cb.failures = 0
	return nil
}

// IsOpen returns true if the circuit breaker is currently open.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.isOpen
}

// Reset manually resets the circuit breaker.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.isOpen = false
}
