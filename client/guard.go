package client

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// guard stops a session from hammering the site once it has signalled that
// we are unwelcome.
type guard struct {
	mu            sync.RWMutex
	triggered     bool
	triggerReason string
	triggeredAt   time.Time

	maxConsecutiveErrors int
	errorCount           int
}

func newGuard() *guard {
	return &guard{maxConsecutiveErrors: 5}
}

// check returns ErrBlocked once the guard has tripped.
func (g *guard) check() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.triggered {
		return fmt.Errorf("%w: %s", ErrBlocked, g.triggerReason)
	}
	return nil
}

// observe records a response status.
func (g *guard) observe(statusCode int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case statusCode == http.StatusForbidden || statusCode == http.StatusTooManyRequests:
		g.triggerLocked(fmt.Sprintf("HTTP %d detected", statusCode))
	case statusCode >= 500:
		g.errorCount++
		if g.errorCount >= g.maxConsecutiveErrors {
			g.triggerLocked("too many consecutive 5xx errors")
		}
	case statusCode < 400:
		g.errorCount = 0
	}
}

func (g *guard) triggerLocked(reason string) {
	if g.triggered {
		return
	}
	g.triggered = true
	g.triggerReason = reason
	g.triggeredAt = time.Now()
	slog.Warn("safety guard triggered, halting requests", "reason", reason)
}

func (g *guard) details() (bool, time.Time, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.triggered, g.triggeredAt, g.triggerReason
}
