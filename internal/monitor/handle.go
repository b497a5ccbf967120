package monitor

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Handle errors.
var (
	// ErrAlreadyRunning is returned by Start while a worker is active.
	// Only one worker may run per monitored player.
	ErrAlreadyRunning = errors.New("monitor already running")

	// ErrNotRunning is returned by Stop when no worker is active.
	ErrNotRunning = errors.New("monitor not running")
)

// Handle owns the lifecycle of one monitor loop worker. It is the
// caller-facing start/stop/status surface; the loop itself never touches
// process-wide state.
type Handle struct {
	loop *Loop

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	startedAt time.Time
}

// NewHandle creates a Handle over the given loop.
func NewHandle(loop *Loop) *Handle {
	return &Handle{loop: loop}
}

// Start launches the loop worker. Starting while one runs is rejected
// with ErrAlreadyRunning, never raced.
func (h *Handle) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.runningLocked() {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	h.cancel = cancel
	h.done = done
	h.startedAt = time.Now()

	go func() {
		defer close(done)
		if err := h.loop.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			h.loop.logger.Printf("monitor loop exited: %v", err)
		}
	}()

	return nil
}

// Stop cancels the worker and waits for it to observe the cancellation
// between polls. Stopping an idle handle returns ErrNotRunning.
func (h *Handle) Stop() error {
	h.mu.Lock()
	if !h.runningLocked() {
		h.mu.Unlock()
		return ErrNotRunning
	}
	cancel := h.cancel
	done := h.done
	h.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Running reports whether a worker is active.
func (h *Handle) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.runningLocked()
}

func (h *Handle) runningLocked() bool {
	if h.done == nil {
		return false
	}
	select {
	case <-h.done:
		return false
	default:
		return true
	}
}

// Status describes the handle and its loop at a point in time.
type Status struct {
	Player    string    `json:"player"`
	Running   bool      `json:"running"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Stats     Stats     `json:"stats"`
}

// Status returns the current status.
func (h *Handle) Status() Status {
	h.mu.Lock()
	running := h.runningLocked()
	startedAt := h.startedAt
	h.mu.Unlock()

	status := Status{
		Player:  h.loop.Player(),
		Running: running,
		Stats:   h.loop.Stats(),
	}
	if running {
		status.StartedAt = startedAt
	}
	return status
}
