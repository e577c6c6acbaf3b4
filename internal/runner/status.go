package runner

import (
	"sync"
	"time"
)

// State is the coarse lifecycle of the watcher process.
type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateOK       State = "ok"
	StateError    State = "error"
)

// Status is a read-only snapshot of run telemetry, consumed by the health
// surface.
type Status struct {
	State     State     `json:"state"`
	LastRunAt time.Time `json:"last_run_at"`
	LastError string    `json:"last_error,omitempty"`
	IsRunning bool      `json:"is_running"`
}

// statusTracker guards the process-wide run status. Fields reset on each
// run start.
type statusTracker struct {
	mu     sync.RWMutex
	status Status
}

func newStatusTracker() *statusTracker {
	return &statusTracker{status: Status{State: StateStarting}}
}

func (t *statusTracker) begin(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateRunning
	t.status.LastRunAt = at
	t.status.LastError = ""
	t.status.IsRunning = true
}

func (t *statusTracker) finishOK(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateOK
	t.status.LastRunAt = at
	t.status.IsRunning = false
}

func (t *statusTracker) finishError(at time.Time, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status.State = StateError
	t.status.LastRunAt = at
	t.status.LastError = err.Error()
	t.status.IsRunning = false
}

func (t *statusTracker) snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}
