package sweep

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State represents the current state of a sweep run
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Run records the lifecycle of one sweep execution.
type Run struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	State     State      `json:"state"`
	From      int        `json:"from"`
	To        int        `json:"to"`
	Completed int        `json:"completed"`
	LastK     int        `json:"lastK"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// runTracker guards a Run so progress can be read while the sweep advances
type runTracker struct {
	mu  sync.RWMutex
	run Run
}

func newRunTracker(cfg Config) *runTracker {
	return &runTracker{
		run: Run{
			ID:        uuid.New().String(),
			Name:      cfg.Name,
			State:     StatePending,
			From:      cfg.From,
			To:        cfg.To,
			StartTime: time.Now(),
		},
	}
}

// update atomically modifies the run
func (t *runTracker) update(fn func(*Run)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.run)
}

// snapshot returns a copy of the run
func (t *runTracker) snapshot() Run {
	t.mu.RLock()
	defer t.mu.RUnlock()

	run := t.run
	if t.run.EndTime != nil {
		end := *t.run.EndTime
		run.EndTime = &end
	}
	return run
}

func (t *runTracker) finish(state State, err error) {
	t.update(func(r *Run) {
		end := time.Now()
		r.State = state
		r.EndTime = &end
		if err != nil {
			r.Error = err.Error()
		}
	})
}

// Duration returns how long the run took, or has taken so far
func (r Run) Duration() time.Duration {
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return time.Since(r.StartTime)
}

// Done reports whether the run reached a terminal state
func (r Run) Done() bool {
	switch r.State {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}
