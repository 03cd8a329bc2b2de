// Package progress tracks per-transfer progress records and broadcasts
// every change to connected WebSocket clients. Records linger briefly
// after reaching a terminal state so the UI can show the final result,
// then remove themselves; an explicit dismissal removes them at once.
package progress

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Removal delays after a record reaches a terminal state. Failures stay
// visible longer.
const (
	removeDelay       = 5 * time.Second
	removeDelayFailed = 10 * time.Second
)

// Status represents the current state of a tracked operation.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Record is one tracked operation.
type Record struct {
	ID          string     `json:"id"`
	Operation   string     `json:"operation"` // "copy", "move" or "delete"
	TotalFiles  int        `json:"totalFiles"`
	CurrentFile string     `json:"currentFile"`
	Percentage  int        `json:"percentage"` // 0-100
	Status      Status     `json:"status"`
	IsComplete  bool       `json:"isComplete"` // true once terminal
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// Broadcaster pushes events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Tracker owns all live progress records.
type Tracker struct {
	hub     Broadcaster
	records map[string]*Record
	mu      sync.RWMutex
	logger  zerolog.Logger
}

// NewTracker creates a progress tracker. hub may be nil in tests.
func NewTracker(hub Broadcaster, logger zerolog.Logger) *Tracker {
	return &Tracker{
		hub:     hub,
		records: make(map[string]*Record),
		logger:  logger.With().Str("component", "progress").Logger(),
	}
}

// Start begins tracking a new operation.
func (t *Tracker) Start(id, operation string, totalFiles int) *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := &Record{
		ID:         id,
		Operation:  operation,
		TotalFiles: totalFiles,
		Status:     StatusInProgress,
		StartedAt:  time.Now(),
	}
	t.records[id] = r
	t.broadcast("progress:started", r)

	t.logger.Debug().
		Str("id", id).
		Str("operation", operation).
		Int("totalFiles", totalFiles).
		Msg("progress started")

	return r
}

// Update records the file currently being processed and how many items
// have finished so far.
func (t *Tracker) Update(id, currentFile string, completedItems int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, exists := t.records[id]
	if !exists {
		return
	}

	r.CurrentFile = currentFile
	if r.TotalFiles > 0 {
		r.Percentage = 100 * completedItems / r.TotalFiles
	}

	t.broadcast("progress:update", r)
}

// Complete marks an operation as finished without errors.
func (t *Tracker) Complete(id string) {
	t.finish(id, StatusCompleted, "", "progress:completed", removeDelay)
}

// Fail marks an operation as failed.
func (t *Tracker) Fail(id, errMsg string) {
	t.finish(id, StatusFailed, errMsg, "progress:error", removeDelayFailed)
}

// Cancel marks an operation as cancelled. Cancellation is its own
// terminal status, not a failure.
func (t *Tracker) Cancel(id string) {
	t.finish(id, StatusCancelled, "", "progress:cancelled", removeDelay)
}

// Dismiss removes a record immediately, regardless of state.
func (t *Tracker) Dismiss(id string) bool {
	t.mu.Lock()
	_, exists := t.records[id]
	if exists {
		delete(t.records, id)
	}
	t.mu.Unlock()

	if exists {
		t.broadcast("progress:removed", map[string]string{"id": id})
	}
	return exists
}

// Get returns a record by id, or nil.
func (t *Tracker) Get(id string) *Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.records[id]
}

// All returns all live records.
func (t *Tracker) All() []*Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Record, 0, len(t.records))
	for _, r := range t.records {
		out = append(out, r)
	}
	return out
}

// finish transitions a record to a terminal state and schedules its
// removal.
func (t *Tracker) finish(id string, status Status, errMsg, event string, delay time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, exists := t.records[id]
	if !exists {
		return
	}

	now := time.Now()
	r.Status = status
	r.IsComplete = true
	r.FinishedAt = &now
	r.Error = errMsg
	if status == StatusCompleted {
		r.Percentage = 100
	}

	t.broadcast(event, r)

	go func() {
		time.Sleep(delay)
		if t.Dismiss(id) {
			t.logger.Debug().Str("id", id).Msg("progress record expired")
		}
	}()

	t.logger.Debug().
		Str("id", id).
		Str("status", string(status)).
		Msg("progress finished")
}

func (t *Tracker) broadcast(msgType string, payload interface{}) {
	if t.hub == nil {
		return
	}
	t.hub.Broadcast(msgType, payload)
}
