package transfer

import (
	"context"
	"errors"
	"time"
)

// Errors returned when starting a transfer.
var (
	ErrEmptyClipboard = errors.New("clipboard is empty")
	ErrNoActiveDrag   = errors.New("no drag in progress")
	ErrNoFiles        = errors.New("no files to transfer")
)

// Operation kinds carried on results and progress records.
const (
	OpCopy   = "copy"
	OpMove   = "move"
	OpDelete = "delete"
)

// Trigger records which staging path started a transfer.
const (
	TriggerClipboard = "clipboard"
	TriggerDrag      = "drag"
	TriggerCommand   = "command"
)

// CollisionPolicy decides what happens when the destination name is
// already taken. Rename is the default; data is never destroyed unless
// overwrite was configured explicitly.
type CollisionPolicy string

const (
	CollisionRename    CollisionPolicy = "rename"
	CollisionSkip      CollisionPolicy = "skip"
	CollisionOverwrite CollisionPolicy = "overwrite"
)

// ItemStatus tags the outcome of a single item.
type ItemStatus string

const (
	ItemOK        ItemStatus = "ok"
	ItemSkipped   ItemStatus = "skipped"
	ItemFailed    ItemStatus = "failed"
	ItemCancelled ItemStatus = "cancelled"
)

// ItemResult is the outcome of one item in a batch. Aggregation is
// total: every staged item ends up with exactly one of these.
type ItemResult struct {
	Source      string     `json:"source"`
	Destination string     `json:"destination,omitempty"`
	Status      ItemStatus `json:"status"`
	Error       string     `json:"error,omitempty"`
	Overwrote   bool       `json:"overwrote,omitempty"`
}

// Status is the terminal state of a whole transfer.
type Status string

const (
	StatusCompleted       Status = "completed"
	StatusPartiallyFailed Status = "partially_failed"
	StatusFailed          Status = "failed"
	StatusCancelled       Status = "cancelled"
)

// Result is the aggregated report of one finished transfer.
type Result struct {
	ID          string       `json:"id"`
	Operation   string       `json:"operation"`
	Status      Status       `json:"status"`
	Trigger     string       `json:"trigger"`
	SourcePanel string       `json:"sourcePanel,omitempty"`
	DestPanel   string       `json:"destPanel,omitempty"`
	DestPath    string       `json:"destPath,omitempty"`
	Items       []ItemResult `json:"items"`
	Successes   int          `json:"successes"`
	Failures    int          `json:"failures"`
	Skipped     int          `json:"skipped"`
	Cancelled   int          `json:"cancelled"`
	StartedAt   time.Time    `json:"startedAt"`
	FinishedAt  time.Time    `json:"finishedAt"`
}

// tally fills the counters and derives the terminal status from the
// item outcomes.
func (r *Result) tally() {
	r.Successes, r.Failures, r.Skipped, r.Cancelled = 0, 0, 0, 0
	for _, item := range r.Items {
		switch item.Status {
		case ItemOK:
			r.Successes++
		case ItemFailed:
			r.Failures++
		case ItemSkipped:
			r.Skipped++
		case ItemCancelled:
			r.Cancelled++
		}
	}
	switch {
	case r.Cancelled > 0:
		r.Status = StatusCancelled
	case r.Failures == 0:
		r.Status = StatusCompleted
	case r.Successes > 0:
		r.Status = StatusPartiallyFailed
	default:
		r.Status = StatusFailed
	}
}

// Recorder persists finished transfers. The coordinator works without
// one; recording failures only get logged.
type Recorder interface {
	RecordResult(ctx context.Context, res Result) error
}
