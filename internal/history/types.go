package history

import "time"

// Batch is one recorded transfer run. Items are populated on detail
// lookups only.
type Batch struct {
	ID          string    `json:"id"`
	Operation   string    `json:"operation"`
	Status      string    `json:"status"`
	InitiatedBy string    `json:"initiatedBy,omitempty"`
	SourcePanel string    `json:"sourcePanel,omitempty"`
	DestPanel   string    `json:"destPanel,omitempty"`
	DestPath    string    `json:"destPath,omitempty"`
	TotalItems  int       `json:"totalItems"`
	Successes   int       `json:"successes"`
	Failures    int       `json:"failures"`
	Skipped     int       `json:"skipped"`
	Cancelled   int       `json:"cancelled"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Items       []Item    `json:"items,omitempty"`
}

// Item is one file inside a batch.
type Item struct {
	Position    int    `json:"position"`
	Source      string `json:"source"`
	Destination string `json:"destination,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	Overwrote   bool   `json:"overwrote,omitempty"`
}

// ListOptions contains options for listing batches.
type ListOptions struct {
	Page      int
	PageSize  int
	Operation string
	Status    string
}

// ListResponse is one page of batches.
type ListResponse struct {
	Items      []*Batch `json:"items"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalCount int64    `json:"totalCount"`
	TotalPages int      `json:"totalPages"`
}
