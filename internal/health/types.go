// Package health reports whether the pieces the panels depend on are
// usable: the database, the configured home directory, the directories
// panels currently show, and the filesystem watcher.
package health

// Status is the health state of a checked component.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// worse reports whether a outranks b in severity.
func worse(a, b Status) bool {
	rank := map[Status]int{StatusOK: 0, StatusWarning: 1, StatusError: 2}
	return rank[a] > rank[b]
}

// Item is the result of one check.
type Item struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Report bundles all check results with a worst-of rollup.
type Report struct {
	Status Status `json:"status"`
	Items  []Item `json:"items"`
}
