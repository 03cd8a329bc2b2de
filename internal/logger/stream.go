package logger

import (
	"encoding/json"
	"sync"
)

const defaultBufferSize = 1000

// Broadcaster is the interface for pushing messages to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Entry represents a parsed log entry for streaming.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Stream implements io.Writer. It keeps recent log entries in a ring
// buffer and forwards them to the hub once one is attached.
type Stream struct {
	hub    Broadcaster
	buffer *RingBuffer[Entry]
	mu     sync.RWMutex
}

// NewStream creates a log stream. The hub may be nil initially and set
// later with SetHub, since the hub itself logs during startup.
func NewStream(hub Broadcaster, bufferSize int) *Stream {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Stream{
		hub:    hub,
		buffer: NewRingBuffer[Entry](bufferSize),
	}
}

// SetHub attaches the broadcast hub for live forwarding.
func (s *Stream) SetHub(hub Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hub = hub
}

// Write implements io.Writer. It receives JSON-encoded entries from
// zerolog; malformed lines are dropped without failing the logger.
func (s *Stream) Write(p []byte) (n int, err error) {
	n = len(p)

	entry, parseErr := parseEntry(p)
	if parseErr != nil {
		return n, nil
	}

	s.buffer.Push(entry)

	s.mu.RLock()
	hub := s.hub
	s.mu.RUnlock()

	if hub != nil {
		// Broadcast failures never fail the log write.
		_ = hub.Broadcast("log:entry", entry)
	}

	return n, nil
}

// Recent returns up to limit buffered entries, oldest first. A limit of
// zero or less returns everything in the buffer.
func (s *Stream) Recent(limit int) []Entry {
	if limit <= 0 {
		return s.buffer.GetAll()
	}
	return s.buffer.Last(limit)
}

// parseEntry parses a zerolog JSON line into an Entry.
func parseEntry(data []byte) (Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		Fields: make(map[string]any),
	}

	if ts, ok := raw["time"].(string); ok {
		entry.Timestamp = ts
		delete(raw, "time")
	}
	if level, ok := raw["level"].(string); ok {
		entry.Level = level
		delete(raw, "level")
	}
	if component, ok := raw["component"].(string); ok {
		entry.Component = component
		delete(raw, "component")
	}
	if msg, ok := raw["message"].(string); ok {
		entry.Message = msg
		delete(raw, "message")
	}

	for k, v := range raw {
		entry.Fields[k] = v
	}

	return entry, nil
}
