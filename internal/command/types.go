package command

import (
	"errors"
	"fmt"
)

// Category groups commands in the palette.
type Category string

const (
	CategoryFile          Category = "File"
	CategoryNavigation    Category = "Navigation"
	CategorySelection     Category = "Selection"
	CategoryLayout        Category = "Layout"
	CategoryView          Category = "View"
	CategoryTransfer      Category = "Transfer"
	CategoryNotifications Category = "Notifications"
)

// ErrCancelled is returned by command executors when the user dismissed
// a dialog. The dispatcher treats it as a quiet no-op.
var ErrCancelled = errors.New("cancelled by user")

// ValidationError is a precondition failure detected before any side
// effect. The dispatcher surfaces it as a warning notification.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Validationf builds a ValidationError.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// UnknownCommandError is returned when a dispatched id matches nothing.
// Suggestion carries the closest known id, when one is close enough.
type UnknownCommandError struct {
	ID         string
	Suggestion string
}

func (e *UnknownCommandError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown command %q (did you mean %q?)", e.ID, e.Suggestion)
	}
	return fmt.Sprintf("unknown command %q", e.ID)
}

// Descriptor is the immutable metadata of one command, built once at
// startup.
type Descriptor struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Icon        string   `json:"icon,omitempty"`
	Shortcut    string   `json:"shortcut,omitempty"`
}

// Command couples a descriptor with its behavior. CanExecute returns a
// ValidationError describing why the command is unavailable, or nil;
// a nil CanExecute means always available.
type Command struct {
	Descriptor
	CanExecute func(ctx *Context) error
	Execute    func(ctx *Context) error
}

// Options carries free-form dispatch parameters.
type Options map[string]interface{}

// String returns a string option, "" when absent.
func (o Options) String(key string) string {
	if v, ok := o[key].(string); ok {
		return v
	}
	return ""
}

// Int returns an integer option. JSON numbers decode as float64, so
// both forms are accepted.
func (o Options) Int(key string) (int, bool) {
	switch v := o[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Bool returns a boolean option, false when absent.
func (o Options) Bool(key string) bool {
	v, _ := o[key].(bool)
	return v
}
