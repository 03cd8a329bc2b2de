package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Dispatcher resolves command ids, validates them against the current
// panel state and executes them. Every failure is surfaced as a
// notification; a failing command never takes the dispatcher down.
type Dispatcher struct {
	registry *Registry
	deps     *Deps
	logger   zerolog.Logger
}

func NewDispatcher(registry *Registry, deps *Deps, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		deps:     deps,
		logger:   logger.With().Str("component", "commands").Logger(),
	}
}

// Registry exposes the command table for palette queries.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Context builds an execution context against panelID, or the active
// panel when panelID is empty.
func (d *Dispatcher) Context(ctx context.Context, panelID string) (*Context, error) {
	return newContext(ctx, panelID, nil, d.deps, d.Dispatch)
}

// Dispatch runs the command registered under id. Unknown ids and
// precondition failures produce a notification and no side effects.
// A user dismissing a dialog is a quiet no-op. Any other execution
// error produces an error notification and leaves the dispatcher
// ready for the next call.
func (d *Dispatcher) Dispatch(ctx context.Context, id, panelID string, options Options) error {
	cmd, ok := d.registry.Get(id)
	if !ok {
		uerr := &UnknownCommandError{ID: id, Suggestion: d.registry.Suggest(id)}
		msg := fmt.Sprintf("Unknown command %q", id)
		if uerr.Suggestion != "" {
			msg = fmt.Sprintf("%s. Did you mean %q?", msg, uerr.Suggestion)
		}
		d.deps.Notifier.Error(msg, "")
		d.logger.Warn().Str("command", id).Str("suggestion", uerr.Suggestion).Msg("unknown command dispatched")
		return uerr
	}

	ectx, err := newContext(ctx, panelID, options, d.deps, d.Dispatch)
	if err != nil {
		reason := "no panel available"
		if panelID != "" {
			reason = fmt.Sprintf("unknown panel %q", panelID)
		}
		d.deps.Notifier.Warning(reason, "")
		return &ValidationError{Reason: reason}
	}

	if cmd.CanExecute != nil {
		if cerr := cmd.CanExecute(ectx); cerr != nil {
			return d.reject(cmd, ectx, cerr)
		}
	}

	start := time.Now()
	execErr := d.execute(cmd, ectx)
	switch {
	case execErr == nil:
		d.logger.Debug().
			Str("command", cmd.ID).
			Str("panel", ectx.PanelID).
			Dur("took", time.Since(start)).
			Msg("command executed")
		return nil
	case errors.Is(execErr, ErrCancelled):
		d.logger.Debug().Str("command", cmd.ID).Msg("command dismissed by user")
		return nil
	case errors.Is(execErr, context.Canceled), errors.Is(execErr, context.DeadlineExceeded):
		d.logger.Debug().Str("command", cmd.ID).Msg("command abandoned")
		return execErr
	}

	var verr *ValidationError
	if errors.As(execErr, &verr) {
		return d.reject(cmd, ectx, execErr)
	}

	d.deps.Notifier.Error(fmt.Sprintf("%s failed: %v", cmd.Label, execErr), ectx.PanelID)
	d.logger.Error().Err(execErr).Str("command", cmd.ID).Str("panel", ectx.PanelID).Msg("command failed")
	return execErr
}

func (d *Dispatcher) reject(cmd *Command, ectx *Context, err error) error {
	reason := err.Error()
	var verr *ValidationError
	if errors.As(err, &verr) {
		reason = verr.Reason
	}
	d.deps.Notifier.Warning(reason, ectx.PanelID)
	d.logger.Debug().Str("command", cmd.ID).Str("reason", reason).Msg("command rejected")
	return err
}

// execute isolates command panics so one faulty handler cannot take
// the process down with it.
func (d *Dispatcher) execute(cmd *Command, ectx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %s panicked: %v", cmd.ID, r)
		}
	}()
	return cmd.Execute(ectx)
}
