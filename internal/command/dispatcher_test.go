package command

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/paneldeck/paneldeck/internal/notify"
)

func TestDispatchUnknownCommandSuggestsClosest(t *testing.T) {
	f := newFixture(t)

	err := f.dispatch(t, "copy-fils", nil)

	var uerr *UnknownCommandError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want UnknownCommandError", err)
	}
	if uerr.Suggestion != "copy-files" {
		t.Errorf("suggestion = %q, want copy-files", uerr.Suggestion)
	}
	n := f.lastNotification(t)
	if n.Severity != notify.SeverityError {
		t.Errorf("severity = %s, want error", n.Severity)
	}
	if !strings.Contains(n.Message, `"copy-files"`) {
		t.Errorf("message %q does not carry the suggestion", n.Message)
	}
}

func TestDispatchUnknownCommandWithoutCloseMatch(t *testing.T) {
	f := newFixture(t)

	err := f.dispatch(t, "frobnicate-everything", nil)

	var uerr *UnknownCommandError
	if !errors.As(err, &uerr) {
		t.Fatalf("err = %v, want UnknownCommandError", err)
	}
	if uerr.Suggestion != "" {
		t.Errorf("suggestion = %q, want none", uerr.Suggestion)
	}
	if strings.Contains(f.lastNotification(t).Message, "Did you mean") {
		t.Error("notification offers a suggestion that does not exist")
	}
}

func TestDispatchPreconditionFailureHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	before := len(f.backend.Calls())

	err := f.dispatch(t, "paste-files", nil)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	n := f.lastNotification(t)
	if n.Severity != notify.SeverityWarning {
		t.Errorf("severity = %s, want warning", n.Severity)
	}
	if n.Message != "clipboard is empty" {
		t.Errorf("message = %q", n.Message)
	}
	if len(f.transfers.pastes) != 0 {
		t.Errorf("paste reached the coordinator %d times", len(f.transfers.pastes))
	}
	if got := len(f.backend.Calls()); got != before {
		t.Errorf("backend saw %d extra calls", got-before)
	}
}

func TestDispatchRuntimeErrorNotifiesAndSurvives(t *testing.T) {
	f := newFixture(t)
	f.backend.FailOn("create", "/home/test", errors.New("disk full"))

	err := f.dispatch(t, "create-file", Options{"name": "new.txt"})
	if err == nil {
		t.Fatal("expected an error")
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Fatalf("runtime failure classified as validation: %v", err)
	}
	n := f.lastNotification(t)
	if n.Severity != notify.SeverityError {
		t.Errorf("severity = %s, want error", n.Severity)
	}
	if !strings.Contains(n.Message, "New File failed") {
		t.Errorf("message = %q", n.Message)
	}

	// The dispatcher keeps working after a failed command.
	if err := f.dispatch(t, "refresh-panel", nil); err != nil {
		t.Errorf("followup dispatch failed: %v", err)
	}
}

func TestDispatchDialogDismissalIsSilent(t *testing.T) {
	f := newFixture(t)
	f.dialogs.promptOK = false
	before := f.center.List()

	if err := f.dispatch(t, "create-file", nil); err != nil {
		t.Fatalf("dismissed dialog surfaced error: %v", err)
	}
	if len(f.dialogs.prompts) != 1 {
		t.Fatalf("prompt shown %d times, want 1", len(f.dialogs.prompts))
	}
	if got := len(f.backend.CallsFor("create")); got != 0 {
		t.Errorf("create called %d times after dismissal", got)
	}
	if got := f.center.List(); len(got) != len(before) {
		t.Errorf("dismissal pushed %d notification(s)", len(got)-len(before))
	}
}

func TestDispatchTargetsActivePanelByDefault(t *testing.T) {
	f := newFixture(t)
	if err := f.store.SetActivePanel("panel-2"); err != nil {
		t.Fatalf("activate panel-2: %v", err)
	}
	f.selectNames(t, "panel-2", "alpha.txt")

	if err := f.dispatch(t, "copy-files", nil); err != nil {
		t.Fatalf("copy-files: %v", err)
	}
	cb := f.store.Clipboard()
	if cb.SourcePanelID != "panel-2" {
		t.Errorf("clipboard source = %s, want panel-2", cb.SourcePanelID)
	}
}

func TestDispatchUnknownPanelWarns(t *testing.T) {
	f := newFixture(t)

	err := f.dispatchOn(t, "panel-99", "refresh-panel", nil)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if f.lastNotification(t).Severity != notify.SeverityWarning {
		t.Error("missing warning notification")
	}
}

func TestDispatchRecoversFromPanickingCommand(t *testing.T) {
	f := newFixture(t)
	table := append(Table(), &Command{
		Descriptor: Descriptor{ID: "explode", Label: "Explode", Category: CategoryFile},
		Execute: func(*Context) error {
			panic("boom")
		},
	})
	d := NewDispatcher(NewRegistry(table), f.dispatcher.deps, zerolog.Nop())

	err := d.Dispatch(context.Background(), "explode", "panel-1", nil)
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("err = %v, want panic wrap", err)
	}
	if f.lastNotification(t).Severity != notify.SeverityError {
		t.Error("panic did not produce an error notification")
	}
	if err := d.Dispatch(context.Background(), "refresh-panel", "panel-1", nil); err != nil {
		t.Errorf("dispatcher dead after panic: %v", err)
	}
}
