package tasks

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/paneldeck/paneldeck/internal/config"
	"github.com/paneldeck/paneldeck/internal/history"
	"github.com/paneldeck/paneldeck/internal/scheduler"
	"github.com/paneldeck/paneldeck/internal/testutil"
)

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	s, err := scheduler.New(zerolog.Nop())
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func taskIDs(s *scheduler.Scheduler) []string {
	var ids []string
	for _, task := range s.ListTasks() {
		ids = append(ids, task.ID)
	}
	return ids
}

func TestHistoryPruneRegistersOnlyWithRetention(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	svc := history.NewService(tdb.Conn, tdb.Logger)

	off := newScheduler(t)
	if err := RegisterHistoryPruneTask(off, svc, config.HistoryConfig{RetentionDays: 0}); err != nil {
		t.Fatalf("register with retention off: %v", err)
	}
	if got := len(taskIDs(off)); got != 0 {
		t.Errorf("retention 0 registered %d tasks, want none", got)
	}

	on := newScheduler(t)
	if err := RegisterHistoryPruneTask(on, svc, config.HistoryConfig{RetentionDays: 30}); err != nil {
		t.Fatalf("register with retention on: %v", err)
	}
	ids := taskIDs(on)
	if len(ids) != 1 || ids[0] != HistoryPruneTaskID {
		t.Errorf("registered tasks = %v, want [%s]", ids, HistoryPruneTaskID)
	}
}

func TestWatchReconcileSkipsNilService(t *testing.T) {
	s := newScheduler(t)
	if err := RegisterWatchReconcileTask(s, nil); err != nil {
		t.Fatalf("register with nil watcher: %v", err)
	}
	if got := len(taskIDs(s)); got != 0 {
		t.Errorf("nil watcher registered %d tasks, want none", got)
	}
}
