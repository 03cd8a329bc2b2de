package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func waitForRuns(t *testing.T, runs *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runs.Load() >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task ran %d times, want at least %d", runs.Load(), want)
}

func TestRegisterTaskRejectsDuplicateID(t *testing.T) {
	s := newTestScheduler(t)

	cfg := TaskConfig{
		ID:   "demo",
		Name: "Demo",
		Cron: "0 0 * * *",
		Func: func(ctx context.Context) error { return nil },
	}
	if err := s.RegisterTask(cfg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := s.RegisterTask(cfg); err == nil {
		t.Error("expected an error registering the same id twice")
	}
}

func TestRegisterTaskRejectsBadCron(t *testing.T) {
	s := newTestScheduler(t)

	err := s.RegisterTask(TaskConfig{
		ID:   "broken",
		Name: "Broken",
		Cron: "not a cron line",
		Func: func(ctx context.Context) error { return nil },
	})
	if err == nil {
		t.Error("expected an error for an invalid cron expression")
	}
}

func TestRunNowExecutesTask(t *testing.T) {
	s := newTestScheduler(t)

	var runs atomic.Int32
	err := s.RegisterTask(TaskConfig{
		ID:   "count",
		Name: "Count",
		Cron: "0 0 * * *",
		Func: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := s.RunNow("count"); err != nil {
		t.Fatalf("run now: %v", err)
	}
	waitForRuns(t, &runs, 1)
}

func TestRunNowUnknownTask(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.RunNow("ghost"); err == nil {
		t.Error("expected an error for an unknown task")
	}
}

func TestStartRunsOnStartTasks(t *testing.T) {
	s := newTestScheduler(t)

	var eager, lazy atomic.Int32
	mustRegister(t, s, TaskConfig{
		ID:         "eager",
		Name:       "Eager",
		Cron:       "0 0 * * *",
		RunOnStart: true,
		Func: func(ctx context.Context) error {
			eager.Add(1)
			return nil
		},
	})
	mustRegister(t, s, TaskConfig{
		ID:   "lazy",
		Name: "Lazy",
		Cron: "0 0 * * *",
		Func: func(ctx context.Context) error {
			lazy.Add(1)
			return nil
		},
	})

	s.Start()
	waitForRuns(t, &eager, 1)
	if got := lazy.Load(); got != 0 {
		t.Errorf("task without RunOnStart ran %d times at startup", got)
	}
}

func TestListTasksReportsStateSorted(t *testing.T) {
	s := newTestScheduler(t)

	var runs atomic.Int32
	mustRegister(t, s, TaskConfig{
		ID:          "b-task",
		Name:        "B",
		Description: "second",
		Cron:        "0 2 * * *",
		Func: func(ctx context.Context) error {
			runs.Add(1)
			return errors.New("boom")
		},
	})
	mustRegister(t, s, TaskConfig{
		ID:   "a-task",
		Name: "A",
		Cron: "0 1 * * *",
		Func: func(ctx context.Context) error { return nil },
	})

	tasks := s.ListTasks()
	if len(tasks) != 2 {
		t.Fatalf("listed %d tasks, want 2", len(tasks))
	}
	if tasks[0].ID != "a-task" || tasks[1].ID != "b-task" {
		t.Errorf("tasks not sorted by id: %s, %s", tasks[0].ID, tasks[1].ID)
	}
	if tasks[0].LastRun != nil {
		t.Error("LastRun set before the task ever ran")
	}

	// A failing run still records LastRun.
	if err := s.RunNow("b-task"); err != nil {
		t.Fatalf("run now: %v", err)
	}
	waitForRuns(t, &runs, 1)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		tasks = s.ListTasks()
		if tasks[1].LastRun != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if tasks[1].LastRun == nil {
		t.Error("LastRun not recorded after a failing run")
	}
}

func mustRegister(t *testing.T, s *Scheduler, cfg TaskConfig) {
	t.Helper()
	if err := s.RegisterTask(cfg); err != nil {
		t.Fatalf("register %s: %v", cfg.ID, err)
	}
}
