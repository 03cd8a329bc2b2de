package tasks

import (
	"context"

	"github.com/paneldeck/paneldeck/internal/scheduler"
	"github.com/paneldeck/paneldeck/internal/watcher"
)

const WatchReconcileTaskID = "watch-reconcile"

// RegisterWatchReconcileTask schedules the periodic watch-set sync.
// Navigation retargets watches on its own; this job is the safety net
// for watches dropped by the kernel, e.g. when a watched directory was
// deleted and recreated. A nil watcher service means watching is
// disabled.
func RegisterWatchReconcileTask(sched *scheduler.Scheduler, watcherService *watcher.Service) error {
	if watcherService == nil {
		return nil
	}

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          WatchReconcileTaskID,
		Name:        "Watch Reconcile",
		Description: "Re-syncs filesystem watches with the directories the panels show",
		Cron:        "*/5 * * * *",
		RunOnStart:  false,
		Func: func(ctx context.Context) error {
			watcherService.Reconcile()
			return nil
		},
	})
}
