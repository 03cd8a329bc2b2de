// Package tasks registers the concrete background jobs with the
// scheduler.
package tasks

import (
	"context"

	"github.com/paneldeck/paneldeck/internal/config"
	"github.com/paneldeck/paneldeck/internal/history"
	"github.com/paneldeck/paneldeck/internal/scheduler"
)

const HistoryPruneTaskID = "history-prune"

// RegisterHistoryPruneTask schedules the nightly removal of transfer
// history past the configured retention. A retention of zero or less
// keeps history forever, so nothing is registered.
func RegisterHistoryPruneTask(sched *scheduler.Scheduler, historyService *history.Service, cfg config.HistoryConfig) error {
	if cfg.RetentionDays <= 0 {
		return nil
	}

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          HistoryPruneTaskID,
		Name:        "History Prune",
		Description: "Deletes transfer history older than the configured retention period",
		Cron:        "0 2 * * *",
		RunOnStart:  true, // catch up after the app was closed overnight
		Func: func(ctx context.Context) error {
			_, err := historyService.PruneOlderThan(ctx, cfg.RetentionDays)
			return err
		},
	})
}
