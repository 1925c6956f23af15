// Package tasks contains the scheduled maintenance tasks and their
// registration logic.
package tasks

import (
	"context"
)

// ScheduledTaskFunc is the signature every scheduled task implements.
// The context provided by the scheduler must be respected for
// cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks initializes and returns the map of all scheduled
// tasks. The map keys match the task names in the scheduler section of
// the configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := make(map[string]ScheduledTaskFunc)

	tasks["stale_conversations"] = newStaleConversationsTask(deps)
	tasks["profile_decay"] = newProfileDecayTask(deps)
	tasks["sql_maintenance"] = newSQLMaintenanceTask(deps)

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
