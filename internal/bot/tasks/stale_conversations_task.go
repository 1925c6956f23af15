package tasks

import (
	"context"
	"fmt"
	"time"
)

// newStaleConversationsTask creates the task that ends conversations
// idle for longer than the flow staleness window. A stale conversation
// is not deleted; its next message simply starts from intent instead
// of resuming a step the user has forgotten about.
func newStaleConversationsTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "stale_conversations")
	staleAfter := deps.Config.Assistant.FlowStaleAfter

	return func(ctx context.Context) error {
		cutoff := time.Now().UTC().Add(-staleAfter)
		log.InfoContext(ctx, "Ending stale conversations", "cutoff", cutoff)

		ended, err := deps.Store.MarkStaleConversations(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Failed to end stale conversations", "error", err)
			return fmt.Errorf("stale conversation sweep failed: %w", err)
		}

		log.InfoContext(ctx, "Stale conversation sweep completed", "ended", ended)
		return nil
	}
}
