package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mbianda/rentscout/internal/database"
)

const profileDecayBatchSize = 200

// newProfileDecayTask creates the task that ages dormant preference
// profiles. A profile untouched for over a week has its scores decayed
// so old tastes lose weight even when the user never interacts again.
func newProfileDecayTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "profile_decay")

	return func(ctx context.Context) error {
		now := time.Now().UTC()
		cutoff := now.Add(-7 * 24 * time.Hour)

		profiles, err := deps.Store.StaleProfiles(ctx, cutoff, profileDecayBatchSize)
		if err != nil {
			log.ErrorContext(ctx, "Failed to load stale profiles", "error", err)
			return fmt.Errorf("profile decay sweep failed: %w", err)
		}
		if len(profiles) == 0 {
			log.DebugContext(ctx, "No stale profiles to decay")
			return nil
		}

		decayed, skipped := 0, 0
		for _, profile := range profiles {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			updated := deps.Learner.Decay(profile, now)
			if err := deps.Store.SavePreferenceProfile(ctx, updated); err != nil {
				if errors.Is(err, database.ErrVersionConflict) {
					// The user came back mid-sweep; their fresh
					// interaction already carries the decay.
					skipped++
					continue
				}
				log.ErrorContext(ctx, "Failed to save decayed profile", "user_id", profile.UserID, "error", err)
				continue
			}
			decayed++
		}

		log.InfoContext(ctx, "Profile decay sweep completed", "decayed", decayed, "skipped", skipped)
		return nil
	}
}
