package tasks

import (
	"log/slog"

	"github.com/mbianda/rentscout/internal/config"
	"github.com/mbianda/rentscout/internal/database"
	"github.com/mbianda/rentscout/internal/prefs"
)

// TaskDeps provides dependencies for scheduled maintenance tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Config  *config.Config
	Store   database.Store
	Learner *prefs.Learner
}
