package handlers

import (
	"log/slog"

	"github.com/mbianda/rentscout/internal/assistant"
	"github.com/mbianda/rentscout/internal/config"
	"github.com/mbianda/rentscout/internal/database"
)

// HandlerDeps provides dependencies for Telegram command and message
// handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	Assistant *assistant.Assistant
}
