package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewMaintenanceHandler returns the admin-only /maintenance command,
// which runs database maintenance on demand instead of waiting for the
// scheduled run.
func NewMaintenanceHandler(deps HandlerDeps) bot.HandlerFunc {
	return maintenanceHandler{deps}.Handle
}

type maintenanceHandler struct {
	deps HandlerDeps
}

func (h maintenanceHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "maintenance")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Maintenance handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /maintenance command", "chat_id", chatID, "user_id", update.Message.From.ID)

	start := time.Now()
	reply := "Maintenance completed."
	if err := h.deps.Store.RunSQLMaintenance(ctx); err != nil {
		log.ErrorContext(ctx, "On-demand SQL maintenance failed", "error", err)
		reply = h.deps.Config.Messages.GeneralError
	} else {
		log.InfoContext(ctx, "On-demand SQL maintenance completed", "duration", time.Since(start))
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: reply}); err != nil {
		log.ErrorContext(ctx, "Failed to send maintenance reply", "error", err, "chat_id", chatID)
	}
}
