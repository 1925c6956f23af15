package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewResetHandler returns a handler for the /reset command, which
// discards the user's learned preference profile.
func NewResetHandler(deps HandlerDeps) bot.HandlerFunc {
	return resetHandler{deps}.Handle
}

type resetHandler struct {
	deps HandlerDeps
}

func (h resetHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "reset")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Reset handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /reset command", "chat_id", chatID, "user_id", userID)

	reply := "Done. I have forgotten everything I learned about your taste."
	if err := h.deps.Assistant.ResetPreferences(ctx, userID); err != nil {
		log.ErrorContext(ctx, "Failed to reset preferences", "error", err, "user_id", userID)
		reply = h.deps.Config.Messages.GeneralError
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: reply}); err != nil {
		log.ErrorContext(ctx, "Failed to send reset confirmation", "error", err, "chat_id", chatID)
	}
}
