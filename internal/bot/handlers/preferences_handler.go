package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewPreferencesHandler returns a handler for the /preferences command.
func NewPreferencesHandler(deps HandlerDeps) bot.HandlerFunc {
	return preferencesHandler{deps}.Handle
}

type preferencesHandler struct {
	deps HandlerDeps
}

func (h preferencesHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "preferences")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Preferences handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /preferences command", "chat_id", chatID, "user_id", userID)

	// Route first so the preferences flow becomes the active one and a
	// following "reset" lands on its confirmation step.
	h.deps.Assistant.Route(ctx, userID, "/preferences", "")

	profile := h.deps.Assistant.Profile(ctx, userID)
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: FormatProfile(profile)})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send preferences summary", "error", err, "chat_id", chatID)
	}
}
