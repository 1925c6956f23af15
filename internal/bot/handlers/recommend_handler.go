package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewRecommendHandler returns a handler for the /recommend command.
func NewRecommendHandler(deps HandlerDeps) bot.HandlerFunc {
	return recommendHandler{deps}.Handle
}

type recommendHandler struct {
	deps HandlerDeps
}

func (h recommendHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "recommend")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Recommend handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /recommend command", "chat_id", chatID, "user_id", userID)

	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	results := h.deps.Assistant.Recommend(ctx, userID, 0)
	if len(results) == 0 {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: h.deps.Config.Messages.NoMatches}); err != nil {
			log.ErrorContext(ctx, "Failed to send empty recommendation reply", "error", err, "chat_id", chatID)
		}
		return
	}

	log.InfoContext(ctx, "Sending recommendations", "user_id", userID, "count", len(results))

	for _, r := range results {
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        FormatProperty(r.Property),
			ReplyMarkup: PropertyKeyboard(r.Property.ID),
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to send recommendation card", "error", err, "chat_id", chatID, "property_id", r.Property.ID)
		}
	}
}
