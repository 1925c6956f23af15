package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mbianda/rentscout/internal/flow"
	"github.com/mbianda/rentscout/internal/model"
)

const (
	sendMessageTimeout = 10 * time.Second
	maxResultCards     = 5
)

// NewMessageHandler creates the default handler for free-text
// messages. It routes the message through the conversation engine and
// renders whatever the resulting step asks for.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

type messageHandler struct {
	deps HandlerDeps
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "message")

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		log.DebugContext(ctx, "Ignoring update with nil message, empty text, or nil sender", "update_id", update.ID)
		return
	}
	if msg.Chat.Type != models.ChatTypePrivate {
		// Property search is a one-on-one conversation.
		log.DebugContext(ctx, "Ignoring non-private chat message", "chat_id", msg.Chat.ID, "chat_type", msg.Chat.Type)
		return
	}

	userID := msg.From.ID
	chatID := msg.Chat.ID

	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	decision := deps.Assistant.Route(ctx, userID, msg.Text, "")
	log.DebugContext(ctx, "Routed message",
		"user_id", userID, "flow", decision.Flow, "step", decision.Step, "action", decision.Action)

	h.render(ctx, b, chatID, userID, msg.Text, decision)
}

// render turns a flow decision into outgoing Telegram messages.
func (h messageHandler) render(ctx context.Context, b *bot.Bot, chatID, userID int64, text string, decision flow.Decision) {
	switch decision.Action {
	case flow.ActionSearch:
		h.renderSearch(ctx, b, chatID, userID, text)
	case flow.ActionShowPreferences:
		profile := h.deps.Assistant.Profile(ctx, userID)
		h.send(ctx, b, chatID, FormatProfile(profile))
	case flow.ActionResetDone:
		if err := h.deps.Assistant.ResetPreferences(ctx, userID); err != nil {
			h.deps.Logger.ErrorContext(ctx, "Failed to reset preferences", "user_id", userID, "error", err)
			h.send(ctx, b, chatID, h.deps.Config.Messages.GeneralError)
			return
		}
		h.send(ctx, b, chatID, decision.Prompt)
	default:
		prompt := decision.Prompt
		if prompt == "" {
			prompt = h.deps.Config.Messages.AskCriteria
		}
		h.send(ctx, b, chatID, prompt)
	}
}

// renderSearch performs the catalog search and sends the ranked
// results, each listing with its action keyboard.
func (h messageHandler) renderSearch(ctx context.Context, b *bot.Bot, chatID, userID int64, text string) {
	log := h.deps.Logger.With("handler", "message")

	results := h.deps.Assistant.Search(ctx, userID, text)
	if len(results) == 0 {
		h.send(ctx, b, chatID, h.deps.Config.Messages.NoMatches)
		return
	}

	log.InfoContext(ctx, "Sending search results", "user_id", userID, "count", len(results))

	if len(results) > maxResultCards {
		h.send(ctx, b, chatID, FormatResults(results))
		results = results[:maxResultCards]
	}

	for _, r := range results {
		h.sendCard(ctx, b, chatID, r.Property)
	}
}

func (h messageHandler) sendCard(ctx context.Context, b *bot.Bot, chatID int64, prop model.PropertyCandidate) {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	_, err := b.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        FormatProperty(prop),
		ReplyMarkup: PropertyKeyboard(prop.ID),
	})
	if err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send property card", "error", err, "chat_id", chatID, "property_id", prop.ID)
	}
}

func (h messageHandler) send(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if text == "" {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	_, err := b.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}
