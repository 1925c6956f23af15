package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mbianda/rentscout/internal/assistant"
	"github.com/mbianda/rentscout/internal/flow"
	mdl "github.com/mbianda/rentscout/internal/model"
)

const catalogLookupTimeout = 5 * time.Second

// NewCallbackHandler creates the handler for inline keyboard taps. A
// tap is both a learning signal for the preference profile and a flow
// event for the conversation engine.
func NewCallbackHandler(deps HandlerDeps) bot.HandlerFunc {
	return callbackHandler{deps}.Handle
}

type callbackHandler struct {
	deps HandlerDeps
}

func (h callbackHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	deps := h.deps
	log := deps.Logger.With("handler", "callback")

	cb := update.CallbackQuery
	if cb == nil {
		return
	}

	// Acknowledge first so the client stops its spinner even when the
	// payload turns out to be stale or malformed.
	_, _ = b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})

	action, propertyID, ok := assistant.ParseButton(cb.Data)
	if !ok {
		log.WarnContext(ctx, "Ignoring unrecognized callback payload", "data", cb.Data)
		return
	}

	userID := cb.From.ID
	chatID := h.chatID(cb)
	if chatID == 0 {
		log.WarnContext(ctx, "Callback without an accessible message, cannot reply", "user_id", userID)
		return
	}

	log.InfoContext(ctx, "Handling property action", "user_id", userID, "action", action, "property_id", propertyID)

	prop := h.lookupProperty(ctx, propertyID)

	deps.Assistant.Learn(ctx, userID, mdl.Interaction{
		PropertyID: propertyID,
		Action:     action,
	}, prop)

	decision := deps.Assistant.Route(ctx, userID, string(action), cb.Data)
	h.reply(ctx, b, chatID, action, prop, decision)
}

func (h callbackHandler) reply(ctx context.Context, b *bot.Bot, chatID int64, action mdl.Action, prop *mdl.PropertyCandidate, decision flow.Decision) {
	switch action {
	case mdl.ActionView:
		if prop != nil {
			h.send(ctx, b, chatID, FormatProperty(*prop))
			return
		}
		h.send(ctx, b, chatID, "That listing is no longer available.")
	case mdl.ActionSave:
		h.send(ctx, b, chatID, "Saved. I will weigh places like this higher from now on.")
	case mdl.ActionBook:
		prompt := decision.Prompt
		if prompt == "" {
			prompt = h.deps.Config.Messages.AskBookingTime
		}
		h.send(ctx, b, chatID, prompt)
	case mdl.ActionSkip:
		h.send(ctx, b, chatID, "Noted, showing fewer places like that.")
	default:
		if decision.Prompt != "" {
			h.send(ctx, b, chatID, decision.Prompt)
		}
	}
}

func (h callbackHandler) lookupProperty(ctx context.Context, propertyID string) *mdl.PropertyCandidate {
	lookupCtx, cancel := context.WithTimeout(ctx, catalogLookupTimeout)
	defer cancel()

	props, err := h.deps.Store.PropertiesByIDs(lookupCtx, []string{propertyID})
	if err != nil {
		h.deps.Logger.WarnContext(ctx, "Failed to look up property for callback", "property_id", propertyID, "error", err)
		return nil
	}
	if len(props) == 0 {
		return nil
	}
	return &props[0]
}

func (h callbackHandler) chatID(cb *models.CallbackQuery) int64 {
	if cb.Message.Message != nil {
		return cb.Message.Message.Chat.ID
	}
	if cb.Message.InaccessibleMessage != nil {
		return cb.Message.InaccessibleMessage.Chat.ID
	}
	return 0
}

func (h callbackHandler) send(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	_, err := b.SendMessage(sendCtx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send callback reply", "error", err, "chat_id", chatID)
	}
}
