package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	mdl "github.com/mbianda/rentscout/internal/model"
)

const bookingsShown = 10

// NewBookingsHandler returns a handler for the /bookings command,
// listing the user's booked tours newest first.
func NewBookingsHandler(deps HandlerDeps) bot.HandlerFunc {
	return bookingsHandler{deps}.Handle
}

type bookingsHandler struct {
	deps HandlerDeps
}

func (h bookingsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "bookings")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Bookings handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /bookings command", "chat_id", chatID, "user_id", userID)

	text, err := h.listBookings(ctx, userID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to list bookings", "error", err, "user_id", userID)
		text = h.deps.Config.Messages.GeneralError
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send bookings list", "error", err, "chat_id", chatID)
	}
}

func (h bookingsHandler) listBookings(ctx context.Context, userID int64) (string, error) {
	bookings, err := h.deps.Store.RecentInteractions(ctx, userID, []mdl.Action{mdl.ActionBook}, bookingsShown)
	if err != nil {
		return "", fmt.Errorf("failed to load bookings: %w", err)
	}
	if len(bookings) == 0 {
		return "You have no booked tours yet. Tap \"Book tour\" on any listing to schedule one.", nil
	}

	ids := make([]string, 0, len(bookings))
	for _, in := range bookings {
		if in.PropertyID != "" {
			ids = append(ids, in.PropertyID)
		}
	}
	props, err := h.deps.Store.PropertiesByIDs(ctx, ids)
	if err != nil {
		return "", fmt.Errorf("failed to load booked properties: %w", err)
	}
	byID := make(map[string]mdl.PropertyCandidate, len(props))
	for _, p := range props {
		byID[p.ID] = p
	}

	var sb strings.Builder
	sb.WriteString("Your booked tours:\n")
	for i, in := range bookings {
		title := in.PropertyID
		if p, ok := byID[in.PropertyID]; ok {
			title = fmt.Sprintf("%s (%s)", p.Title, p.Location)
		}
		fmt.Fprintf(&sb, "\n%d. %s — booked %s", i+1, title, in.Timestamp.Format("Mon 2 Jan 15:04"))
	}
	return sb.String(), nil
}
