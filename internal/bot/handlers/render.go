package handlers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/mbianda/rentscout/internal/assistant"
	"github.com/mbianda/rentscout/internal/model"
)

// FormatProperty renders one listing as a message card.
func FormatProperty(prop model.PropertyCandidate) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s\n", prop.Title)
	fmt.Fprintf(&sb, "📍 %s · %s · %d bedroom", prop.Location, prop.PropertyType, prop.Bedrooms)
	if prop.Bedrooms != 1 {
		sb.WriteString("s")
	}
	fmt.Fprintf(&sb, "\n💰 %.0f FCFA/month", prop.Price)

	if len(prop.Amenities) > 0 {
		fmt.Fprintf(&sb, "\n✨ %s", strings.Join(prop.Amenities, ", "))
	}
	if prop.Verified {
		sb.WriteString("\n✅ Verified listing")
	}
	if prop.Rating != nil {
		fmt.Fprintf(&sb, "\n⭐ %.1f", *prop.Rating)
	}

	return sb.String()
}

// FormatResults renders a ranked result list as a numbered digest.
func FormatResults(results []model.ScoredProperty) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%d. %s — %.0f FCFA, %s", i+1, r.Property.Title, r.Property.Price, r.Property.Location)
	}
	return sb.String()
}

// PropertyKeyboard builds the inline actions for one listing.
func PropertyKeyboard(propertyID string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{{
			{Text: "👁 View", CallbackData: assistant.FormatButton(model.ActionView, propertyID)},
			{Text: "💾 Save", CallbackData: assistant.FormatButton(model.ActionSave, propertyID)},
			{Text: "📅 Book tour", CallbackData: assistant.FormatButton(model.ActionBook, propertyID)},
			{Text: "⏭ Skip", CallbackData: assistant.FormatButton(model.ActionSkip, propertyID)},
		}},
	}
}

// FormatProfile renders the learned preference profile for /preferences.
func FormatProfile(profile *model.PreferenceProfile) string {
	if profile == nil || profile.IsEmpty() {
		return "I have not learned your preferences yet. Search and save a few listings first."
	}

	var sb strings.Builder
	sb.WriteString("Here is what I have learned about your taste:\n")

	if top := topScores(profile.LocationScores, 3); len(top) > 0 {
		fmt.Fprintf(&sb, "\n📍 Areas: %s", strings.Join(top, ", "))
	}
	if top := topScores(profile.PropertyTypeScores, 3); len(top) > 0 {
		fmt.Fprintf(&sb, "\n🏠 Types: %s", strings.Join(top, ", "))
	}
	if top := topScores(profile.AmenityScores, 5); len(top) > 0 {
		fmt.Fprintf(&sb, "\n✨ Amenities: %s", strings.Join(top, ", "))
	}
	if profile.AveragePreferredPrice > 0 {
		fmt.Fprintf(&sb, "\n💰 Around %.0f FCFA/month", profile.AveragePreferredPrice)
	}

	sb.WriteString("\n\nSend /reset to forget all of this.")
	return sb.String()
}

// topScores returns up to n keys ordered by descending score, ties
// alphabetical.
func topScores(scores map[string]float64, n int) []string {
	keys := make([]string, 0, len(scores))
	for k, v := range scores {
		if v > 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if scores[keys[i]] != scores[keys[j]] {
			return scores[keys[i]] > scores[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
