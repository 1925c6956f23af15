// Package intent maps raw message text to one of a small fixed set of
// conversational intents using ordered keyword rules.
package intent

import (
	"strings"

	"github.com/mbianda/rentscout/internal/model"
	"github.com/mbianda/rentscout/internal/text"
)

// rule matches when any of its keywords occurs in the text. Rules are
// evaluated in order; the first match wins, so ties are resolved by
// position, never by score.
type rule struct {
	keywords []string
	intent   model.Intent
}

// commands are explicit command words that short-circuit before the
// general keyword rules. They must match the whole (trimmed) message,
// with or without a leading slash.
var commands = map[string]model.Intent{
	"start":       model.IntentGreeting,
	"help":        model.IntentHelp,
	"menu":        model.IntentInfoRequest,
	"search":      model.IntentSearchProperty,
	"preferences": model.IntentPreferenceUpdate,
	"bookings":    model.IntentBookTour,
	"stop":        model.IntentInfoRequest,
}

var rules = []rule{
	{
		keywords: []string{"book", "tour", "visit", "viewing", "appointment", "schedule"},
		intent:   model.IntentBookTour,
	},
	{
		keywords: []string{"help", "support", "how do i", "how to", "confused", "stuck"},
		intent:   model.IntentHelp,
	},
	{
		keywords: []string{"prefer", "preference", "settings", "update my", "change my"},
		intent:   model.IntentPreferenceUpdate,
	},
	{
		keywords: []string{"hello", "hi", "hey", "good morning", "good afternoon", "good evening", "greetings"},
		intent:   model.IntentGreeting,
	},
}

// Classifier assigns an intent to free message text.
type Classifier struct{}

// NewClassifier returns a keyword-rule intent classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the intent of the given text. The system is
// search-first: anything that matches no rule is a property search.
func (c *Classifier) Classify(message string) model.Intent {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return model.IntentSearchProperty
	}

	if intent, ok := commands[strings.TrimPrefix(normalized, "/")]; ok {
		return intent
	}

	for _, r := range rules {
		for _, kw := range r.keywords {
			if text.ContainsWord(normalized, kw) {
				return r.intent
			}
		}
	}

	return model.IntentSearchProperty
}
