package assistant

import (
	"strings"

	"github.com/mbianda/rentscout/internal/model"
)

// Inline keyboard callbacks carry "<action>:<property-id>". The action
// token must be one of the interaction actions the learner understands.
var buttonActions = map[string]model.Action{
	"view":    model.ActionView,
	"save":    model.ActionSave,
	"unsave":  model.ActionUnsave,
	"book":    model.ActionBook,
	"contact": model.ActionContact,
	"share":   model.ActionShare,
	"skip":    model.ActionSkip,
}

// FormatButton builds the callback payload for a property action.
func FormatButton(action model.Action, propertyID string) string {
	return string(action) + ":" + propertyID
}

// ParseButton splits a callback payload into its action and property
// ID. ok is false for payloads this package did not produce.
func ParseButton(data string) (model.Action, string, bool) {
	token, propertyID, found := strings.Cut(data, ":")
	if !found || propertyID == "" {
		return "", "", false
	}
	action, ok := buttonActions[token]
	if !ok {
		return "", "", false
	}
	return action, propertyID, true
}
