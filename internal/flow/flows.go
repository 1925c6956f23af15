package flow

import (
	"regexp"

	"github.com/mbianda/rentscout/internal/model"
)

// Step names. Every step is declared in exactly one flow's state table.
const (
	StepWelcome           = "welcome"
	StepAwaitingCriteria  = "awaiting_criteria"
	StepShowingResults    = "showing_results"
	StepViewingProperty   = "viewing_property"
	StepSelectingProperty = "selecting_property"
	StepAwaitingTime      = "awaiting_time"
	StepConfirming        = "confirming"
	StepConfirmed         = "confirmed"
	StepReviewing         = "reviewing"
	StepConfirmingReset   = "confirming_reset"
	StepResetDone         = "reset_done"
	StepDone              = "done"
	StepShowingHelp       = "showing_help"
)

// Actions tell the caller what to render for the step just entered.
const (
	ActionSendWelcome     = "send_welcome"
	ActionPromptCriteria  = "prompt_criteria"
	ActionSearch          = "search"
	ActionShowProperty    = "show_property"
	ActionPromptProperty  = "prompt_property"
	ActionPromptTime      = "prompt_time"
	ActionConfirmBooking  = "confirm_booking"
	ActionBookingDone     = "booking_done"
	ActionShowPreferences = "show_preferences"
	ActionConfirmReset    = "confirm_reset"
	ActionResetDone       = "reset_preferences"
	ActionPrefsDone       = "prefs_done"
	ActionShowHelp        = "show_help"
)

// Context keys written by the handler layer and read by context
// predicates.
const (
	CtxSelectedProperty = "selected_property"
	CtxLastResults      = "last_results"
	CtxBookingTime      = "booking_time"
)

var (
	bedroomsPattern = regexp.MustCompile(`\d+[\s-]*bedrooms?`)
	numberPattern   = regexp.MustCompile(`\d`)
	timePattern     = regexp.MustCompile(`(?:\d{1,2}(?::\d{2})?\s*(?:am|pm)?)|monday|tuesday|wednesday|thursday|friday|saturday|sunday|today|tomorrow`)
)

// defaultFlows declares every flow as a named set of states, each with
// an ordered transition list. First matching condition wins; `always`
// conditions are listed last as the catch-all.
func defaultFlows() map[model.Flow]*Definition {
	return map[model.Flow]*Definition{
		model.FlowOnboarding: {
			Name:    model.FlowOnboarding,
			Initial: StepWelcome,
			States: map[string]*State{
				StepWelcome: {
					Action: ActionSendWelcome,
					Prompt: "Welcome! Tell me what kind of place you are looking for.",
					Transitions: []Transition{
						{Condition: WhenPattern(bedroomsPattern), Target: StepShowingResults},
						{Condition: WhenIntent(model.IntentSearchProperty), Target: StepShowingResults},
						{Condition: Always(), Target: StepWelcome},
					},
				},
				StepShowingResults: {
					Action:   ActionSearch,
					Terminal: true,
				},
			},
		},

		model.FlowPropertySearch: {
			Name:    model.FlowPropertySearch,
			Initial: StepAwaitingCriteria,
			States: map[string]*State{
				StepAwaitingCriteria: {
					Action: ActionPromptCriteria,
					Prompt: "What kind of place are you looking for? Mention neighborhood, price and bedrooms.",
					Transitions: []Transition{
						{Condition: WhenPattern(bedroomsPattern), Target: StepShowingResults},
						{Condition: WhenIntent(model.IntentSearchProperty), Target: StepShowingResults},
						{Condition: Always(), Target: StepAwaitingCriteria},
					},
				},
				StepShowingResults: {
					Action: ActionSearch,
					Transitions: []Transition{
						{Condition: WhenContext(CtxSelectedProperty, hasValue), Target: StepViewingProperty},
						{Condition: WhenKeyword("details", "show me", "tell me more"), Target: StepViewingProperty},
						{Condition: WhenKeyword("more", "next", "others"), Target: StepShowingResults},
						{Condition: WhenPattern(numberPattern), Target: StepShowingResults},
						{Condition: WhenIntent(model.IntentSearchProperty), Target: StepShowingResults},
					},
				},
				StepViewingProperty: {
					Action: ActionShowProperty,
					Transitions: []Transition{
						{Condition: WhenKeyword("back", "results", "other options"), Target: StepShowingResults},
						{Condition: WhenIntent(model.IntentSearchProperty), Target: StepShowingResults},
						{Condition: Always(), Target: StepViewingProperty},
					},
				},
			},
		},

		model.FlowBooking: {
			Name:    model.FlowBooking,
			Initial: StepSelectingProperty,
			States: map[string]*State{
				StepSelectingProperty: {
					Action: ActionPromptProperty,
					Prompt: "Which listing would you like to visit? Tap one or send its number.",
					Transitions: []Transition{
						{Condition: WhenContext(CtxSelectedProperty, hasValue), Target: StepAwaitingTime},
						{Condition: WhenPattern(numberPattern), Target: StepAwaitingTime},
						{Condition: Always(), Target: StepSelectingProperty},
					},
				},
				StepAwaitingTime: {
					Action: ActionPromptTime,
					Prompt: "When would you like to visit? Send a day and time.",
					Transitions: []Transition{
						{Condition: WhenPattern(timePattern), Target: StepConfirming},
						{Condition: Always(), Target: StepAwaitingTime},
					},
				},
				StepConfirming: {
					Action: ActionConfirmBooking,
					Prompt: "Shall I confirm this tour? Reply yes or no.",
					Transitions: []Transition{
						{Condition: WhenKeyword("yes", "confirm", "ok", "sure"), Target: StepConfirmed},
						{Condition: WhenKeyword("no", "cancel", "change"), Target: StepAwaitingTime},
						{Condition: Always(), Target: StepConfirming},
					},
				},
				StepConfirmed: {
					Action:   ActionBookingDone,
					Prompt:   "Your tour is booked. The landlord will be notified.",
					Terminal: true,
				},
			},
		},

		model.FlowPreferences: {
			Name:    model.FlowPreferences,
			Initial: StepReviewing,
			States: map[string]*State{
				StepReviewing: {
					Action: ActionShowPreferences,
					Prompt: "Here is what I have learned about your taste. Say \"reset\" to start fresh, or just keep searching.",
					Transitions: []Transition{
						{Condition: WhenKeyword("reset", "clear", "start over"), Target: StepConfirmingReset},
						{Condition: WhenIntent(model.IntentSearchProperty), Target: StepDone},
						{Condition: Always(), Target: StepReviewing},
					},
				},
				StepConfirmingReset: {
					Action: ActionConfirmReset,
					Prompt: "Reset all learned preferences? Reply yes or no.",
					Transitions: []Transition{
						{Condition: WhenKeyword("yes", "confirm"), Target: StepResetDone},
						{Condition: Always(), Target: StepReviewing},
					},
				},
				StepResetDone: {
					Action:   ActionResetDone,
					Prompt:   "Done. I have forgotten everything I learned about your taste.",
					Terminal: true,
				},
				StepDone: {
					Action:   ActionPrefsDone,
					Terminal: true,
				},
			},
		},

		model.FlowHelp: {
			Name:    model.FlowHelp,
			Initial: StepShowingHelp,
			States: map[string]*State{
				StepShowingHelp: {
					Action:   ActionShowHelp,
					Prompt:   "Send me a description of the place you want and I will find matching listings.",
					Terminal: true,
				},
			},
		},
	}
}

// switchTriggers are flow-switch keywords checked independently of the
// active flow. Matching one interrupts the current flow.
var switchTriggers = []struct {
	keywords []string
	flow     model.Flow
}{
	{keywords: []string{"book", "tour", "visit", "viewing", "appointment"}, flow: model.FlowBooking},
	{keywords: []string{"help", "support"}, flow: model.FlowHelp},
	{keywords: []string{"preferences", "settings", "my taste"}, flow: model.FlowPreferences},
}

// intentDefaults maps a classified intent to the flow it initiates when
// no flow is active.
var intentDefaults = map[model.Intent]model.Flow{
	model.IntentGreeting:         model.FlowPropertySearch,
	model.IntentSearchProperty:   model.FlowPropertySearch,
	model.IntentBookTour:         model.FlowBooking,
	model.IntentHelp:             model.FlowHelp,
	model.IntentPreferenceUpdate: model.FlowPreferences,
	model.IntentInfoRequest:      model.FlowHelp,
}

func hasValue(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}
