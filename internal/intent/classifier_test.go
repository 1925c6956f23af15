package intent_test

import (
	"testing"

	"github.com/mbianda/rentscout/internal/intent"
	"github.com/mbianda/rentscout/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	c := intent.NewClassifier()

	tests := []struct {
		name string
		text string
		want model.Intent
	}{
		{name: "start command", text: "/start", want: model.IntentGreeting},
		{name: "start without slash", text: "start", want: model.IntentGreeting},
		{name: "help command", text: "/help", want: model.IntentHelp},
		{name: "menu command", text: "/menu", want: model.IntentInfoRequest},
		{name: "search command", text: "/search", want: model.IntentSearchProperty},
		{name: "preferences command", text: "/preferences", want: model.IntentPreferenceUpdate},
		{name: "bookings command", text: "/bookings", want: model.IntentBookTour},
		{name: "stop command", text: "/stop", want: model.IntentInfoRequest},

		{name: "booking keyword", text: "I want to book a tour", want: model.IntentBookTour},
		{name: "visit keyword", text: "can I visit this place", want: model.IntentBookTour},
		{name: "help keyword", text: "I am stuck, help me", want: model.IntentHelp},
		{name: "how do i phrase", text: "how do i save a listing", want: model.IntentHelp},
		{name: "preference keyword", text: "change my settings please", want: model.IntentPreferenceUpdate},
		{name: "greeting", text: "hello there", want: model.IntentGreeting},
		{name: "greeting good morning", text: "good morning", want: model.IntentGreeting},

		// Booking rules are ordered before greetings, so a greeting
		// carrying a booking word books.
		{name: "greeting plus booking", text: "hi, I want to book a tour", want: model.IntentBookTour},

		{name: "plain search text", text: "2 bedroom apartment in molyko under 50000", want: model.IntentSearchProperty},
		{name: "empty", text: "", want: model.IntentSearchProperty},
		{name: "whitespace only", text: "   ", want: model.IntentSearchProperty},
		{name: "hi inside another word", text: "high ceilings wanted", want: model.IntentSearchProperty},
		{name: "unknown gibberish", text: "qwerty asdf", want: model.IntentSearchProperty},
		{name: "case insensitive", text: "HELLO", want: model.IntentGreeting},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
