package assistant_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbianda/rentscout/internal/assistant"
	"github.com/mbianda/rentscout/internal/model"
)

func TestButtonRoundTrip(t *testing.T) {
	t.Parallel()

	actions := []model.Action{
		model.ActionView, model.ActionSave, model.ActionUnsave,
		model.ActionBook, model.ActionContact, model.ActionShare, model.ActionSkip,
	}

	for _, action := range actions {
		data := assistant.FormatButton(action, "prop-42")
		gotAction, gotID, ok := assistant.ParseButton(data)
		require.True(t, ok, "payload %q should parse", data)
		assert.Equal(t, action, gotAction)
		assert.Equal(t, "prop-42", gotID)
	}
}

func TestParseButtonRejectsForeignPayloads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "no separator", data: "save"},
		{name: "empty property id", data: "save:"},
		{name: "unknown action", data: "explode:prop-42"},
		{name: "search is not a button action", data: "search:prop-42"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, ok := assistant.ParseButton(tt.data)
			assert.False(t, ok)
		})
	}
}

func TestParseButtonKeepsColonsInPropertyID(t *testing.T) {
	t.Parallel()

	action, id, ok := assistant.ParseButton("view:ns:prop:1")
	require.True(t, ok)
	assert.Equal(t, model.ActionView, action)
	assert.Equal(t, "ns:prop:1", id)
}
