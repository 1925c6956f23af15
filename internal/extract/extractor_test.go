package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbianda/rentscout/internal/extract"
)

func newTestExtractor() *extract.Extractor {
	return extract.NewExtractor(
		[]string{"molyko", "great soppo", "bonduma", "buea town"},
		[]string{"wifi", "parking", "water", "generator", "furnished"},
		[]string{"apartment", "studio", "house", "room"},
	)
}

func TestExtractPrice(t *testing.T) {
	t.Parallel()

	e := newTestExtractor()

	tests := []struct {
		name    string
		text    string
		wantMin *float64
		wantMax *float64
	}{
		{name: "under sets max", text: "apartment under 50000", wantMax: f(50000)},
		{name: "below sets max", text: "below 80,000 please", wantMax: f(80000)},
		{name: "less than sets max", text: "less than 120000", wantMax: f(120000)},
		{name: "above sets min", text: "something above 30000", wantMin: f(30000)},
		{name: "at least sets min", text: "at least 45000", wantMin: f(45000)},
		{name: "range wins over direction words", text: "from 40000 to 90000 max 50000", wantMin: f(40000), wantMax: f(90000)},
		{name: "plain range", text: "40000 to 60000", wantMin: f(40000), wantMax: f(60000)},
		{name: "around gives twenty percent band", text: "around 50000", wantMin: f(40000), wantMax: f(60000)},
		{name: "direction word beats around", text: "around 50000 but under 45000", wantMax: f(45000)},
		{name: "no price", text: "a nice studio"},
		{name: "inverted range ignored", text: "90000 to 40000"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := e.Extract(tt.text)
			assertPtrEqual(t, tt.wantMin, got.PriceMin, "PriceMin")
			assertPtrEqual(t, tt.wantMax, got.PriceMax, "PriceMax")
		})
	}
}

func TestExtractFields(t *testing.T) {
	t.Parallel()

	e := newTestExtractor()

	t.Run("full query", func(t *testing.T) {
		t.Parallel()
		got := e.Extract("2 bedroom apartment in Molyko with wifi and parking under 50,000")

		require.NotNil(t, got.Location)
		assert.Equal(t, "molyko", *got.Location)
		require.NotNil(t, got.Bedrooms)
		assert.Equal(t, 2, *got.Bedrooms)
		require.NotNil(t, got.PropertyType)
		assert.Equal(t, "apartment", *got.PropertyType)
		require.NotNil(t, got.PriceMax)
		assert.Equal(t, 50000.0, *got.PriceMax)
		assert.ElementsMatch(t, []string{"wifi", "parking"}, got.Amenities)
	})

	t.Run("first gazetteer hit wins", func(t *testing.T) {
		t.Parallel()
		got := e.Extract("molyko or bonduma, whichever")
		require.NotNil(t, got.Location)
		assert.Equal(t, "molyko", *got.Location)
	})

	t.Run("multi word location", func(t *testing.T) {
		t.Parallel()
		got := e.Extract("a house in great soppo")
		require.NotNil(t, got.Location)
		assert.Equal(t, "great soppo", *got.Location)
	})

	t.Run("hyphenated bedrooms", func(t *testing.T) {
		t.Parallel()
		got := e.Extract("3-bedroom house")
		require.NotNil(t, got.Bedrooms)
		assert.Equal(t, 3, *got.Bedrooms)
	})

	t.Run("room does not match bedroom", func(t *testing.T) {
		t.Parallel()
		got := e.Extract("2 bedroom place")
		assert.Nil(t, got.PropertyType)
	})

	t.Run("all amenities kept", func(t *testing.T) {
		t.Parallel()
		got := e.Extract("furnished with water, generator and wifi")
		assert.ElementsMatch(t, []string{"wifi", "water", "generator", "furnished"}, got.Amenities)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		got := e.Extract("   ")
		assert.True(t, got.IsEmpty())
	})
}

func f(v float64) *float64 { return &v }

func assertPtrEqual(t *testing.T, want, got *float64, field string) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got, field)
		return
	}
	require.NotNil(t, got, field)
	assert.InDelta(t, *want, *got, 0.001, field)
}
