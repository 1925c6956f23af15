package rank_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mbianda/rentscout/internal/model"
	"github.com/mbianda/rentscout/internal/rank"
)

func TestPreferencesFromProfile(t *testing.T) {
	t.Parallel()

	profile := model.NewPreferenceProfile(7)
	profile.LocationScores = map[string]float64{
		"molyko": 90, "bonduma": 70, "great soppo": 50,
		"buea town": 30, "mile 16": 20, "mile 17": 10,
	}
	profile.PropertyTypeScores = map[string]float64{"apartment": 60, "studio": 60, "house": 0}
	profile.AmenityScores = map[string]float64{"wifi": 40}
	profile.AveragePreferredPrice = 55000

	prefs := rank.PreferencesFromProfile(profile)

	// Top five only, strongest first.
	assert.Equal(t, []string{"molyko", "bonduma", "great soppo", "buea town", "mile 16"}, prefs.Locations)
	// Equal scores tie-break alphabetically, zero scores drop out.
	assert.Equal(t, []string{"apartment", "studio"}, prefs.PropertyTypes)
	assert.Equal(t, []string{"wifi"}, prefs.Amenities)
	assert.Equal(t, 55000.0, prefs.PreferredAvg)
}

func TestPreferencesMerge(t *testing.T) {
	t.Parallel()

	learned := rank.Preferences{
		Locations:     []string{"bonduma"},
		PropertyTypes: []string{"studio"},
		Amenities:     []string{"generator"},
		PriceMin:      f(30000),
		PriceMax:      f(70000),
		PreferredAvg:  48000,
	}

	t.Run("explicit criteria beat learned", func(t *testing.T) {
		t.Parallel()
		criteria := rank.PreferencesFromCriteria(model.SearchCriteria{
			Location: sp("molyko"),
			PriceMax: f(50000),
		})
		merged := criteria.Merge(learned)

		assert.Equal(t, []string{"molyko"}, merged.Locations)
		// An explicit price bound suppresses the learned band entirely.
		assert.Nil(t, merged.PriceMin)
		assert.Equal(t, 50000.0, *merged.PriceMax)
		// Unconstrained dimensions fall back to learned signal.
		assert.Equal(t, []string{"studio"}, merged.PropertyTypes)
		assert.Equal(t, []string{"generator"}, merged.Amenities)
		assert.Equal(t, 48000.0, merged.PreferredAvg)
	})

	t.Run("empty criteria takes everything learned", func(t *testing.T) {
		t.Parallel()
		merged := rank.Preferences{}.Merge(learned)
		assert.Equal(t, learned, merged)
	})
}
