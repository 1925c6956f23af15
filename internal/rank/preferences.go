package rank

import (
	"sort"

	"github.com/mbianda/rentscout/internal/model"
)

// topKeysPerDimension bounds how many learned keys a profile
// contributes to a scoring pass.
const topKeysPerDimension = 5

// PreferencesFromCriteria flattens a criteria record into the soft
// signal shape the ranker scores against.
func PreferencesFromCriteria(c model.SearchCriteria) Preferences {
	prefs := Preferences{
		PriceMin:  c.PriceMin,
		PriceMax:  c.PriceMax,
		Amenities: c.Amenities,
	}
	if c.Location != nil {
		prefs.Locations = []string{*c.Location}
	}
	if c.PropertyType != nil {
		prefs.PropertyTypes = []string{*c.PropertyType}
	}
	return prefs
}

// PreferencesFromProfile extracts the strongest learned keys of each
// dimension from a profile.
func PreferencesFromProfile(p *model.PreferenceProfile) Preferences {
	return Preferences{
		Locations:     topKeys(p.LocationScores, topKeysPerDimension),
		PropertyTypes: topKeys(p.PropertyTypeScores, topKeysPerDimension),
		Amenities:     topKeys(p.AmenityScores, topKeysPerDimension),
		PreferredAvg:  p.AveragePreferredPrice,
	}
}

// Merge fills the dimensions p leaves unconstrained from fallback.
// Explicit criteria always beat learned preferences.
func (p Preferences) Merge(fallback Preferences) Preferences {
	out := p
	if len(out.Locations) == 0 {
		out.Locations = fallback.Locations
	}
	if len(out.PropertyTypes) == 0 {
		out.PropertyTypes = fallback.PropertyTypes
	}
	if len(out.Amenities) == 0 {
		out.Amenities = fallback.Amenities
	}
	if out.PriceMin == nil && out.PriceMax == nil {
		out.PriceMin = fallback.PriceMin
		out.PriceMax = fallback.PriceMax
	}
	if out.PreferredAvg == 0 {
		out.PreferredAvg = fallback.PreferredAvg
	}
	return out
}

// topKeys returns up to n keys with positive scores, strongest first.
// Keys with equal scores are ordered alphabetically for determinism.
func topKeys(scores map[string]float64, n int) []string {
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
