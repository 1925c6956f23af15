// Package rank scores candidate properties against search criteria and
// learned user preferences, producing the ordering used for both plain
// search results and personalized recommendations.
package rank

import (
	"sort"
	"strings"
	"time"

	"github.com/mbianda/rentscout/internal/model"
)

const (
	componentMax = 100.0

	// Partial location credit tops out below an exact match.
	partialLocationMax = 80.0

	freshnessWindow = 7 * 24 * time.Hour

	verifiedBonus  = 3.0
	hasImagesBonus = 2.0
	ratingBonusPer = 2.0
)

// Weights are the per-component multipliers of the total score.
type Weights struct {
	Location     float64
	Price        float64
	PropertyType float64
	Amenities    float64
	Freshness    float64
	Diversity    float64
}

// Activity summarizes how engaged a user is, used to adjust weights.
type Activity struct {
	InteractionsPerDay float64
	SavedCount         int
}

// Adjust shifts the default weights for a user's activity level. Heavy
// users care more about location and amenities than listing freshness;
// users with a large saved list have revealed amenity and type taste.
// Shifts are mass-preserving so the weights keep summing to one.
func (w Weights) Adjust(a Activity) Weights {
	out := w

	if a.InteractionsPerDay > 2 {
		shift := minFloat(0.03, out.Freshness)
		out.Freshness -= shift
		out.Location += shift * 2 / 3
		out.Amenities += shift / 3
	}

	if a.SavedCount > 5 {
		shift := minFloat(0.05, out.Diversity)
		out.Diversity -= shift
		out.Amenities += shift * 3 / 5
		out.PropertyType += shift * 2 / 5
	}

	return out
}

// Preferences is the soft signal the ranker scores against. It is a
// flattened view of either a criteria record, a learned profile, or
// both.
type Preferences struct {
	Locations     []string
	PropertyTypes []string
	Amenities     []string
	PriceMin      *float64
	PriceMax      *float64
	PreferredAvg  float64
}

// Ranker computes property scores. A single Ranker is safe for
// concurrent use.
type Ranker struct {
	weights Weights
}

// NewRanker creates a ranker with the given default weights.
func NewRanker(weights Weights) *Ranker {
	return &Ranker{weights: weights}
}

// DefaultWeights returns the ranker's unadjusted weights.
func (r *Ranker) DefaultWeights() Weights {
	return r.weights
}

// Score computes the weighted total score of one candidate. Component
// scores are each normalized to 0..100 before weighting; freshness and
// quality are additive bonuses on top of the weighted sum.
func (r *Ranker) Score(prop model.PropertyCandidate, prefs Preferences, weights Weights, now time.Time) float64 {
	total := weights.Location*locationScore(prop, prefs) +
		weights.Price*priceScore(prop, prefs) +
		weights.PropertyType*propertyTypeScore(prop, prefs) +
		weights.Amenities*amenityScore(prop, prefs)

	if now.Sub(prop.CreatedAt) <= freshnessWindow {
		total += weights.Freshness * componentMax
	}

	if prop.Verified {
		total += verifiedBonus
	}
	if prop.HasImages {
		total += hasImagesBonus
	}
	if prop.Rating != nil {
		total += *prop.Rating * ratingBonusPer
	}

	return total
}

// Rank scores all candidates and sorts them by descending score. The
// sort is stable so catalog order breaks ties deterministically.
func (r *Ranker) Rank(candidates []model.PropertyCandidate, prefs Preferences, weights Weights, now time.Time) []model.ScoredProperty {
	scored := make([]model.ScoredProperty, 0, len(candidates))
	for _, prop := range candidates {
		scored = append(scored, model.ScoredProperty{
			Property: prop,
			Score:    r.Score(prop, prefs, weights, now),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// locationScore gives full credit for an exact match and partial credit
// when the candidate's location contains a preferred location as a
// substring ("molyko central" partially matches "molyko"). Partial
// credit scales with the share of the candidate string covered, so a
// tighter containment scores higher, and stays below exact-match
// credit.
func locationScore(prop model.PropertyCandidate, prefs Preferences) float64 {
	if len(prefs.Locations) == 0 {
		return 0
	}

	candidate := strings.ToLower(strings.TrimSpace(prop.Location))
	best := 0.0
	for _, raw := range prefs.Locations {
		preferred := strings.ToLower(strings.TrimSpace(raw))
		if preferred == "" {
			continue
		}
		switch {
		case candidate == preferred:
			return componentMax
		case strings.Contains(candidate, preferred):
			score := partialLocationMax * float64(len(preferred)) / float64(len(candidate))
			if score > best {
				best = score
			}
		}
	}
	return best
}

// priceScore peaks at the preferred average price and decays linearly
// to zero at the edges of the preferred band. Without a band the score
// is neutral full credit; without an average, the band midpoint stands
// in for it.
func priceScore(prop model.PropertyCandidate, prefs Preferences) float64 {
	if prefs.PriceMin == nil && prefs.PriceMax == nil {
		return componentMax
	}

	lo := 0.0
	if prefs.PriceMin != nil {
		lo = *prefs.PriceMin
	}
	hi := lo
	if prefs.PriceMax != nil {
		hi = *prefs.PriceMax
	} else {
		// An open top end: treat anything at or above the minimum
		// as within band.
		if prop.Price < lo {
			return 0
		}
		return componentMax
	}

	if prop.Price < lo || prop.Price > hi {
		return 0
	}
	if hi == lo {
		return componentMax
	}

	peak := prefs.PreferredAvg
	if peak <= 0 || peak < lo || peak > hi {
		peak = (lo + hi) / 2
	}

	var distance, span float64
	if prop.Price <= peak {
		distance, span = peak-prop.Price, peak-lo
	} else {
		distance, span = prop.Price-peak, hi-peak
	}
	if span == 0 {
		return componentMax
	}
	return componentMax * (1 - distance/span)
}

func propertyTypeScore(prop model.PropertyCandidate, prefs Preferences) float64 {
	if len(prefs.PropertyTypes) == 0 {
		return 0
	}
	candidate := strings.ToLower(strings.TrimSpace(prop.PropertyType))
	for _, pt := range prefs.PropertyTypes {
		if candidate == strings.ToLower(strings.TrimSpace(pt)) {
			return componentMax
		}
	}
	return 0
}

// amenityScore is the fraction of preferred amenities present on the
// candidate.
func amenityScore(prop model.PropertyCandidate, prefs Preferences) float64 {
	if len(prefs.Amenities) == 0 {
		return 0
	}

	have := make(map[string]bool, len(prop.Amenities))
	for _, am := range prop.Amenities {
		have[strings.ToLower(strings.TrimSpace(am))] = true
	}

	matching := 0
	for _, am := range prefs.Amenities {
		if have[strings.ToLower(strings.TrimSpace(am))] {
			matching++
		}
	}
	return float64(matching) / float64(len(prefs.Amenities)) * componentMax
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
