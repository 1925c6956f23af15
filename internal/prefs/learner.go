// Package prefs maintains per-user weighted preference profiles built
// from interaction events, with normalization and temporal decay.
package prefs

import (
	"math"
	"time"

	"github.com/mbianda/rentscout/internal/model"
)

const (
	// ScoreCeiling bounds the maximum value in any score map after
	// normalization.
	ScoreCeiling = 100.0

	decayBase       = 0.95
	decayPeriodDays = 7
)

// actionWeights are the fixed signal strengths per interaction kind.
// Negative weights let skip/unsave actions erode a learned preference.
var actionWeights = map[model.Action]float64{
	model.ActionView:    1,
	model.ActionSave:    3,
	model.ActionBook:    5,
	model.ActionContact: 4,
	model.ActionShare:   2,
	model.ActionSearch:  1,
	model.ActionSkip:    -1,
	model.ActionUnsave:  -2,
}

// ActionWeight returns the learning weight for an action, or 0 for an
// unknown action.
func ActionWeight(a model.Action) float64 {
	return actionWeights[a]
}

// Learner updates preference profiles from interactions. It is
// stateless; all methods are pure with respect to their inputs.
type Learner struct{}

// NewLearner returns a preference learner.
func NewLearner() *Learner {
	return &Learner{}
}

// Learn returns a new profile updated with one interaction. The input
// profile is never mutated, so a profile being read by a concurrent
// ranking pass is safe to share.
//
// Update order: stale scores decay first, then the interaction's weight
// is applied to each dimension taken from the property, then every
// score map is normalized back under the ceiling.
func (l *Learner) Learn(profile *model.PreferenceProfile, in model.Interaction, prop *model.PropertyCandidate) *model.PreferenceProfile {
	updated := profile.Clone()

	if !updated.LastUpdatedAt.IsZero() {
		factor := DecayFactor(in.Timestamp.Sub(updated.LastUpdatedAt))
		applyDecay(updated, factor)
	}

	weight := ActionWeight(in.Action)

	if prop != nil && weight != 0 {
		addScore(updated.LocationScores, normalizeKey(prop.Location), weight)
		addScore(updated.PropertyTypeScores, normalizeKey(prop.PropertyType), weight)
		for _, amenity := range prop.Amenities {
			addScore(updated.AmenityScores, normalizeKey(amenity), weight)
		}
		addScore(updated.PriceRangeScores, PriceBucket(prop.Price), weight)

		if weight > 0 {
			oldSum := updated.TotalWeightedPriceInteractions
			updated.AveragePreferredPrice = (updated.AveragePreferredPrice*oldSum + prop.Price*weight) / (oldSum + weight)
			updated.TotalWeightedPriceInteractions = oldSum + weight
		}
	}

	Normalize(updated.LocationScores)
	Normalize(updated.PropertyTypeScores)
	Normalize(updated.AmenityScores)
	Normalize(updated.PriceRangeScores)

	updated.LastUpdatedAt = in.Timestamp
	return updated
}

// addScore adds weight to a key's running score, floored at zero. A
// negative signal on a key the profile has never seen is dropped
// rather than materialized as a zero entry.
func addScore(scores map[string]float64, key string, weight float64) {
	if key == "" {
		return
	}
	current, seen := scores[key]
	next := current + weight
	if next <= 0 {
		if seen {
			scores[key] = 0
		}
		return
	}
	scores[key] = next
}

// Normalize rescales a score map in place so its maximum value does not
// exceed the ceiling. It is a no-op when the maximum is already within
// bounds.
func Normalize(scores map[string]float64) {
	max := 0.0
	for _, v := range scores {
		if v > max {
			max = v
		}
	}
	if max <= ScoreCeiling {
		return
	}
	scale := ScoreCeiling / max
	for k, v := range scores {
		scores[k] = v * scale
	}
}

// DecayFactor returns the multiplicative discount for a profile left
// un-reinforced for the given duration: 0.95 per full 7-day period,
// and 1 (no decay) inside the first period.
func DecayFactor(elapsed time.Duration) float64 {
	days := elapsed.Hours() / 24
	if days <= decayPeriodDays {
		return 1
	}
	periods := math.Floor(days / decayPeriodDays)
	return math.Pow(decayBase, periods)
}

// Decay applies the decay factor for the elapsed duration to every
// score map of the profile, returning a new profile. Stale signal is
// discounted, never deleted.
func (l *Learner) Decay(profile *model.PreferenceProfile, now time.Time) *model.PreferenceProfile {
	updated := profile.Clone()
	if updated.LastUpdatedAt.IsZero() {
		return updated
	}
	factor := DecayFactor(now.Sub(updated.LastUpdatedAt))
	if factor == 1 {
		return updated
	}
	applyDecay(updated, factor)
	updated.LastUpdatedAt = now
	return updated
}

func applyDecay(profile *model.PreferenceProfile, factor float64) {
	if factor == 1 {
		return
	}
	for _, scores := range []map[string]float64{
		profile.LocationScores,
		profile.PropertyTypeScores,
		profile.AmenityScores,
		profile.PriceRangeScores,
	} {
		for k, v := range scores {
			scores[k] = v * factor
		}
	}
}
