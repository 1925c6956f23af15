package rank

import (
	"strings"

	"github.com/mbianda/rentscout/internal/model"
)

// Diversity caps for a single recommendation batch.
const (
	maxPerLocation = 3
	maxPerType     = 4
	maxBatchSize   = 20
)

// Diversify walks an already-sorted list and admits a property only
// while its location and property-type running counts are under the
// caps, stopping once the batch is full. This keeps one neighborhood
// or type from dominating a recommendation list.
func Diversify(sorted []model.ScoredProperty) []model.ScoredProperty {
	out := make([]model.ScoredProperty, 0, minInt(len(sorted), maxBatchSize))
	locationCounts := make(map[string]int)
	typeCounts := make(map[string]int)

	for _, sp := range sorted {
		if len(out) >= maxBatchSize {
			break
		}
		loc := strings.ToLower(strings.TrimSpace(sp.Property.Location))
		typ := strings.ToLower(strings.TrimSpace(sp.Property.PropertyType))
		if locationCounts[loc] >= maxPerLocation || typeCounts[typ] >= maxPerType {
			continue
		}
		locationCounts[loc]++
		typeCounts[typ]++
		out = append(out, sp)
	}

	return out
}

// MatchesCriteria reports whether a candidate satisfies every hard
// constraint of a criteria record. Used by filtered search; the
// recommendation path scores the same constraints softly instead.
func MatchesCriteria(prop model.PropertyCandidate, criteria model.SearchCriteria) bool {
	if criteria.Location != nil {
		candidate := strings.ToLower(strings.TrimSpace(prop.Location))
		wanted := strings.ToLower(strings.TrimSpace(*criteria.Location))
		if !strings.Contains(candidate, wanted) {
			return false
		}
	}
	if criteria.PriceMin != nil && prop.Price < *criteria.PriceMin {
		return false
	}
	if criteria.PriceMax != nil && prop.Price > *criteria.PriceMax {
		return false
	}
	if criteria.Bedrooms != nil && prop.Bedrooms != *criteria.Bedrooms {
		return false
	}
	if criteria.PropertyType != nil {
		if !strings.EqualFold(strings.TrimSpace(prop.PropertyType), strings.TrimSpace(*criteria.PropertyType)) {
			return false
		}
	}
	if len(criteria.Amenities) > 0 {
		have := make(map[string]bool, len(prop.Amenities))
		for _, am := range prop.Amenities {
			have[strings.ToLower(strings.TrimSpace(am))] = true
		}
		for _, am := range criteria.Amenities {
			if !have[strings.ToLower(strings.TrimSpace(am))] {
				return false
			}
		}
	}
	return true
}

// FilterCriteria returns only the candidates satisfying every hard
// constraint, preserving input order.
func FilterCriteria(candidates []model.PropertyCandidate, criteria model.SearchCriteria) []model.PropertyCandidate {
	out := make([]model.PropertyCandidate, 0, len(candidates))
	for _, prop := range candidates {
		if MatchesCriteria(prop, criteria) {
			out = append(out, prop)
		}
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
