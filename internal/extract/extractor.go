// Package extract turns free-text property queries into structured
// search criteria using gazetteer lookups and regular-expression rules.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mbianda/rentscout/internal/model"
	"github.com/mbianda/rentscout/internal/text"
)

var (
	priceMaxRe = regexp.MustCompile(`(?:under|below|max(?:imum)?|at most|less than)\s+(?:of\s+)?(\d[\d,]*)`)
	priceMinRe = regexp.MustCompile(`(?:above|over|min(?:imum)?|at least|more than)\s+(?:of\s+)?(\d[\d,]*)`)
	rangeRe    = regexp.MustCompile(`(\d[\d,]*)\s+to\s+(\d[\d,]*)`)
	aroundRe   = regexp.MustCompile(`(?:around|about|approximately)\s+(\d[\d,]*)`)
	bedroomsRe = regexp.MustCompile(`(\d+)[\s-]*bedrooms?`)

	// Symmetric band applied to "around N" prices.
	aroundBand = 0.2
)

// Extractor parses message text against fixed vocabularies. The
// vocabularies are injected so the same engine can serve different
// markets.
type Extractor struct {
	locations     []string
	amenities     []string
	propertyTypes []string
}

// NewExtractor builds an extractor over the given vocabularies. All
// vocabulary entries are matched case-insensitively.
func NewExtractor(locations, amenities, propertyTypes []string) *Extractor {
	return &Extractor{
		locations:     lowerAll(locations),
		amenities:     lowerAll(amenities),
		propertyTypes: lowerAll(propertyTypes),
	}
}

// Extract parses text into search criteria. The rules are independent:
// a single message may set several fields. Extraction never fails; any
// field a rule does not match stays unconstrained.
func (e *Extractor) Extract(raw string) model.SearchCriteria {
	criteria := model.SearchCriteria{}

	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return criteria
	}

	e.extractLocation(normalized, &criteria)
	e.extractPrice(normalized, &criteria)
	e.extractBedrooms(normalized, &criteria)
	e.extractPropertyType(normalized, &criteria)
	e.extractAmenities(normalized, &criteria)

	return criteria
}

// extractLocation uses the first gazetteer entry found in the text. A
// single criteria record carries at most one location.
func (e *Extractor) extractLocation(t string, criteria *model.SearchCriteria) {
	for _, loc := range e.locations {
		if strings.Contains(t, loc) {
			criteria.Location = ptr(loc)
			return
		}
	}
}

// extractPrice applies the price rules in precedence order: an explicit
// "N to M" range wins, then direction words, then an "around N" band
// when no direction word claimed the number.
func (e *Extractor) extractPrice(t string, criteria *model.SearchCriteria) {
	if m := rangeRe.FindStringSubmatch(t); m != nil {
		lo, loOK := parseAmount(m[1])
		hi, hiOK := parseAmount(m[2])
		if loOK && hiOK && lo <= hi {
			criteria.PriceMin = ptr(lo)
			criteria.PriceMax = ptr(hi)
			return
		}
	}

	directional := false
	if m := priceMaxRe.FindStringSubmatch(t); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			criteria.PriceMax = ptr(v)
			directional = true
		}
	}
	if m := priceMinRe.FindStringSubmatch(t); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			criteria.PriceMin = ptr(v)
			directional = true
		}
	}
	if directional {
		return
	}

	if m := aroundRe.FindStringSubmatch(t); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			criteria.PriceMin = ptr(v * (1 - aroundBand))
			criteria.PriceMax = ptr(v * (1 + aroundBand))
		}
	}
}

func (e *Extractor) extractBedrooms(t string, criteria *model.SearchCriteria) {
	if m := bedroomsRe.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			criteria.Bedrooms = ptr(n)
		}
	}
}

// extractPropertyType uses the first type keyword found, in vocabulary
// order.
func (e *Extractor) extractPropertyType(t string, criteria *model.SearchCriteria) {
	for _, pt := range e.propertyTypes {
		if text.ContainsWord(t, pt) {
			criteria.PropertyType = ptr(pt)
			return
		}
	}
}

// extractAmenities keeps every amenity keyword present, not just the
// first.
func (e *Extractor) extractAmenities(t string, criteria *model.SearchCriteria) {
	for _, am := range e.amenities {
		if text.ContainsWord(t, am) {
			criteria.Amenities = append(criteria.Amenities, am)
		}
	}
}

func parseAmount(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
