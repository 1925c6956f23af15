package prefs

import "strings"

// Price bucket names, ordered cheapest first.
const (
	BucketVeryLow    = "very_low"
	BucketLow        = "low"
	BucketMediumLow  = "medium_low"
	BucketMedium     = "medium"
	BucketMediumHigh = "medium_high"
	BucketHigh       = "high"
	BucketVeryHigh   = "very_high"
)

// PriceBucket maps a monthly price onto its fixed bucket. The
// thresholds match the interaction history accumulated under them;
// changing them would silently re-bucket every stored profile.
func PriceBucket(price float64) string {
	switch {
	case price < 30000:
		return BucketVeryLow
	case price < 50000:
		return BucketLow
	case price < 80000:
		return BucketMediumLow
	case price < 120000:
		return BucketMedium
	case price < 200000:
		return BucketMediumHigh
	case price < 300000:
		return BucketHigh
	default:
		return BucketVeryHigh
	}
}

// normalizeKey lower-cases and trims a score map key so "Molyko" and
// "molyko" accumulate on the same entry.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
