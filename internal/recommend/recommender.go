// Package recommend composes the learned preference profile with the
// ranking engine to produce a diversified top-N recommendation list.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/mbianda/rentscout/internal/model"
	"github.com/mbianda/rentscout/internal/rank"
)

// Catalog is the slice of the store the recommender reads. All calls
// are treated as fallible I/O boundaries.
type Catalog interface {
	RecentInteractions(ctx context.Context, userID int64, actions []model.Action, limit int) ([]model.Interaction, error)
	PropertiesByIDs(ctx context.Context, ids []string) ([]model.PropertyCandidate, error)
	QueryCatalog(ctx context.Context, criteria model.SearchCriteria, limit int) ([]model.PropertyCandidate, error)
	FeaturedProperties(ctx context.Context, limit int) ([]model.PropertyCandidate, error)
	RecentProperties(ctx context.Context, limit int) ([]model.PropertyCandidate, error)
}

// Options bounds the recommender's reads.
type Options struct {
	HistoryWindow  int
	CandidateLimit int
}

// Engine produces personalized recommendations.
type Engine struct {
	logger  *slog.Logger
	catalog Catalog
	ranker  *rank.Ranker
	opts    Options
}

// NewEngine creates a recommendation engine.
func NewEngine(logger *slog.Logger, catalog Catalog, ranker *rank.Ranker, opts Options) *Engine {
	return &Engine{
		logger:  logger.With("component", "recommender"),
		catalog: catalog,
		ranker:  ranker,
		opts:    opts,
	}
}

// Recommend returns up to limit diversified recommendations for the
// user. When the user has no implicit signal yet, or the catalog reads
// fail, it falls back to featured-then-recent listings; the list is
// only empty when the catalog itself is.
func (e *Engine) Recommend(ctx context.Context, userID int64, profile *model.PreferenceProfile, weights rank.Weights, limit int, now time.Time) []model.ScoredProperty {
	implicit, err := e.implicitPreferences(ctx, userID)
	if err != nil {
		e.logger.Warn("failed to derive implicit preferences, using fallback list",
			"user_id", userID, "error", err)
		return e.fallback(ctx, limit)
	}

	prefs := implicit
	if profile != nil && !profile.IsEmpty() {
		prefs = rank.PreferencesFromProfile(profile).Merge(implicit)
	}

	if len(prefs.Locations) == 0 && len(prefs.PropertyTypes) == 0 &&
		len(prefs.Amenities) == 0 && prefs.PriceMin == nil && prefs.PriceMax == nil {
		e.logger.Debug("no preference signal yet, using fallback list", "user_id", userID)
		return e.fallback(ctx, limit)
	}

	candidates, err := e.catalog.QueryCatalog(ctx, model.SearchCriteria{}, e.opts.CandidateLimit)
	if err != nil {
		e.logger.Warn("catalog fetch failed, using fallback list", "user_id", userID, "error", err)
		return e.fallback(ctx, limit)
	}
	if len(candidates) == 0 {
		return e.fallback(ctx, limit)
	}

	scored := e.ranker.Rank(candidates, prefs, weights, now)
	diversified := rank.Diversify(scored)
	if len(diversified) > limit {
		diversified = diversified[:limit]
	}
	return diversified
}

// implicitPreferences builds a frequency-based preference view from
// the properties behind the user's most recent view and save events.
// This intentionally bypasses the learned score maps; it only sources
// candidate preferences from what the user actually looked at.
func (e *Engine) implicitPreferences(ctx context.Context, userID int64) (rank.Preferences, error) {
	events, err := e.catalog.RecentInteractions(ctx, userID,
		[]model.Action{model.ActionView, model.ActionSave}, e.opts.HistoryWindow)
	if err != nil {
		return rank.Preferences{}, fmt.Errorf("failed to load interaction window: %w", err)
	}

	seen := make(map[string]bool)
	ids := make([]string, 0, len(events))
	for _, ev := range events {
		if ev.PropertyID == "" || seen[ev.PropertyID] {
			continue
		}
		seen[ev.PropertyID] = true
		ids = append(ids, ev.PropertyID)
	}
	if len(ids) == 0 {
		return rank.Preferences{}, nil
	}

	properties, err := e.catalog.PropertiesByIDs(ctx, ids)
	if err != nil {
		return rank.Preferences{}, fmt.Errorf("failed to load window properties: %w", err)
	}
	if len(properties) == 0 {
		return rank.Preferences{}, nil
	}

	locationFreq := make(map[string]int)
	typeFreq := make(map[string]int)
	amenityFreq := make(map[string]int)
	var priceSum, priceMin, priceMax float64

	for i, prop := range properties {
		locationFreq[prop.Location]++
		typeFreq[prop.PropertyType]++
		for _, am := range prop.Amenities {
			amenityFreq[am]++
		}
		priceSum += prop.Price
		if i == 0 || prop.Price < priceMin {
			priceMin = prop.Price
		}
		if prop.Price > priceMax {
			priceMax = prop.Price
		}
	}

	avg := priceSum / float64(len(properties))
	return rank.Preferences{
		Locations:     topByFrequency(locationFreq, 3),
		PropertyTypes: topByFrequency(typeFreq, 2),
		Amenities:     topByFrequency(amenityFreq, 5),
		PriceMin:      &priceMin,
		PriceMax:      &priceMax,
		PreferredAvg:  avg,
	}, nil
}

// fallback hands off to featured listings first, padded with the most
// recently created ones, deduplicated, up to limit.
func (e *Engine) fallback(ctx context.Context, limit int) []model.ScoredProperty {
	out := make([]model.ScoredProperty, 0, limit)
	seen := make(map[string]bool)

	featured, err := e.catalog.FeaturedProperties(ctx, limit)
	if err != nil {
		e.logger.Warn("failed to load featured properties for fallback", "error", err)
	}
	for _, prop := range featured {
		if len(out) >= limit {
			return out
		}
		seen[prop.ID] = true
		out = append(out, model.ScoredProperty{Property: prop})
	}

	recent, err := e.catalog.RecentProperties(ctx, limit)
	if err != nil {
		e.logger.Warn("failed to load recent properties for fallback", "error", err)
		return out
	}
	for _, prop := range recent {
		if len(out) >= limit {
			break
		}
		if seen[prop.ID] {
			continue
		}
		out = append(out, model.ScoredProperty{Property: prop})
	}
	return out
}

// topByFrequency returns up to n keys ordered by descending frequency,
// alphabetical on ties for determinism.
func topByFrequency(freq map[string]int, n int) []string {
	keys := make([]string, 0, len(freq))
	for k := range freq {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if freq[keys[i]] != freq[keys[j]] {
			return freq[keys[i]] > freq[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}
