package recommend_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbianda/rentscout/internal/model"
	"github.com/mbianda/rentscout/internal/rank"
	"github.com/mbianda/rentscout/internal/recommend"
)

var now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

// fakeCatalog serves canned data for each Catalog call and lets a test
// fail any of them.
type fakeCatalog struct {
	interactions []model.Interaction
	properties   map[string]model.PropertyCandidate
	catalog      []model.PropertyCandidate
	featured     []model.PropertyCandidate
	recent       []model.PropertyCandidate

	failInteractions bool
	failCatalog      bool
}

func (f *fakeCatalog) RecentInteractions(_ context.Context, _ int64, _ []model.Action, limit int) ([]model.Interaction, error) {
	if f.failInteractions {
		return nil, errors.New("interactions unavailable")
	}
	if len(f.interactions) > limit {
		return f.interactions[:limit], nil
	}
	return f.interactions, nil
}

func (f *fakeCatalog) PropertiesByIDs(_ context.Context, ids []string) ([]model.PropertyCandidate, error) {
	out := make([]model.PropertyCandidate, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.properties[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) QueryCatalog(_ context.Context, _ model.SearchCriteria, limit int) ([]model.PropertyCandidate, error) {
	if f.failCatalog {
		return nil, errors.New("catalog unavailable")
	}
	if len(f.catalog) > limit {
		return f.catalog[:limit], nil
	}
	return f.catalog, nil
}

func (f *fakeCatalog) FeaturedProperties(_ context.Context, limit int) ([]model.PropertyCandidate, error) {
	if len(f.featured) > limit {
		return f.featured[:limit], nil
	}
	return f.featured, nil
}

func (f *fakeCatalog) RecentProperties(_ context.Context, limit int) ([]model.PropertyCandidate, error) {
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func candidate(id, location, propertyType string, price float64) model.PropertyCandidate {
	return model.PropertyCandidate{
		ID:           id,
		Title:        id,
		Location:     location,
		PropertyType: propertyType,
		Price:        price,
		CreatedAt:    now.Add(-30 * 24 * time.Hour),
	}
}

func newTestEngine(catalog *fakeCatalog) *recommend.Engine {
	return recommend.NewEngine(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		catalog,
		rank.NewRanker(rank.Weights{Location: 0.4, Price: 0.3, PropertyType: 0.3}),
		recommend.Options{HistoryWindow: 20, CandidateLimit: 100},
	)
}

func TestRecommendUsesImplicitSignal(t *testing.T) {
	t.Parallel()

	viewed := candidate("v1", "molyko", "apartment", 50000)
	catalog := &fakeCatalog{
		interactions: []model.Interaction{
			{PropertyID: "v1", Action: model.ActionSave},
			{PropertyID: "v1", Action: model.ActionView}, // duplicate id collapses
		},
		properties: map[string]model.PropertyCandidate{"v1": viewed},
		catalog: []model.PropertyCandidate{
			candidate("far", "bonduma", "studio", 200000),
			candidate("close", "molyko", "apartment", 52000),
		},
	}

	got := newTestEngine(catalog).Recommend(context.Background(), 7, nil, rank.Weights{Location: 0.4, Price: 0.3, PropertyType: 0.3}, 10, now)

	require.NotEmpty(t, got)
	assert.Equal(t, "close", got[0].Property.ID, "the listing matching the viewed one should rank first")
}

func TestRecommendFallsBackWithoutSignal(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{
		featured: []model.PropertyCandidate{candidate("feat1", "molyko", "apartment", 45000)},
		recent: []model.PropertyCandidate{
			candidate("feat1", "molyko", "apartment", 45000), // already featured
			candidate("new1", "bonduma", "studio", 30000),
		},
	}

	got := newTestEngine(catalog).Recommend(context.Background(), 7, nil, rank.Weights{}, 10, now)

	require.Len(t, got, 2)
	assert.Equal(t, "feat1", got[0].Property.ID)
	assert.Equal(t, "new1", got[1].Property.ID)
}

func TestRecommendFallsBackWhenCatalogFails(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{
		interactions: []model.Interaction{{PropertyID: "v1", Action: model.ActionView}},
		properties:   map[string]model.PropertyCandidate{"v1": candidate("v1", "molyko", "apartment", 50000)},
		failCatalog:  true,
		featured:     []model.PropertyCandidate{candidate("feat1", "molyko", "apartment", 45000)},
	}

	got := newTestEngine(catalog).Recommend(context.Background(), 7, nil, rank.Weights{}, 10, now)

	require.Len(t, got, 1)
	assert.Equal(t, "feat1", got[0].Property.ID)
}

func TestRecommendFallsBackWhenInteractionsFail(t *testing.T) {
	t.Parallel()

	catalog := &fakeCatalog{
		failInteractions: true,
		featured:         []model.PropertyCandidate{candidate("feat1", "molyko", "apartment", 45000)},
	}

	got := newTestEngine(catalog).Recommend(context.Background(), 7, nil, rank.Weights{}, 10, now)

	require.Len(t, got, 1)
	assert.Equal(t, "feat1", got[0].Property.ID)
}

func TestRecommendUsesLearnedProfileWithoutHistory(t *testing.T) {
	t.Parallel()

	profile := model.NewPreferenceProfile(7)
	profile.LocationScores["molyko"] = 90

	catalog := &fakeCatalog{
		catalog: []model.PropertyCandidate{
			candidate("far", "bonduma", "studio", 60000),
			candidate("close", "molyko", "apartment", 60000),
		},
	}

	got := newTestEngine(catalog).Recommend(context.Background(), 7, profile, rank.Weights{Location: 1}, 10, now)

	require.Len(t, got, 2)
	assert.Equal(t, "close", got[0].Property.ID)
}

func TestRecommendDiversifiesAndLimits(t *testing.T) {
	t.Parallel()

	profile := model.NewPreferenceProfile(7)
	profile.LocationScores["molyko"] = 90

	var many []model.PropertyCandidate
	for i := 0; i < 10; i++ {
		many = append(many, candidate(fmt.Sprintf("m%d", i), "molyko", fmt.Sprintf("type%d", i), 50000))
	}
	many = append(many, candidate("b1", "bonduma", "studio", 50000))
	catalog := &fakeCatalog{catalog: many}

	got := newTestEngine(catalog).Recommend(context.Background(), 7, profile, rank.Weights{Location: 1}, 4, now)

	require.Len(t, got, 4)
	perLocation := map[string]int{}
	for _, sp := range got {
		perLocation[sp.Property.Location]++
	}
	assert.LessOrEqual(t, perLocation["molyko"], 3, "no more than three listings from one neighborhood")
}
