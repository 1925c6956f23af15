package rank_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbianda/rentscout/internal/model"
	"github.com/mbianda/rentscout/internal/rank"
)

var now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func defaultWeights() rank.Weights {
	return rank.Weights{
		Location:     0.30,
		Price:        0.25,
		PropertyType: 0.20,
		Amenities:    0.15,
		Freshness:    0.05,
		Diversity:    0.05,
	}
}

func prop(mutate func(*model.PropertyCandidate)) model.PropertyCandidate {
	p := model.PropertyCandidate{
		ID:           "p1",
		Title:        "Listing",
		Location:     "molyko",
		Price:        50000,
		PropertyType: "apartment",
		Bedrooms:     2,
		Amenities:    []string{"wifi", "parking"},
		CreatedAt:    now.Add(-30 * 24 * time.Hour),
	}
	if mutate != nil {
		mutate(&p)
	}
	return p
}

func TestScoreLocationComponent(t *testing.T) {
	t.Parallel()

	r := rank.NewRanker(defaultWeights())
	w := rank.Weights{Location: 1}

	t.Run("exact match gets full credit", func(t *testing.T) {
		t.Parallel()
		score := r.Score(prop(nil), rank.Preferences{Locations: []string{"Molyko"}}, w, now)
		assert.InDelta(t, 100, score, 0.001)
	})

	t.Run("containment gets partial credit", func(t *testing.T) {
		t.Parallel()
		p := prop(func(p *model.PropertyCandidate) { p.Location = "molyko central" })
		score := r.Score(p, rank.Preferences{Locations: []string{"molyko"}}, w, now)
		// 80 * len("molyko")/len("molyko central")
		assert.InDelta(t, 80*6.0/14.0, score, 0.001)
		assert.Less(t, score, 80.0)
	})

	t.Run("no preferred locations scores zero", func(t *testing.T) {
		t.Parallel()
		score := r.Score(prop(nil), rank.Preferences{}, w, now)
		assert.InDelta(t, 0, score, 0.001)
	})
}

func TestScorePriceComponent(t *testing.T) {
	t.Parallel()

	r := rank.NewRanker(defaultWeights())
	w := rank.Weights{Price: 1}
	band := rank.Preferences{PriceMin: f(40000), PriceMax: f(60000)}

	t.Run("no band is neutral full credit", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 100, r.Score(prop(nil), rank.Preferences{}, w, now), 0.001)
	})

	t.Run("midpoint peaks", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 100, r.Score(prop(nil), band, w, now), 0.001)
	})

	t.Run("band edge scores zero", func(t *testing.T) {
		t.Parallel()
		p := prop(func(p *model.PropertyCandidate) { p.Price = 60000 })
		assert.InDelta(t, 0, r.Score(p, band, w, now), 0.001)
	})

	t.Run("linear between peak and edge", func(t *testing.T) {
		t.Parallel()
		p := prop(func(p *model.PropertyCandidate) { p.Price = 55000 })
		assert.InDelta(t, 50, r.Score(p, band, w, now), 0.001)
	})

	t.Run("outside band scores zero", func(t *testing.T) {
		t.Parallel()
		p := prop(func(p *model.PropertyCandidate) { p.Price = 85000 })
		assert.InDelta(t, 0, r.Score(p, band, w, now), 0.001)
	})

	t.Run("learned average shifts the peak", func(t *testing.T) {
		t.Parallel()
		prefs := rank.Preferences{PriceMin: f(40000), PriceMax: f(60000), PreferredAvg: 45000}
		p := prop(func(p *model.PropertyCandidate) { p.Price = 45000 })
		assert.InDelta(t, 100, r.Score(p, prefs, w, now), 0.001)
	})

	t.Run("open top end", func(t *testing.T) {
		t.Parallel()
		prefs := rank.Preferences{PriceMin: f(40000)}
		assert.InDelta(t, 100, r.Score(prop(nil), prefs, w, now), 0.001)
		cheap := prop(func(p *model.PropertyCandidate) { p.Price = 30000 })
		assert.InDelta(t, 0, r.Score(cheap, prefs, w, now), 0.001)
	})

	t.Run("max-only band without learned average peaks at the midpoint", func(t *testing.T) {
		t.Parallel()
		prefs := rank.Preferences{PriceMax: f(80000)}
		mid := prop(func(p *model.PropertyCandidate) { p.Price = 40000 })
		assert.InDelta(t, 100, r.Score(mid, prefs, w, now), 0.001)
		cheap := prop(func(p *model.PropertyCandidate) { p.Price = 20000 })
		assert.InDelta(t, 50, r.Score(cheap, prefs, w, now), 0.001)
	})
}

func TestScoreAmenityComponent(t *testing.T) {
	t.Parallel()

	r := rank.NewRanker(defaultWeights())
	w := rank.Weights{Amenities: 1}
	prefs := rank.Preferences{Amenities: []string{"wifi", "parking", "generator", "water"}}

	t.Run("fraction of preferred amenities present", func(t *testing.T) {
		t.Parallel()
		// wifi and parking, of four preferred.
		assert.InDelta(t, 50, r.Score(prop(nil), prefs, w, now), 0.001)
	})

	t.Run("no preferred amenities scores zero", func(t *testing.T) {
		t.Parallel()
		assert.InDelta(t, 0, r.Score(prop(nil), rank.Preferences{}, w, now), 0.001)
	})

	t.Run("unrelated amenities add nothing", func(t *testing.T) {
		t.Parallel()
		p := prop(func(p *model.PropertyCandidate) { p.Amenities = []string{"wifi", "pool", "gym"} })
		assert.InDelta(t, 25, r.Score(p, prefs, w, now), 0.001)
	})

	t.Run("each added matching amenity never lowers the score", func(t *testing.T) {
		t.Parallel()
		full := defaultWeights()
		p := prop(func(p *model.PropertyCandidate) { p.Amenities = nil })
		prev := r.Score(p, prefs, full, now)
		for _, am := range prefs.Amenities {
			p.Amenities = append(p.Amenities, am)
			score := r.Score(p, prefs, full, now)
			assert.GreaterOrEqual(t, score, prev, "score dropped after adding %q", am)
			prev = score
		}
		assert.InDelta(t, 100, r.Score(p, prefs, rank.Weights{Amenities: 1}, now), 0.001)
	})
}

func TestScoreBonuses(t *testing.T) {
	t.Parallel()

	r := rank.NewRanker(defaultWeights())
	w := rank.Weights{Freshness: 0.05}

	fresh := prop(func(p *model.PropertyCandidate) { p.CreatedAt = now.Add(-24 * time.Hour) })
	assert.InDelta(t, 0.05*100, r.Score(fresh, rank.Preferences{}, w, now), 0.001)

	stale := prop(nil)
	assert.InDelta(t, 0, r.Score(stale, rank.Preferences{}, w, now), 0.001)

	rating := 4.5
	quality := prop(func(p *model.PropertyCandidate) {
		p.Verified = true
		p.HasImages = true
		p.Rating = &rating
	})
	// verified 3 + images 2 + rating 4.5*2
	assert.InDelta(t, 3+2+9, r.Score(quality, rank.Preferences{}, rank.Weights{}, now), 0.001)
}

func TestRankOrdersAndBreaksTiesByInputOrder(t *testing.T) {
	t.Parallel()

	r := rank.NewRanker(defaultWeights())
	prefs := rank.Preferences{Locations: []string{"molyko"}}
	w := rank.Weights{Location: 1}

	candidates := []model.PropertyCandidate{
		prop(func(p *model.PropertyCandidate) { p.ID = "elsewhere"; p.Location = "bonduma" }),
		prop(func(p *model.PropertyCandidate) { p.ID = "tie-first" }),
		prop(func(p *model.PropertyCandidate) { p.ID = "tie-second" }),
	}

	ranked := r.Rank(candidates, prefs, w, now)
	require.Len(t, ranked, 3)
	assert.Equal(t, "tie-first", ranked[0].Property.ID)
	assert.Equal(t, "tie-second", ranked[1].Property.ID)
	assert.Equal(t, "elsewhere", ranked[2].Property.ID)
}

func TestWeightsAdjust(t *testing.T) {
	t.Parallel()

	base := defaultWeights()

	t.Run("casual user keeps defaults", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, base, base.Adjust(rank.Activity{InteractionsPerDay: 1, SavedCount: 2}))
	})

	t.Run("heavy user shifts freshness into location and amenities", func(t *testing.T) {
		t.Parallel()
		got := base.Adjust(rank.Activity{InteractionsPerDay: 5})
		assert.InDelta(t, base.Freshness-0.03, got.Freshness, 1e-9)
		assert.InDelta(t, base.Location+0.02, got.Location, 1e-9)
		assert.InDelta(t, base.Amenities+0.01, got.Amenities, 1e-9)
	})

	t.Run("big saved list shifts diversity into amenities and type", func(t *testing.T) {
		t.Parallel()
		got := base.Adjust(rank.Activity{SavedCount: 9})
		assert.InDelta(t, base.Diversity-0.05, got.Diversity, 1e-9)
		assert.InDelta(t, base.Amenities+0.03, got.Amenities, 1e-9)
		assert.InDelta(t, base.PropertyType+0.02, got.PropertyType, 1e-9)
	})

	t.Run("adjustment preserves total mass", func(t *testing.T) {
		t.Parallel()
		got := base.Adjust(rank.Activity{InteractionsPerDay: 10, SavedCount: 50})
		sum := got.Location + got.Price + got.PropertyType + got.Amenities + got.Freshness + got.Diversity
		assert.InDelta(t, 1.0, sum, 1e-9)
	})
}

func f(v float64) *float64 { return &v }
