package rank_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mbianda/rentscout/internal/model"
	"github.com/mbianda/rentscout/internal/rank"
)

func TestMatchesCriteria(t *testing.T) {
	t.Parallel()

	base := prop(nil) // molyko, 50000, apartment, 2br, wifi+parking

	tests := []struct {
		name     string
		criteria model.SearchCriteria
		mutate   func(*model.PropertyCandidate)
		want     bool
	}{
		{name: "empty criteria matches all", want: true},
		{name: "location substring", criteria: model.SearchCriteria{Location: sp("molyko")}, want: true},
		{
			name:     "location containment",
			criteria: model.SearchCriteria{Location: sp("molyko")},
			mutate:   func(p *model.PropertyCandidate) { p.Location = "Molyko Central" },
			want:     true,
		},
		{name: "wrong location", criteria: model.SearchCriteria{Location: sp("bonduma")}, want: false},
		{name: "inside price band", criteria: model.SearchCriteria{PriceMin: f(40000), PriceMax: f(60000)}, want: true},
		{
			// A near miss is still a miss: the band is a hard bound.
			name:     "just over max",
			criteria: model.SearchCriteria{PriceMax: f(80000)},
			mutate:   func(p *model.PropertyCandidate) { p.Price = 85000 },
			want:     false,
		},
		{
			name:     "under min",
			criteria: model.SearchCriteria{PriceMin: f(60000)},
			want:     false,
		},
		{name: "exact bedrooms", criteria: model.SearchCriteria{Bedrooms: ip(2)}, want: true},
		{name: "bedrooms off by one", criteria: model.SearchCriteria{Bedrooms: ip(3)}, want: false},
		{name: "type case-insensitive", criteria: model.SearchCriteria{PropertyType: sp("Apartment")}, want: true},
		{name: "wrong type", criteria: model.SearchCriteria{PropertyType: sp("studio")}, want: false},
		{name: "amenity subset", criteria: model.SearchCriteria{Amenities: []string{"wifi"}}, want: true},
		{name: "all amenities required", criteria: model.SearchCriteria{Amenities: []string{"wifi", "generator"}}, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := base
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			assert.Equal(t, tt.want, rank.MatchesCriteria(p, tt.criteria))
		})
	}
}

func TestDiversify(t *testing.T) {
	t.Parallel()

	t.Run("caps per location", func(t *testing.T) {
		t.Parallel()
		var sorted []model.ScoredProperty
		for i := 0; i < 6; i++ {
			loc := "molyko"
			if i >= 4 {
				loc = "bonduma"
			}
			sorted = append(sorted, scored(fmt.Sprintf("p%d", i), loc, "apartment"))
		}

		out := rank.Diversify(sorted)
		counts := map[string]int{}
		for _, sp := range out {
			counts[sp.Property.Location]++
		}
		assert.Equal(t, 3, counts["molyko"])
		assert.Equal(t, 2, counts["bonduma"])
	})

	t.Run("caps per property type", func(t *testing.T) {
		t.Parallel()
		var sorted []model.ScoredProperty
		for i := 0; i < 8; i++ {
			sorted = append(sorted, scored(fmt.Sprintf("p%d", i), fmt.Sprintf("loc%d", i), "studio"))
		}

		out := rank.Diversify(sorted)
		assert.Len(t, out, 4)
	})

	t.Run("caps batch at twenty", func(t *testing.T) {
		t.Parallel()
		var sorted []model.ScoredProperty
		for i := 0; i < 40; i++ {
			sorted = append(sorted, scored(fmt.Sprintf("p%d", i), fmt.Sprintf("loc%d", i), fmt.Sprintf("type%d", i)))
		}

		out := rank.Diversify(sorted)
		assert.Len(t, out, 20)
	})

	t.Run("keeps order and skips over-cap entries", func(t *testing.T) {
		t.Parallel()
		sorted := []model.ScoredProperty{
			scored("a", "molyko", "t1"),
			scored("b", "molyko", "t2"),
			scored("c", "molyko", "t3"),
			scored("d", "molyko", "t4"), // over the location cap
			scored("e", "bonduma", "t5"),
		}

		out := rank.Diversify(sorted)
		ids := make([]string, 0, len(out))
		for _, sp := range out {
			ids = append(ids, sp.Property.ID)
		}
		assert.Equal(t, []string{"a", "b", "c", "e"}, ids)
	})
}

func scored(id, location, propertyType string) model.ScoredProperty {
	return model.ScoredProperty{Property: model.PropertyCandidate{
		ID:           id,
		Location:     location,
		PropertyType: propertyType,
	}}
}

func sp(s string) *string { return &s }
func ip(i int) *int       { return &i }
