package assistant_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbianda/rentscout/internal/assistant"
	"github.com/mbianda/rentscout/internal/config"
	"github.com/mbianda/rentscout/internal/database"
	"github.com/mbianda/rentscout/internal/extract"
	"github.com/mbianda/rentscout/internal/flow"
	"github.com/mbianda/rentscout/internal/intent"
	"github.com/mbianda/rentscout/internal/model"
	"github.com/mbianda/rentscout/internal/prefs"
	"github.com/mbianda/rentscout/internal/rank"
	"github.com/mbianda/rentscout/internal/recommend"
)

// fakeStore implements database.Store with per-method overrides; any
// method without an override behaves like an empty, healthy database.
type fakeStore struct {
	queryCatalog func(criteria model.SearchCriteria, limit int) ([]model.PropertyCandidate, error)
	loadProfile  func() (*model.PreferenceProfile, error)
	saveProfile  func(profile *model.PreferenceProfile) error
	loadConv     func() (*model.Conversation, error)
	saveConv     func(conv *model.Conversation) error
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) EnsureUser(_ context.Context, userID int64, now time.Time) (model.User, error) {
	return model.User{
		ID:               userID,
		CreatedAt:        now.Add(-30 * 24 * time.Hour),
		InteractionCount: 40,
		HasPreferences:   true,
	}, nil
}

func (f *fakeStore) UserActivity(context.Context, int64, time.Time) (database.InteractionStats, error) {
	return database.InteractionStats{}, nil
}

func (f *fakeStore) LoadConversation(context.Context, int64) (*model.Conversation, error) {
	if f.loadConv != nil {
		return f.loadConv()
	}
	return nil, nil
}

func (f *fakeStore) SaveConversation(_ context.Context, conv *model.Conversation) error {
	if f.saveConv != nil {
		return f.saveConv(conv)
	}
	return nil
}

func (f *fakeStore) LoadPreferenceProfile(context.Context, int64) (*model.PreferenceProfile, error) {
	if f.loadProfile != nil {
		return f.loadProfile()
	}
	return nil, nil
}

func (f *fakeStore) SavePreferenceProfile(_ context.Context, profile *model.PreferenceProfile) error {
	if f.saveProfile != nil {
		return f.saveProfile(profile)
	}
	return nil
}

func (f *fakeStore) DeletePreferenceProfile(context.Context, int64) error { return nil }

func (f *fakeStore) RecordInteraction(context.Context, model.Interaction) error { return nil }

func (f *fakeStore) RecentInteractions(context.Context, int64, []model.Action, int) ([]model.Interaction, error) {
	return nil, nil
}

func (f *fakeStore) QueryCatalog(_ context.Context, criteria model.SearchCriteria, limit int) ([]model.PropertyCandidate, error) {
	if f.queryCatalog != nil {
		return f.queryCatalog(criteria, limit)
	}
	return nil, nil
}

func (f *fakeStore) PropertiesByIDs(context.Context, []string) ([]model.PropertyCandidate, error) {
	return nil, nil
}

func (f *fakeStore) FeaturedProperties(context.Context, int) ([]model.PropertyCandidate, error) {
	return nil, nil
}

func (f *fakeStore) RecentProperties(context.Context, int) ([]model.PropertyCandidate, error) {
	return nil, nil
}

func (f *fakeStore) MarkStaleConversations(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeStore) StaleProfiles(context.Context, time.Time, int) ([]*model.PreferenceProfile, error) {
	return nil, nil
}

func (f *fakeStore) RunSQLMaintenance(context.Context) error { return nil }

func newTestAssistant(store database.Store) *assistant.Assistant {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ranker := rank.NewRanker(rank.Weights{
		Location:     0.30,
		Price:        0.25,
		PropertyType: 0.20,
		Amenities:    0.15,
		Freshness:    0.05,
		Diversity:    0.05,
	})
	cfg := config.AssistantConfig{
		SearchLimit:      10,
		RecommendLimit:   5,
		CandidateLimit:   50,
		HistoryWindow:    20,
		CatalogTimeout:   time.Second,
		FlowStaleAfter:   24 * time.Hour,
		NewUserMaxAge:    24 * time.Hour,
		NewUserMaxEvents: 5,
	}
	flowEngine := flow.NewEngine(log, flow.Options{
		FlowStaleAfter:   cfg.FlowStaleAfter,
		NewUserMaxAge:    cfg.NewUserMaxAge,
		NewUserMaxEvents: cfg.NewUserMaxEvents,
	})
	recommender := recommend.NewEngine(log, store, ranker, recommend.Options{
		HistoryWindow:  cfg.HistoryWindow,
		CandidateLimit: cfg.CandidateLimit,
	})
	return assistant.New(
		log,
		store,
		intent.NewClassifier(),
		extract.NewExtractor(
			[]string{"molyko", "bonduma"},
			[]string{"wifi", "parking"},
			[]string{"apartment", "studio"},
		),
		flowEngine,
		ranker,
		prefs.NewLearner(),
		recommender,
		cfg,
	)
}

func TestSearchDropsCandidatesOutsideHardConstraints(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		// A backend that ignores the price bound entirely.
		queryCatalog: func(model.SearchCriteria, int) ([]model.PropertyCandidate, error) {
			return []model.PropertyCandidate{
				{ID: "fits", Location: "molyko", Price: 75000, PropertyType: "apartment", Bedrooms: 2},
				{ID: "over", Location: "molyko", Price: 85000, PropertyType: "apartment", Bedrooms: 2},
			}, nil
		},
	}
	a := newTestAssistant(store)

	results := a.Search(context.Background(), 7, "apartment in molyko under 80000")

	require.Len(t, results, 1)
	assert.Equal(t, "fits", results[0].Property.ID)
}

func TestLearnRetriesProfileSaveOnVersionConflict(t *testing.T) {
	t.Parallel()

	loads := 0
	var saved []*model.PreferenceProfile
	store := &fakeStore{}
	store.loadProfile = func() (*model.PreferenceProfile, error) {
		loads++
		p := model.NewPreferenceProfile(7)
		p.Version = int64(loads)
		if loads > 1 {
			// State written by the save that won the race.
			p.LocationScores["bonduma"] = 2
		}
		return p, nil
	}
	store.saveProfile = func(p *model.PreferenceProfile) error {
		saved = append(saved, p)
		if len(saved) == 1 {
			return database.ErrVersionConflict
		}
		return nil
	}
	a := newTestAssistant(store)

	a.Learn(context.Background(), 7, model.Interaction{Action: model.ActionSave, PropertyID: "p1"},
		&model.PropertyCandidate{ID: "p1", Location: "molyko", Price: 45000, PropertyType: "apartment"})

	assert.Equal(t, 2, loads)
	require.Len(t, saved, 2)
	// The second attempt must start from the re-read row, not the
	// stale first read.
	assert.Equal(t, int64(2), saved[1].Version)
	assert.Equal(t, 2.0, saved[1].LocationScores["bonduma"])
	assert.Equal(t, 3.0, saved[1].LocationScores["molyko"])
}

func TestRouteReloadsConversationOnVersionConflict(t *testing.T) {
	t.Parallel()

	convLoads := 0
	var savedVersions []int64
	store := &fakeStore{}
	store.loadConv = func() (*model.Conversation, error) {
		convLoads++
		if convLoads == 1 {
			return nil, nil
		}
		stored := model.NewConversation(7, time.Now().UTC())
		stored.Version = 5
		return stored, nil
	}
	store.saveConv = func(conv *model.Conversation) error {
		savedVersions = append(savedVersions, conv.Version)
		if len(savedVersions) == 1 {
			return database.ErrVersionConflict
		}
		return nil
	}
	a := newTestAssistant(store)

	decision := a.Route(context.Background(), 7, "2 bedroom apartment in molyko", "")

	assert.NotEmpty(t, decision.Step)
	assert.Equal(t, 2, convLoads)
	require.Len(t, savedVersions, 2)
	// The retry carries the stored row's version so the write is
	// accepted instead of conflicting forever.
	assert.Equal(t, int64(5), savedVersions[1])
}
