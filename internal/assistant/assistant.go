// Package assistant wires the intent classifier, criteria extractor,
// flow engine, ranker, preference learner and recommender into the
// four operations the message-handling layer consumes: Route, Search,
// Recommend and Learn.
//
// The package also owns the two correctness properties the individual
// components cannot provide on their own: per-user serialization of
// read-modify-write cycles, and fail-soft degradation so no core error
// ever prevents a reply.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

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

// Assistant is the composition root of the conversational core. Safe
// for concurrent use across users; operations for one user are
// serialized internally.
type Assistant struct {
	logger      *slog.Logger
	store       database.Store
	classifier  *intent.Classifier
	extractor   *extract.Extractor
	flowEngine  *flow.Engine
	ranker      *rank.Ranker
	learner     *prefs.Learner
	recommender *recommend.Engine
	cfg         config.AssistantConfig
	locks       *userLocks
}

// New assembles the assistant from its components.
func New(
	logger *slog.Logger,
	store database.Store,
	classifier *intent.Classifier,
	extractor *extract.Extractor,
	flowEngine *flow.Engine,
	ranker *rank.Ranker,
	learner *prefs.Learner,
	recommender *recommend.Engine,
	cfg config.AssistantConfig,
) *Assistant {
	return &Assistant{
		logger:      logger.With("component", "assistant"),
		store:       store,
		classifier:  classifier,
		extractor:   extractor,
		flowEngine:  flowEngine,
		ranker:      ranker,
		learner:     learner,
		recommender: recommender,
		cfg:         cfg,
		locks:       newUserLocks(),
	}
}

// Route advances the user's conversation for one inbound message and
// returns what the caller should render. It never fails: on storage
// trouble it degrades to an unpersisted decision over a fresh
// conversation.
func (a *Assistant) Route(ctx context.Context, userID int64, text string, buttonID string) flow.Decision {
	unlock := a.locks.lock(userID)
	defer unlock()

	now := time.Now().UTC()

	user, err := a.store.EnsureUser(ctx, userID, now)
	if err != nil {
		a.logger.Warn("failed to load user facts, treating as established user",
			"user_id", userID, "error", err)
		user = model.User{ID: userID, CreatedAt: now.Add(-48 * time.Hour), InteractionCount: 100, HasPreferences: true}
	}

	conv, err := a.store.LoadConversation(ctx, userID)
	if err != nil {
		a.logger.Warn("failed to load conversation, starting fresh",
			"user_id", userID, "error", err)
		conv = nil
	}
	if conv == nil {
		conv = model.NewConversation(userID, now)
	}

	if buttonID != "" {
		applyButton(conv, buttonID)
	}

	classified := a.classifier.Classify(text)
	input := flow.NewInput(text, classified)
	decision := a.flowEngine.Determine(user, conv, input, now)

	// Terminal steps complete their flow immediately; a suspended flow
	// resumes in its place and its step is what the user sees next.
	if state, ok := a.flowEngine.StateDef(decision.Flow, decision.Step); ok && state.Terminal {
		if resumed, ok := a.flowEngine.Complete(conv, now); ok {
			a.logger.Debug("resumed interrupted flow",
				"user_id", userID, "flow", resumed.Flow, "step", resumed.Step)
		}
	}

	a.saveConversation(ctx, conv)
	return decision
}

// Search parses the message into criteria, hard-filters the catalog
// against them, and ranks the survivors personalized by the user's
// profile. A catalog failure yields an empty list, which the caller
// renders as "no matches"; it is never an error to the conversation.
func (a *Assistant) Search(ctx context.Context, userID int64, text string) []model.ScoredProperty {
	now := time.Now().UTC()
	criteria := a.extractor.Extract(text)

	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.CatalogTimeout)
	defer cancel()

	candidates, err := a.store.QueryCatalog(fetchCtx, criteria, a.cfg.CandidateLimit)
	if err != nil {
		a.logger.Warn("catalog query failed, returning no matches",
			"user_id", userID, "error", err)
		return nil
	}
	// The store already filters in SQL; re-checking here keeps the
	// hard constraints honored regardless of the catalog backend.
	candidates = rank.FilterCriteria(candidates, criteria)

	profile := a.loadProfileBestEffort(ctx, userID)
	searchPrefs := rank.PreferencesFromCriteria(criteria)
	if profile != nil && !profile.IsEmpty() {
		searchPrefs = searchPrefs.Merge(rank.PreferencesFromProfile(profile))
	}

	weights := a.adjustedWeights(ctx, userID, now)
	ranked := a.ranker.Rank(candidates, searchPrefs, weights, now)
	if len(ranked) > a.cfg.SearchLimit {
		ranked = ranked[:a.cfg.SearchLimit]
	}

	a.recordSearch(userID, text, now)
	return ranked
}

// Recommend returns a diversified personalized list for the user. The
// recommender itself falls back to featured-then-recent listings when
// there is no signal or the catalog is unavailable.
func (a *Assistant) Recommend(ctx context.Context, userID int64, limit int) []model.ScoredProperty {
	if limit <= 0 || limit > a.cfg.RecommendLimit {
		limit = a.cfg.RecommendLimit
	}
	now := time.Now().UTC()

	profile := a.loadProfileBestEffort(ctx, userID)
	weights := a.adjustedWeights(ctx, userID, now)

	fetchCtx, cancel := context.WithTimeout(ctx, a.cfg.CatalogTimeout)
	defer cancel()

	return a.recommender.Recommend(fetchCtx, userID, profile, weights, limit, now)
}

// Learn records the interaction and folds it into the user's
// preference profile. Persistence failures are logged and swallowed;
// the caller's reply must not depend on them.
func (a *Assistant) Learn(ctx context.Context, userID int64, in model.Interaction, prop *model.PropertyCandidate) {
	unlock := a.locks.lock(userID)
	defer unlock()

	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	in.UserID = userID
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}

	if err := a.store.RecordInteraction(ctx, in); err != nil {
		a.logger.Warn("failed to record interaction", "user_id", userID, "action", in.Action, "error", err)
	}

	if err := a.updateProfile(ctx, userID, in, prop); err != nil {
		a.logger.Warn("failed to persist preference profile",
			"user_id", userID, "action", in.Action, "error", err)
	}
}

// ResetPreferences discards everything learned about the user.
func (a *Assistant) ResetPreferences(ctx context.Context, userID int64) error {
	unlock := a.locks.lock(userID)
	defer unlock()

	if err := a.store.DeletePreferenceProfile(ctx, userID); err != nil {
		return fmt.Errorf("failed to reset preferences for user %d: %w", userID, err)
	}
	return nil
}

// Profile returns the user's current preference profile, or an empty
// one when nothing has been learned.
func (a *Assistant) Profile(ctx context.Context, userID int64) *model.PreferenceProfile {
	profile := a.loadProfileBestEffort(ctx, userID)
	if profile == nil {
		profile = model.NewPreferenceProfile(userID)
	}
	return profile
}

// updateProfile applies one learning step with a single retry when the
// profile row moved between read and write.
func (a *Assistant) updateProfile(ctx context.Context, userID int64, in model.Interaction, prop *model.PropertyCandidate) error {
	for attempt := 0; attempt < 2; attempt++ {
		profile, err := a.store.LoadPreferenceProfile(ctx, userID)
		if err != nil {
			return err
		}
		if profile == nil {
			profile = model.NewPreferenceProfile(userID)
		}

		updated := a.learner.Learn(profile, in, prop)
		err = a.store.SavePreferenceProfile(ctx, updated)
		if err == nil {
			return nil
		}
		if !errors.Is(err, database.ErrVersionConflict) {
			return err
		}
		a.logger.Debug("profile version conflict, retrying", "user_id", userID, "attempt", attempt+1)
	}
	return fmt.Errorf("profile for user %d kept moving: %w", userID, database.ErrVersionConflict)
}

func (a *Assistant) saveConversation(ctx context.Context, conv *model.Conversation) {
	err := a.store.SaveConversation(ctx, conv)
	if err == nil {
		return
	}
	if errors.Is(err, database.ErrVersionConflict) {
		// The per-user lock makes this unexpected; a stale in-memory
		// version after a failed earlier save is the usual cause.
		// Reload and graft our state onto the stored version.
		stored, loadErr := a.store.LoadConversation(ctx, conv.UserID)
		if loadErr == nil && stored != nil {
			conv.Version = stored.Version
			err = a.store.SaveConversation(ctx, conv)
		}
	}
	if err != nil {
		a.logger.Warn("failed to persist conversation", "user_id", conv.UserID, "error", err)
	}
}

func (a *Assistant) loadProfileBestEffort(ctx context.Context, userID int64) *model.PreferenceProfile {
	profile, err := a.store.LoadPreferenceProfile(ctx, userID)
	if err != nil {
		a.logger.Warn("failed to load preference profile, scoring without it",
			"user_id", userID, "error", err)
		return nil
	}
	return profile
}

func (a *Assistant) adjustedWeights(ctx context.Context, userID int64, now time.Time) rank.Weights {
	weights := a.ranker.DefaultWeights()
	stats, err := a.store.UserActivity(ctx, userID, now)
	if err != nil {
		a.logger.Debug("failed to load activity stats, using default weights",
			"user_id", userID, "error", err)
		return weights
	}
	return weights.Adjust(rank.Activity{
		InteractionsPerDay: stats.PerDay,
		SavedCount:         stats.SavedCount,
	})
}

// recordSearch appends the search event itself as an interaction,
// fire-and-forget.
func (a *Assistant) recordSearch(userID int64, terms string, now time.Time) {
	in := model.Interaction{
		ID:           uuid.NewString(),
		UserID:       userID,
		Action:       model.ActionSearch,
		Timestamp:    now,
		SearchTerms:  terms,
		SearchMethod: "text",
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.RecordInteraction(ctx, in); err != nil {
		a.logger.Warn("failed to record search interaction", "user_id", userID, "error", err)
	}
}

// applyButton folds a tapped inline button into the conversation
// context so context predicates can see the selection.
func applyButton(conv *model.Conversation, buttonID string) {
	action, propertyID, ok := ParseButton(buttonID)
	if !ok {
		return
	}
	switch action {
	case model.ActionView, model.ActionSave, model.ActionBook, model.ActionContact:
		conv.Context[flow.CtxSelectedProperty] = propertyID
	}
}
