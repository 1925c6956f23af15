package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mbianda/rentscout/internal/model"
)

// ErrVersionConflict is returned by Save* methods when the stored row
// moved since it was read. Callers retry with a fresh read.
var ErrVersionConflict = errors.New("version conflict")

// InteractionStats summarizes a user's engagement for weight
// adjustment.
type InteractionStats struct {
	Total      int
	SavedCount int
	PerDay     float64
}

// Store defines the data access contract of the assistant core. Every
// method accepts a context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// EnsureUser records the user's first-seen time if needed and
	// returns the facts the flow engine needs about the account.
	EnsureUser(ctx context.Context, userID int64, now time.Time) (model.User, error)

	// UserActivity summarizes how active a user has been.
	UserActivity(ctx context.Context, userID int64, now time.Time) (InteractionStats, error)

	// LoadConversation returns the user's conversation, or nil when
	// none exists yet.
	LoadConversation(ctx context.Context, userID int64) (*model.Conversation, error)

	// SaveConversation inserts or updates a conversation with
	// optimistic concurrency on its version.
	SaveConversation(ctx context.Context, conv *model.Conversation) error

	// LoadPreferenceProfile returns the user's profile, or nil when
	// none exists yet.
	LoadPreferenceProfile(ctx context.Context, userID int64) (*model.PreferenceProfile, error)

	// SavePreferenceProfile inserts or updates a profile with
	// optimistic concurrency on its version.
	SavePreferenceProfile(ctx context.Context, profile *model.PreferenceProfile) error

	// DeletePreferenceProfile removes a user's learned profile.
	DeletePreferenceProfile(ctx context.Context, userID int64) error

	// RecordInteraction appends one immutable interaction event.
	RecordInteraction(ctx context.Context, in model.Interaction) error

	// RecentInteractions returns the user's most recent interactions
	// restricted to the given actions, newest first.
	RecentInteractions(ctx context.Context, userID int64, actions []model.Action, limit int) ([]model.Interaction, error)

	// QueryCatalog returns candidate listings matching the criteria's
	// hard constraints, in stable catalog order (newest first).
	QueryCatalog(ctx context.Context, criteria model.SearchCriteria, limit int) ([]model.PropertyCandidate, error)

	// PropertiesByIDs returns the listings with the given ids; missing
	// ids are silently skipped.
	PropertiesByIDs(ctx context.Context, ids []string) ([]model.PropertyCandidate, error)

	// FeaturedProperties returns up to limit featured listings.
	FeaturedProperties(ctx context.Context, limit int) ([]model.PropertyCandidate, error)

	// RecentProperties returns up to limit most recently created
	// listings.
	RecentProperties(ctx context.Context, limit int) ([]model.PropertyCandidate, error)

	// MarkStaleConversations flags conversations idle since before
	// cutoff as ended, returning how many were flagged.
	MarkStaleConversations(ctx context.Context, cutoff time.Time) (int64, error)

	// StaleProfiles returns profiles not updated since before cutoff.
	StaleProfiles(ctx context.Context, cutoff time.Time, limit int) ([]*model.PreferenceProfile, error)

	// RunSQLMaintenance performs database maintenance such as VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) EnsureUser(ctx context.Context, userID int64, now time.Time) (model.User, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, created_at) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`,
		userID, now.UTC())
	if err != nil {
		return model.User{}, fmt.Errorf("failed to ensure user %d: %w", userID, err)
	}

	var row userRow
	if err := s.db.GetContext(ctx, &row, `SELECT id, created_at FROM users WHERE id = ?`, userID); err != nil {
		return model.User{}, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	var interactionCount int
	if err := s.db.GetContext(ctx, &interactionCount,
		`SELECT COUNT(*) FROM interactions WHERE user_id = ?`, userID); err != nil {
		return model.User{}, fmt.Errorf("failed to count interactions for user %d: %w", userID, err)
	}

	var profileCount int
	if err := s.db.GetContext(ctx, &profileCount,
		`SELECT COUNT(*) FROM preference_profiles WHERE user_id = ?`, userID); err != nil {
		return model.User{}, fmt.Errorf("failed to check profile for user %d: %w", userID, err)
	}

	return model.User{
		ID:               row.ID,
		CreatedAt:        row.CreatedAt,
		InteractionCount: interactionCount,
		HasPreferences:   profileCount > 0,
	}, nil
}

func (s *sqlxStore) UserActivity(ctx context.Context, userID int64, now time.Time) (InteractionStats, error) {
	stats := InteractionStats{}

	if err := s.db.GetContext(ctx, &stats.Total,
		`SELECT COUNT(*) FROM interactions WHERE user_id = ?`, userID); err != nil {
		return stats, fmt.Errorf("failed to count interactions: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.SavedCount,
		`SELECT COUNT(*) FROM interactions WHERE user_id = ? AND action = ?`,
		userID, string(model.ActionSave)); err != nil {
		return stats, fmt.Errorf("failed to count saves: %w", err)
	}

	if stats.Total > 0 {
		var first time.Time
		if err := s.db.GetContext(ctx, &first,
			`SELECT MIN(timestamp) FROM interactions WHERE user_id = ?`, userID); err != nil {
			return stats, fmt.Errorf("failed to find first interaction: %w", err)
		}
		days := now.Sub(first).Hours() / 24
		if days < 1 {
			days = 1
		}
		stats.PerDay = float64(stats.Total) / days
	}

	return stats, nil
}

func (s *sqlxStore) LoadConversation(ctx context.Context, userID int64) (*model.Conversation, error) {
	var row conversationRow
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, current_flow, current_step, context, flow_history,
		       step_history, interrupted_flows, completed_flows, ended,
		       last_activity_at, version, created_at, updated_at
		FROM conversations WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation for user %d: %w", userID, err)
	}
	return row.toModel()
}

func (s *sqlxStore) SaveConversation(ctx context.Context, conv *model.Conversation) error {
	if conv == nil {
		return errors.New("cannot save nil conversation")
	}

	now := time.Now().UTC()
	row, err := newConversationRow(conv, now)
	if err != nil {
		return err
	}

	if conv.Version == 0 {
		row.Version = 1
		row.CreatedAt = now
		_, err := s.db.NamedExecContext(ctx, `
			INSERT INTO conversations (user_id, current_flow, current_step, context,
				flow_history, step_history, interrupted_flows, completed_flows,
				ended, last_activity_at, version, created_at, updated_at)
			VALUES (:user_id, :current_flow, :current_step, :context,
				:flow_history, :step_history, :interrupted_flows, :completed_flows,
				:ended, :last_activity_at, :version, :created_at, :updated_at)`, row)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("conversation for user %d already exists: %w", conv.UserID, ErrVersionConflict)
			}
			return fmt.Errorf("failed to insert conversation for user %d: %w", conv.UserID, err)
		}
		conv.Version = 1
		return nil
	}

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE conversations SET
			current_flow = :current_flow, current_step = :current_step,
			context = :context, flow_history = :flow_history,
			step_history = :step_history, interrupted_flows = :interrupted_flows,
			completed_flows = :completed_flows, ended = :ended,
			last_activity_at = :last_activity_at, version = :version + 1,
			updated_at = :updated_at
		WHERE user_id = :user_id AND version = :version`, row)
	if err != nil {
		return fmt.Errorf("failed to update conversation for user %d: %w", conv.UserID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("conversation for user %d moved underneath us: %w", conv.UserID, ErrVersionConflict)
	}
	conv.Version++
	return nil
}

func (s *sqlxStore) LoadPreferenceProfile(ctx context.Context, userID int64) (*model.PreferenceProfile, error) {
	var row profileRow
	err := s.db.GetContext(ctx, &row, `
		SELECT user_id, location_scores, property_type_scores, amenity_scores,
		       price_range_scores, average_preferred_price,
		       total_weighted_price_interactions, last_updated_at, version,
		       created_at, updated_at
		FROM preference_profiles WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for user %d: %w", userID, err)
	}
	return row.toModel()
}

func (s *sqlxStore) SavePreferenceProfile(ctx context.Context, profile *model.PreferenceProfile) error {
	if profile == nil {
		return errors.New("cannot save nil profile")
	}

	now := time.Now().UTC()
	row, err := newProfileRow(profile, now)
	if err != nil {
		return err
	}

	if profile.Version == 0 {
		row.Version = 1
		row.CreatedAt = now
		_, err := s.db.NamedExecContext(ctx, `
			INSERT INTO preference_profiles (user_id, location_scores,
				property_type_scores, amenity_scores, price_range_scores,
				average_preferred_price, total_weighted_price_interactions,
				last_updated_at, version, created_at, updated_at)
			VALUES (:user_id, :location_scores, :property_type_scores,
				:amenity_scores, :price_range_scores, :average_preferred_price,
				:total_weighted_price_interactions, :last_updated_at, :version,
				:created_at, :updated_at)`, row)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("profile for user %d already exists: %w", profile.UserID, ErrVersionConflict)
			}
			return fmt.Errorf("failed to insert profile for user %d: %w", profile.UserID, err)
		}
		profile.Version = 1
		return nil
	}

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE preference_profiles SET
			location_scores = :location_scores,
			property_type_scores = :property_type_scores,
			amenity_scores = :amenity_scores,
			price_range_scores = :price_range_scores,
			average_preferred_price = :average_preferred_price,
			total_weighted_price_interactions = :total_weighted_price_interactions,
			last_updated_at = :last_updated_at, version = :version + 1,
			updated_at = :updated_at
		WHERE user_id = :user_id AND version = :version`, row)
	if err != nil {
		return fmt.Errorf("failed to update profile for user %d: %w", profile.UserID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("profile for user %d moved underneath us: %w", profile.UserID, ErrVersionConflict)
	}
	profile.Version++
	return nil
}

func (s *sqlxStore) DeletePreferenceProfile(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM preference_profiles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete profile for user %d: %w", userID, err)
	}
	return nil
}

func (s *sqlxStore) RecordInteraction(ctx context.Context, in model.Interaction) error {
	row := interactionRow{
		ID:           in.ID,
		UserID:       in.UserID,
		PropertyID:   in.PropertyID,
		Action:       string(in.Action),
		Timestamp:    in.Timestamp.UTC(),
		SearchTerms:  in.SearchTerms,
		SearchMethod: in.SearchMethod,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO interactions (id, user_id, property_id, action, timestamp,
			search_terms, search_method, created_at)
		VALUES (:id, :user_id, :property_id, :action, :timestamp,
			:search_terms, :search_method, :created_at)`, row)
	if err != nil {
		return fmt.Errorf("failed to record interaction %s: %w", in.ID, err)
	}
	return nil
}

func (s *sqlxStore) RecentInteractions(ctx context.Context, userID int64, actions []model.Action, limit int) ([]model.Interaction, error) {
	query := `SELECT id, user_id, property_id, action, timestamp, search_terms,
	                 search_method, created_at
	          FROM interactions WHERE user_id = ?`
	args := []any{userID}

	if len(actions) > 0 {
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = string(a)
		}
		inQuery, inArgs, err := sqlx.In(` AND action IN (?)`, names)
		if err != nil {
			return nil, fmt.Errorf("failed to build action filter: %w", err)
		}
		query += inQuery
		args = append(args, inArgs...)
	}

	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	var rows []interactionRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load recent interactions for user %d: %w", userID, err)
	}

	out := make([]model.Interaction, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out, nil
}

func (s *sqlxStore) QueryCatalog(ctx context.Context, criteria model.SearchCriteria, limit int) ([]model.PropertyCandidate, error) {
	query := `SELECT id, title, location, price, property_type, bedrooms,
	                 amenities, created_at, verified, has_images, rating, featured
	          FROM properties WHERE 1=1`
	var args []any

	if criteria.Location != nil {
		query += ` AND LOWER(location) LIKE ?`
		args = append(args, "%"+strings.ToLower(*criteria.Location)+"%")
	}
	if criteria.PriceMin != nil {
		query += ` AND price >= ?`
		args = append(args, *criteria.PriceMin)
	}
	if criteria.PriceMax != nil {
		query += ` AND price <= ?`
		args = append(args, *criteria.PriceMax)
	}
	if criteria.Bedrooms != nil {
		query += ` AND bedrooms = ?`
		args = append(args, *criteria.Bedrooms)
	}
	if criteria.PropertyType != nil {
		query += ` AND LOWER(property_type) = ?`
		args = append(args, strings.ToLower(*criteria.PropertyType))
	}

	query += ` ORDER BY created_at DESC, id ASC LIMIT ?`
	args = append(args, limit)

	var rows []propertyRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}

	out := make([]model.PropertyCandidate, 0, len(rows))
	for i := range rows {
		prop, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		// Amenity containment is checked here rather than in SQL; the
		// amenities column is a JSON array.
		if !hasAllAmenities(prop, criteria.Amenities) {
			continue
		}
		out = append(out, prop)
	}
	return out, nil
}

func hasAllAmenities(prop model.PropertyCandidate, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	have := make(map[string]bool, len(prop.Amenities))
	for _, am := range prop.Amenities {
		have[strings.ToLower(strings.TrimSpace(am))] = true
	}
	for _, am := range wanted {
		if !have[strings.ToLower(strings.TrimSpace(am))] {
			return false
		}
	}
	return true
}

func (s *sqlxStore) PropertiesByIDs(ctx context.Context, ids []string) ([]model.PropertyCandidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, title, location, price, property_type, bedrooms,
		       amenities, created_at, verified, has_images, rating, featured
		FROM properties WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build id query: %w", err)
	}

	var rows []propertyRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load properties by ids: %w", err)
	}
	return rowsToModels(rows)
}

func (s *sqlxStore) FeaturedProperties(ctx context.Context, limit int) ([]model.PropertyCandidate, error) {
	var rows []propertyRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, title, location, price, property_type, bedrooms,
		       amenities, created_at, verified, has_images, rating, featured
		FROM properties WHERE featured = 1
		ORDER BY created_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load featured properties: %w", err)
	}
	return rowsToModels(rows)
}

func (s *sqlxStore) RecentProperties(ctx context.Context, limit int) ([]model.PropertyCandidate, error) {
	var rows []propertyRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, title, location, price, property_type, bedrooms,
		       amenities, created_at, verified, has_images, rating, featured
		FROM properties
		ORDER BY created_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent properties: %w", err)
	}
	return rowsToModels(rows)
}

func (s *sqlxStore) MarkStaleConversations(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET ended = 1, version = version + 1, updated_at = ?
		WHERE ended = 0 AND last_activity_at < ?`,
		time.Now().UTC(), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale conversations: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected, nil
}

func (s *sqlxStore) StaleProfiles(ctx context.Context, cutoff time.Time, limit int) ([]*model.PreferenceProfile, error) {
	var rows []profileRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT user_id, location_scores, property_type_scores, amenity_scores,
		       price_range_scores, average_preferred_price,
		       total_weighted_price_interactions, last_updated_at, version,
		       created_at, updated_at
		FROM preference_profiles WHERE last_updated_at < ?
		ORDER BY last_updated_at ASC LIMIT ?`, cutoff.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load stale profiles: %w", err)
	}

	out := make([]*model.PreferenceProfile, 0, len(rows))
	for i := range rows {
		profile, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, profile)
	}
	return out, nil
}

func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `ANALYZE`); err != nil {
		return fmt.Errorf("failed to analyze database: %w", err)
	}
	return nil
}

func rowsToModels(rows []propertyRow) ([]model.PropertyCandidate, error) {
	out := make([]model.PropertyCandidate, 0, len(rows))
	for i := range rows {
		prop, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, prop)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}
