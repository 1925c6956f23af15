package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mbianda/rentscout/internal/model"
)

// conversationRow is the persisted shape of a model.Conversation. The
// open-ended parts (context, histories, interrupted stack) are stored
// as JSON columns.
type conversationRow struct {
	UserID           int64     `db:"user_id"`
	CurrentFlow      string    `db:"current_flow"`
	CurrentStep      string    `db:"current_step"`
	Context          []byte    `db:"context"`
	FlowHistory      []byte    `db:"flow_history"`
	StepHistory      []byte    `db:"step_history"`
	InterruptedFlows []byte    `db:"interrupted_flows"`
	CompletedFlows   []byte    `db:"completed_flows"`
	Ended            bool      `db:"ended"`
	LastActivityAt   time.Time `db:"last_activity_at"`
	Version          int64     `db:"version"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func newConversationRow(c *model.Conversation, now time.Time) (*conversationRow, error) {
	contextJSON, err := json.Marshal(c.Context)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation context: %w", err)
	}
	flowHistory, err := json.Marshal(c.FlowHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flow history: %w", err)
	}
	stepHistory, err := json.Marshal(c.StepHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal step history: %w", err)
	}
	interrupted, err := json.Marshal(c.InterruptedFlows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal interrupted flows: %w", err)
	}
	completed, err := json.Marshal(c.CompletedFlows)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completed flows: %w", err)
	}

	return &conversationRow{
		UserID:           c.UserID,
		CurrentFlow:      string(c.CurrentFlow),
		CurrentStep:      c.CurrentStep,
		Context:          contextJSON,
		FlowHistory:      flowHistory,
		StepHistory:      stepHistory,
		InterruptedFlows: interrupted,
		CompletedFlows:   completed,
		Ended:            c.Ended,
		LastActivityAt:   c.LastActivityAt.UTC(),
		Version:          c.Version,
		UpdatedAt:        now,
	}, nil
}

func (r *conversationRow) toModel() (*model.Conversation, error) {
	c := &model.Conversation{
		UserID:         r.UserID,
		CurrentFlow:    model.Flow(r.CurrentFlow),
		CurrentStep:    r.CurrentStep,
		Ended:          r.Ended,
		LastActivityAt: r.LastActivityAt,
		Version:        r.Version,
		Context:        make(map[string]any),
	}
	if len(r.Context) > 0 {
		if err := json.Unmarshal(r.Context, &c.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversation context: %w", err)
		}
	}
	if len(r.FlowHistory) > 0 {
		if err := json.Unmarshal(r.FlowHistory, &c.FlowHistory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flow history: %w", err)
		}
	}
	if len(r.StepHistory) > 0 {
		if err := json.Unmarshal(r.StepHistory, &c.StepHistory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step history: %w", err)
		}
	}
	if len(r.InterruptedFlows) > 0 {
		if err := json.Unmarshal(r.InterruptedFlows, &c.InterruptedFlows); err != nil {
			return nil, fmt.Errorf("failed to unmarshal interrupted flows: %w", err)
		}
	}
	if len(r.CompletedFlows) > 0 {
		if err := json.Unmarshal(r.CompletedFlows, &c.CompletedFlows); err != nil {
			return nil, fmt.Errorf("failed to unmarshal completed flows: %w", err)
		}
	}
	return c, nil
}

// profileRow is the persisted shape of a model.PreferenceProfile with
// the four score maps stored as JSON columns.
type profileRow struct {
	UserID             int64     `db:"user_id"`
	LocationScores     []byte    `db:"location_scores"`
	PropertyTypeScores []byte    `db:"property_type_scores"`
	AmenityScores      []byte    `db:"amenity_scores"`
	PriceRangeScores   []byte    `db:"price_range_scores"`
	AveragePrice       float64   `db:"average_preferred_price"`
	TotalPriceWeight   float64   `db:"total_weighted_price_interactions"`
	LastUpdatedAt      time.Time `db:"last_updated_at"`
	Version            int64     `db:"version"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func newProfileRow(p *model.PreferenceProfile, now time.Time) (*profileRow, error) {
	locations, err := json.Marshal(p.LocationScores)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal location scores: %w", err)
	}
	types, err := json.Marshal(p.PropertyTypeScores)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal property type scores: %w", err)
	}
	amenities, err := json.Marshal(p.AmenityScores)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal amenity scores: %w", err)
	}
	priceRanges, err := json.Marshal(p.PriceRangeScores)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal price range scores: %w", err)
	}

	return &profileRow{
		UserID:             p.UserID,
		LocationScores:     locations,
		PropertyTypeScores: types,
		AmenityScores:      amenities,
		PriceRangeScores:   priceRanges,
		AveragePrice:       p.AveragePreferredPrice,
		TotalPriceWeight:   p.TotalWeightedPriceInteractions,
		LastUpdatedAt:      p.LastUpdatedAt.UTC(),
		Version:            p.Version,
		UpdatedAt:          now,
	}, nil
}

func (r *profileRow) toModel() (*model.PreferenceProfile, error) {
	p := model.NewPreferenceProfile(r.UserID)
	p.AveragePreferredPrice = r.AveragePrice
	p.TotalWeightedPriceInteractions = r.TotalPriceWeight
	p.LastUpdatedAt = r.LastUpdatedAt
	p.Version = r.Version

	for _, col := range []struct {
		data []byte
		dst  *map[string]float64
	}{
		{r.LocationScores, &p.LocationScores},
		{r.PropertyTypeScores, &p.PropertyTypeScores},
		{r.AmenityScores, &p.AmenityScores},
		{r.PriceRangeScores, &p.PriceRangeScores},
	} {
		if len(col.data) == 0 {
			continue
		}
		if err := json.Unmarshal(col.data, col.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profile scores: %w", err)
		}
	}
	return p, nil
}

// propertyRow is the persisted catalog listing. Amenities are a JSON
// array column.
type propertyRow struct {
	ID           string          `db:"id"`
	Title        string          `db:"title"`
	Location     string          `db:"location"`
	Price        float64         `db:"price"`
	PropertyType string          `db:"property_type"`
	Bedrooms     int             `db:"bedrooms"`
	Amenities    []byte          `db:"amenities"`
	CreatedAt    time.Time       `db:"created_at"`
	Verified     bool            `db:"verified"`
	HasImages    bool            `db:"has_images"`
	Rating       sql.NullFloat64 `db:"rating"`
	Featured     bool            `db:"featured"`
}

func (r *propertyRow) toModel() (model.PropertyCandidate, error) {
	p := model.PropertyCandidate{
		ID:           r.ID,
		Title:        r.Title,
		Location:     r.Location,
		Price:        r.Price,
		PropertyType: r.PropertyType,
		Bedrooms:     r.Bedrooms,
		CreatedAt:    r.CreatedAt,
		Verified:     r.Verified,
		HasImages:    r.HasImages,
		Featured:     r.Featured,
	}
	if r.Rating.Valid {
		rating := r.Rating.Float64
		p.Rating = &rating
	}
	if len(r.Amenities) > 0 {
		if err := json.Unmarshal(r.Amenities, &p.Amenities); err != nil {
			return model.PropertyCandidate{}, fmt.Errorf("failed to unmarshal amenities for property %s: %w", r.ID, err)
		}
	}
	return p, nil
}

// interactionRow is the persisted immutable interaction event.
type interactionRow struct {
	ID           string    `db:"id"`
	UserID       int64     `db:"user_id"`
	PropertyID   string    `db:"property_id"`
	Action       string    `db:"action"`
	Timestamp    time.Time `db:"timestamp"`
	SearchTerms  string    `db:"search_terms"`
	SearchMethod string    `db:"search_method"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r *interactionRow) toModel() model.Interaction {
	return model.Interaction{
		ID:           r.ID,
		UserID:       r.UserID,
		PropertyID:   r.PropertyID,
		Action:       model.Action(r.Action),
		Timestamp:    r.Timestamp,
		SearchTerms:  r.SearchTerms,
		SearchMethod: r.SearchMethod,
	}
}

// userRow records when a user was first seen.
type userRow struct {
	ID        int64     `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}
