// Package model defines the core domain value types shared by the
// conversation, extraction, ranking and preference-learning components.
package model

import "time"

// Flow identifies a top-level conversational task.
type Flow string

const (
	FlowOnboarding     Flow = "onboarding"
	FlowPropertySearch Flow = "property_search"
	FlowBooking        Flow = "booking"
	FlowPreferences    Flow = "preferences"
	FlowHelp           Flow = "help"
)

// Intent is the classified purpose of an inbound message.
type Intent string

const (
	IntentGreeting         Intent = "greeting"
	IntentSearchProperty   Intent = "search_property"
	IntentBookTour         Intent = "book_tour"
	IntentHelp             Intent = "help"
	IntentPreferenceUpdate Intent = "preference_update"
	IntentInfoRequest      Intent = "info_request"
)

// Action is the kind of user interaction recorded against a property.
type Action string

const (
	ActionView    Action = "view"
	ActionSave    Action = "save"
	ActionBook    Action = "book"
	ActionContact Action = "contact"
	ActionShare   Action = "share"
	ActionSearch  Action = "search"
	ActionSkip    Action = "skip"
	ActionUnsave  Action = "unsave"
)

// FlowRef is a {flow, step} pair, used for the interrupted-flow stack
// and for flow history entries.
type FlowRef struct {
	Flow Flow   `json:"flow"`
	Step string `json:"step"`
}

// StepRecord is one entry in a conversation's auditable step history.
type StepRecord struct {
	Flow      Flow      `json:"flow"`
	FromStep  string    `json:"from_step"`
	ToStep    string    `json:"to_step"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the per-user session state. CurrentFlow and
// CurrentStep are both empty when no flow is active; when a flow is
// active, CurrentStep is always one of the states declared for that
// flow.
type Conversation struct {
	UserID           int64          `json:"user_id"`
	CurrentFlow      Flow           `json:"current_flow"`
	CurrentStep      string         `json:"current_step"`
	Context          map[string]any `json:"context"`
	FlowHistory      []FlowRef      `json:"flow_history"`
	StepHistory      []StepRecord   `json:"step_history"`
	InterruptedFlows []FlowRef      `json:"interrupted_flows"`
	CompletedFlows   []Flow         `json:"completed_flows"`
	Ended            bool           `json:"ended"`
	LastActivityAt   time.Time      `json:"last_activity_at"`
	Version          int64          `json:"-"`
}

// NewConversation returns an empty conversation for a user with no
// active flow.
func NewConversation(userID int64, now time.Time) *Conversation {
	return &Conversation{
		UserID:         userID,
		Context:        make(map[string]any),
		LastActivityAt: now,
	}
}

// SearchCriteria is the structured form of a free-text property query.
// A nil pointer field means "unconstrained", never zero.
type SearchCriteria struct {
	Location     *string
	PriceMin     *float64
	PriceMax     *float64
	Bedrooms     *int
	PropertyType *string
	Amenities    []string
}

// IsEmpty reports whether no field of the criteria is constrained.
func (c SearchCriteria) IsEmpty() bool {
	return c.Location == nil && c.PriceMin == nil && c.PriceMax == nil &&
		c.Bedrooms == nil && c.PropertyType == nil && len(c.Amenities) == 0
}

// PropertyCandidate is a read-only projection of a catalog listing.
// The core only derives scores from it and never mutates it.
type PropertyCandidate struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Location     string    `db:"location"`
	Price        float64   `db:"price"`
	PropertyType string    `db:"property_type"`
	Bedrooms     int       `db:"bedrooms"`
	Amenities    []string  `db:"-"`
	CreatedAt    time.Time `db:"created_at"`
	Verified     bool      `db:"verified"`
	HasImages    bool      `db:"has_images"`
	Rating       *float64  `db:"rating"`
	Featured     bool      `db:"featured"`
}

// ScoredProperty pairs a candidate with its computed ranking score.
type ScoredProperty struct {
	Property PropertyCandidate
	Score    float64
}

// PreferenceProfile is the per-user learned state. Every score is
// non-negative and, after normalization, bounded by the score ceiling.
type PreferenceProfile struct {
	UserID                         int64              `json:"user_id"`
	LocationScores                 map[string]float64 `json:"location_scores"`
	PropertyTypeScores             map[string]float64 `json:"property_type_scores"`
	AmenityScores                  map[string]float64 `json:"amenity_scores"`
	PriceRangeScores               map[string]float64 `json:"price_range_scores"`
	AveragePreferredPrice          float64            `json:"average_preferred_price"`
	TotalWeightedPriceInteractions float64            `json:"total_weighted_price_interactions"`
	LastUpdatedAt                  time.Time          `json:"last_updated_at"`
	Version                        int64              `json:"-"`
}

// NewPreferenceProfile returns an empty profile for a user.
func NewPreferenceProfile(userID int64) *PreferenceProfile {
	return &PreferenceProfile{
		UserID:             userID,
		LocationScores:     make(map[string]float64),
		PropertyTypeScores: make(map[string]float64),
		AmenityScores:      make(map[string]float64),
		PriceRangeScores:   make(map[string]float64),
	}
}

// IsEmpty reports whether the profile carries no learned signal yet.
func (p *PreferenceProfile) IsEmpty() bool {
	return len(p.LocationScores) == 0 && len(p.PropertyTypeScores) == 0 &&
		len(p.AmenityScores) == 0 && len(p.PriceRangeScores) == 0 &&
		p.TotalWeightedPriceInteractions == 0
}

// Clone returns a deep copy of the profile. The learner operates on
// copies so concurrent readers never observe a half-updated profile.
func (p *PreferenceProfile) Clone() *PreferenceProfile {
	out := &PreferenceProfile{
		UserID:                         p.UserID,
		LocationScores:                 make(map[string]float64, len(p.LocationScores)),
		PropertyTypeScores:             make(map[string]float64, len(p.PropertyTypeScores)),
		AmenityScores:                  make(map[string]float64, len(p.AmenityScores)),
		PriceRangeScores:               make(map[string]float64, len(p.PriceRangeScores)),
		AveragePreferredPrice:          p.AveragePreferredPrice,
		TotalWeightedPriceInteractions: p.TotalWeightedPriceInteractions,
		LastUpdatedAt:                  p.LastUpdatedAt,
		Version:                        p.Version,
	}
	for k, v := range p.LocationScores {
		out.LocationScores[k] = v
	}
	for k, v := range p.PropertyTypeScores {
		out.PropertyTypeScores[k] = v
	}
	for k, v := range p.AmenityScores {
		out.AmenityScores[k] = v
	}
	for k, v := range p.PriceRangeScores {
		out.PriceRangeScores[k] = v
	}
	return out
}

// Interaction is an immutable record of one user action. Consumed once
// by the preference learner, then kept for audit only.
type Interaction struct {
	ID           string    `db:"id"`
	UserID       int64     `db:"user_id"`
	PropertyID   string    `db:"property_id"`
	Action       Action    `db:"action"`
	Timestamp    time.Time `db:"timestamp"`
	SearchTerms  string    `db:"search_terms"`
	SearchMethod string    `db:"search_method"`
}

// User carries the account facts the flow engine needs to classify a
// user as new.
type User struct {
	ID               int64
	CreatedAt        time.Time
	InteractionCount int
	HasPreferences   bool
}
