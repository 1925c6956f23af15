// Package config provides configuration loading, validation, and
// defaults for the RentScout assistant. Values come from defaults,
// then config.yaml, then BOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
)

// ErrConfiguration indicates a configuration loading or validation problem.
var ErrConfiguration = errors.New("configuration error")

// Config defines all application configuration parameters.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Vocab     VocabConfig     `mapstructure:"vocabulary"`
	Ranking   RankingConfig   `mapstructure:"ranking"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the chat transport settings. BotInfo is filled
// at startup from GetMe, never from configuration files.
type TelegramConfig struct {
	Token       string       `mapstructure:"token"         validate:"required"`
	AdminUserID int64        `mapstructure:"admin_user_id" validate:"required,gt=0"`
	BotInfo     *models.User `mapstructure:"-"`
}

// DatabaseConfig holds SQLite storage settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// VocabConfig carries the extraction vocabularies. Keeping these in
// configuration lets the same engine be tuned per market without code
// changes.
type VocabConfig struct {
	Locations     []string `mapstructure:"locations"      validate:"min=1"`
	Amenities     []string `mapstructure:"amenities"      validate:"min=1"`
	PropertyTypes []string `mapstructure:"property_types" validate:"min=1"`
}

// RankingConfig carries the default component weights used by the
// ranking engine before per-user adjustment. Weights must sum to 1.
type RankingConfig struct {
	WeightLocation     float64 `mapstructure:"weight_location"      validate:"min=0,max=1"`
	WeightPrice        float64 `mapstructure:"weight_price"         validate:"min=0,max=1"`
	WeightPropertyType float64 `mapstructure:"weight_property_type" validate:"min=0,max=1"`
	WeightAmenities    float64 `mapstructure:"weight_amenities"     validate:"min=0,max=1"`
	WeightFreshness    float64 `mapstructure:"weight_freshness"     validate:"min=0,max=1"`
	WeightDiversity    float64 `mapstructure:"weight_diversity"     validate:"min=0,max=1"`
}

// AssistantConfig bounds the assistant's fetch and result sizes.
type AssistantConfig struct {
	SearchLimit      int           `mapstructure:"search_limit"        validate:"min=1,max=100"`
	RecommendLimit   int           `mapstructure:"recommend_limit"     validate:"min=1,max=100"`
	CandidateLimit   int           `mapstructure:"candidate_limit"     validate:"min=1,max=500"`
	HistoryWindow    int           `mapstructure:"history_window"      validate:"min=1,max=100"`
	CatalogTimeout   time.Duration `mapstructure:"catalog_timeout"     validate:"min=100ms,max=1m"`
	FlowStaleAfter   time.Duration `mapstructure:"flow_stale_after"    validate:"min=1m"`
	NewUserMaxAge    time.Duration `mapstructure:"new_user_max_age"    validate:"min=1m"`
	NewUserMaxEvents int           `mapstructure:"new_user_max_events" validate:"min=0"`
}

// TaskConfig configures one scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// MessagesConfig holds user-facing text templates.
type MessagesConfig struct {
	Welcome        string `mapstructure:"welcome"`
	Help           string `mapstructure:"help"`
	NoMatches      string `mapstructure:"no_matches"`
	GeneralError   string `mapstructure:"general_error"`
	NotAuthorized  string `mapstructure:"not_authorized"`
	AskCriteria    string `mapstructure:"ask_criteria"`
	AskBookingTime string `mapstructure:"ask_booking_time"`
}

// Validate checks the configuration using struct tags plus the
// cross-field rules the tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	sum := c.Ranking.WeightLocation + c.Ranking.WeightPrice + c.Ranking.WeightPropertyType +
		c.Ranking.WeightAmenities + c.Ranking.WeightFreshness + c.Ranking.WeightDiversity
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("%w: ranking weights must sum to 1, got %.3f", ErrConfiguration, sum)
	}

	return nil
}
