package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads and validates configuration from, in order of precedence:
//  1. BOT_* environment variables
//  2. a config.yaml file (optional)
//  3. built-in defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, everything can come from
		// defaults and environment variables.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !strings.Contains(err.Error(), "no such file") {
				return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	v.SetDefault("database.path", "rentscout.db")

	// Vocabulary defaults cover the Buea rental market the assistant
	// launched in. Deployments override these per market.
	v.SetDefault("vocabulary.locations", []string{
		"molyko", "great soppo", "small soppo", "bonduma", "buea town",
		"mile 16", "mile 17", "mile 18", "bokwango", "muea", "bomaka",
		"sandpit", "clerks quarters", "federal quarters", "bakweri town",
	})
	v.SetDefault("vocabulary.amenities", []string{
		"parking", "wifi", "water", "generator", "security", "furnished",
		"balcony", "garden", "air conditioning", "kitchen", "fence", "tiled",
	})
	v.SetDefault("vocabulary.property_types", []string{
		"apartment", "house", "studio", "room", "duplex", "villa", "guesthouse",
	})

	v.SetDefault("ranking.weight_location", 0.30)
	v.SetDefault("ranking.weight_price", 0.25)
	v.SetDefault("ranking.weight_property_type", 0.20)
	v.SetDefault("ranking.weight_amenities", 0.15)
	v.SetDefault("ranking.weight_freshness", 0.05)
	v.SetDefault("ranking.weight_diversity", 0.05)

	v.SetDefault("assistant.search_limit", 10)
	v.SetDefault("assistant.recommend_limit", 10)
	v.SetDefault("assistant.candidate_limit", 100)
	v.SetDefault("assistant.history_window", 20)
	v.SetDefault("assistant.catalog_timeout", 10*time.Second)
	v.SetDefault("assistant.flow_stale_after", 24*time.Hour)
	v.SetDefault("assistant.new_user_max_age", 24*time.Hour)
	v.SetDefault("assistant.new_user_max_events", 5)

	v.SetDefault("scheduler.tasks", map[string]TaskConfig{
		"stale_conversations": {Enabled: true, Schedule: "0 * * * *"},
		"profile_decay":       {Enabled: true, Schedule: "30 3 * * *"},
		"sql_maintenance":     {Enabled: true, Schedule: "0 4 * * 0"},
	})

	v.SetDefault("messages.welcome", "Welcome to RentScout! Tell me what you are looking for, e.g. \"2 bedroom apartment in Molyko under 80000\".")
	v.SetDefault("messages.help", "Send me a description of the place you want and I will find matching listings. Commands: /start, /help, /preferences, /bookings.")
	v.SetDefault("messages.no_matches", "No listings matched your search. Try widening the price range or another neighborhood.")
	v.SetDefault("messages.general_error", "Something went wrong. Please try again.")
	v.SetDefault("messages.not_authorized", "You are not authorized to use this command.")
	v.SetDefault("messages.ask_criteria", "What kind of place are you looking for? You can mention neighborhood, price and bedrooms.")
	v.SetDefault("messages.ask_booking_time", "When would you like to visit? Send a day and time.")
}
