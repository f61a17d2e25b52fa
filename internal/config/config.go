// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings holds the resolved runtime configuration.
type Settings struct {
	DatabasePath       string
	LookbackDays       int
	HorizonDays        int
	WindowLength       int
	MinRequiredDays    int
	CacheTTL           time.Duration
	StalenessThreshold time.Duration
	LatencyBudget      time.Duration
	MaxEpochs          int
	LearningRate       float64
}

// SetDefaults registers the default configuration values with viper.
// Flags, environment variables, and the config file all override them.
func SetDefaults() {
	viper.SetDefault("database.path", "~/.local/share/ledgercast/ledgercast.db")
	viper.SetDefault("forecast.lookback_days", 180)
	viper.SetDefault("forecast.horizon_days", 30)
	viper.SetDefault("forecast.cache_ttl", "24h")
	viper.SetDefault("forecast.staleness_threshold", "720h")
	viper.SetDefault("forecast.latency_budget", "500ms")
	viper.SetDefault("training.window_length", 30)
	viper.SetDefault("training.min_required_days", 60)
	viper.SetDefault("training.max_epochs", 200)
	viper.SetDefault("training.learning_rate", 0.05)
}

// Load resolves the current settings from viper.
func Load() Settings {
	return Settings{
		DatabasePath:       ExpandPath(viper.GetString("database.path")),
		LookbackDays:       viper.GetInt("forecast.lookback_days"),
		HorizonDays:        viper.GetInt("forecast.horizon_days"),
		CacheTTL:           viper.GetDuration("forecast.cache_ttl"),
		StalenessThreshold: viper.GetDuration("forecast.staleness_threshold"),
		LatencyBudget:      viper.GetDuration("forecast.latency_budget"),
		WindowLength:       viper.GetInt("training.window_length"),
		MinRequiredDays:    viper.GetInt("training.min_required_days"),
		MaxEpochs:          viper.GetInt("training.max_epochs"),
		LearningRate:       viper.GetFloat64("training.learning_rate"),
	}
}

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}
