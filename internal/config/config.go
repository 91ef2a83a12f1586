// Package config loads converter settings from the environment and an
// optional .env file. Command-line flags take precedence over everything
// loaded here; these values are the defaults the flags fall back to.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	PrivacyLevel     string `mapstructure:"CDACONVERT_PRIVACY"`
	SummaryFile      string `mapstructure:"CDACONVERT_SUMMARY_FILE"`
	OutputFile       string `mapstructure:"CDACONVERT_OUTPUT"`
	LogFormat        string `mapstructure:"CDACONVERT_LOG_FORMAT"`
	FailFast         bool   `mapstructure:"CDACONVERT_FAIL_FAST"`
	AuditDatabaseURL string `mapstructure:"CDACONVERT_AUDIT_DATABASE_URL"`
	AuditDBMaxConns  int32  `mapstructure:"CDACONVERT_AUDIT_DB_MAX_CONNS"`
	AuditDBMinConns  int32  `mapstructure:"CDACONVERT_AUDIT_DB_MIN_CONNS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("CDACONVERT_PRIVACY", "redacted")
	v.SetDefault("CDACONVERT_SUMMARY_FILE", "DOC0001.XML")
	v.SetDefault("CDACONVERT_OUTPUT", "patient_history.json")
	v.SetDefault("CDACONVERT_LOG_FORMAT", "text")
	v.SetDefault("CDACONVERT_FAIL_FAST", false)
	v.SetDefault("CDACONVERT_AUDIT_DB_MAX_CONNS", 4)
	v.SetDefault("CDACONVERT_AUDIT_DB_MIN_CONNS", 1)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("CDACONVERT_PRIVACY")
	v.BindEnv("CDACONVERT_SUMMARY_FILE")
	v.BindEnv("CDACONVERT_OUTPUT")
	v.BindEnv("CDACONVERT_LOG_FORMAT")
	v.BindEnv("CDACONVERT_FAIL_FAST")
	v.BindEnv("CDACONVERT_AUDIT_DATABASE_URL")
	v.BindEnv("CDACONVERT_AUDIT_DB_MAX_CONNS")
	v.BindEnv("CDACONVERT_AUDIT_DB_MIN_CONNS")

	// Try reading .env, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	switch cfg.PrivacyLevel {
	case "full", "redacted", "strict":
	default:
		return nil, fmt.Errorf("invalid CDACONVERT_PRIVACY %q", cfg.PrivacyLevel)
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid CDACONVERT_LOG_FORMAT %q", cfg.LogFormat)
	}

	return cfg, nil
}
