// Package config loads and validates environment-based configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

// Config holds all runtime configuration loaded from environment variables.
// Components receive it (or the values they need) explicitly; nothing reads
// the environment after startup.
type Config struct {
	// Airtable backend.
	AirtableBaseID string
	AirtablePAT    string

	// Google Maps geocoding.
	GoogleMapsAPIKey string

	// Conversational extraction.
	OpenAIAPIKey string

	// Outbound result webhook. Optional; empty disables delivery.
	WebhookURL string

	Port int
}

// Load reads and validates required environment variables.
// Returns a ConfigError for any missing or invalid value, so a misconfigured
// process dies at startup instead of deep inside a request.
func Load() (*Config, error) {
	cfg := &Config{}

	var errs []error
	for _, req := range []struct {
		env  string
		dest *string
	}{
		{"AIRTABLE_BASE_ID", &cfg.AirtableBaseID},
		{"AIRTABLE_PAT", &cfg.AirtablePAT},
		{"GOOGLE_MAPS_API_KEY", &cfg.GoogleMapsAPIKey},
		{"OPENAI_API_KEY", &cfg.OpenAIAPIKey},
	} {
		v := os.Getenv(req.env)
		if v == "" {
			errs = append(errs, &ConfigError{Field: req.env, Message: "required but not set"})
			continue
		}
		*req.dest = v
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	cfg.WebhookURL = os.Getenv("N8N_WEBHOOK_URL")

	portStr := os.Getenv("PORT")
	if portStr == "" {
		cfg.Port = 8080
	} else {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, &ConfigError{Field: "PORT", Message: "must be a valid integer"}
		}
		if port < 1 || port > 65535 {
			return nil, &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"}
		}
		cfg.Port = port
	}

	return cfg, nil
}
