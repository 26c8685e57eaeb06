package gcal

import "os"

// Config holds calendar client settings.
type Config struct {
	// Endpoint overrides the API base URL, e.g. for a local fake.
	Endpoint   string
	CalendarID string
}

// DefaultConfig targets the user's primary calendar on the public API.
func DefaultConfig() Config {
	return Config{CalendarID: "primary"}
}

// LoadConfig reads calendar configuration from environment variables,
// falling back to defaults for any unset values.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("KALEND_CALENDAR_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("KALEND_CALENDAR_ID"); v != "" {
		cfg.CalendarID = v
	}
	return cfg
}
