package server

import "os"

// Config holds HTTP server settings.
type Config struct {
	Addr        string
	DefaultUser string
}

// DefaultConfig returns the settings used when no environment is set.
func DefaultConfig() Config {
	return Config{Addr: ":8080", DefaultUser: "default"}
}

// LoadConfig reads KALEND_ADDR and KALEND_USER, falling back to defaults.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("KALEND_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("KALEND_USER"); v != "" {
		cfg.DefaultUser = v
	}
	return cfg
}
