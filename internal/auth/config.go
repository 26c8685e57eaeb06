package auth

import (
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// OAuthConfig holds the Google OAuth client settings.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
}

// DefaultConfig returns an OAuthConfig pointing at Google's endpoints with
// the out-of-band loopback redirect used by the CLI consent flow.
func DefaultConfig() OAuthConfig {
	return OAuthConfig{
		RedirectURL: "http://localhost:8085/oauth/callback",
		AuthURL:     google.Endpoint.AuthURL,
		TokenURL:    google.Endpoint.TokenURL,
	}
}

// LoadConfig reads OAuth configuration from environment variables,
// falling back to defaults for any unset values.
func LoadConfig() OAuthConfig {
	cfg := DefaultConfig()
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.ClientSecret = v
	}
	if v := os.Getenv("GOOGLE_REDIRECT_URL"); v != "" {
		cfg.RedirectURL = v
	}
	if v := os.Getenv("GOOGLE_AUTH_URL"); v != "" {
		cfg.AuthURL = v
	}
	if v := os.Getenv("GOOGLE_TOKEN_URL"); v != "" {
		cfg.TokenURL = v
	}
	return cfg
}

// Configured reports whether client credentials are present.
func (c OAuthConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// OAuth2 builds the x/oauth2 config for the calendar scope.
func (c OAuthConfig) OAuth2() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       []string{calendar.CalendarScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
