package domain

import "time"

// ProviderGoogle is the only calendar provider kalend talks to.
const ProviderGoogle = "google"

// refreshSkew is how early a credential is considered due for refresh.
const refreshSkew = 5 * time.Minute

// Credential is a stored OAuth token pair for one user and provider.
// Values are treated as immutable; a refresh produces a new Credential.
type Credential struct {
	UserID       string
	Provider     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the access token is past its expiry.
// A credential without an expiry never expires.
func (c Credential) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !now.Before(*c.ExpiresAt)
}

// NeedsRefresh reports whether the access token expires within refreshSkew.
func (c Credential) NeedsRefresh(now time.Time) bool {
	return c.Expired(now.Add(refreshSkew))
}

// CanRefresh reports whether a refresh token is available.
func (c Credential) CanRefresh() bool {
	return c.RefreshToken != ""
}

// WithAccessToken returns a copy carrying the new access token and expiry.
// An empty refreshToken keeps the current one.
func (c Credential) WithAccessToken(accessToken, refreshToken string, expiresAt *time.Time, now time.Time) Credential {
	next := c
	next.AccessToken = accessToken
	if refreshToken != "" {
		next.RefreshToken = refreshToken
	}
	next.ExpiresAt = expiresAt
	next.UpdatedAt = now
	return next
}
