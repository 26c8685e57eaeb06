package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexanderramin/kalend/internal/domain"
	"golang.org/x/oauth2"
)

// TokenStore persists refreshed tokens.
type TokenStore interface {
	UpdateTokens(ctx context.Context, userID, provider, accessToken, refreshToken string, expiresAt *time.Time) error
}

// Refresher exchanges refresh tokens for new access tokens and persists them.
// It keeps no per-user state, so concurrent refreshes for the same user are
// safe; the store applies last-writer-wins.
type Refresher struct {
	oauth  *oauth2.Config
	store  TokenStore
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Refresher) { r.client = c }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

// NewRefresher creates a Refresher for cfg that writes through store.
func NewRefresher(cfg OAuthConfig, store TokenStore, logger *slog.Logger, opts ...Option) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Refresher{
		oauth:  cfg.OAuth2(),
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh exchanges cred's refresh token for a new access token, persists
// it and returns the updated credential. Every failure is an *AuthError.
func (r *Refresher) Refresh(ctx context.Context, cred domain.Credential) (domain.Credential, error) {
	if !cred.CanRefresh() {
		return domain.Credential{}, &AuthError{UserID: cred.UserID, Err: ErrMissingRefreshToken}
	}

	if r.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.client)
	}
	// No access token forces the source to hit the token endpoint.
	src := r.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		r.logger.Warn("token refresh rejected", "user", cred.UserID, "error", err)
		return domain.Credential{}, &AuthError{UserID: cred.UserID, Err: fmt.Errorf("refreshing token: %w", err)}
	}

	var expiresAt *time.Time
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		expiresAt = &exp
	}
	next := cred.WithAccessToken(tok.AccessToken, tok.RefreshToken, expiresAt, r.now())

	// The new token is usable even if the write fails; the next call will
	// simply refresh again.
	if err := r.store.UpdateTokens(ctx, next.UserID, next.Provider, next.AccessToken, tok.RefreshToken, next.ExpiresAt); err != nil {
		r.logger.Error("persisting refreshed token", "user", cred.UserID, "error", err)
	} else {
		r.logger.Debug("token refreshed", "user", cred.UserID, "expires_at", next.ExpiresAt)
	}
	return next, nil
}
