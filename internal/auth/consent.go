package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/kalend/internal/domain"
	"golang.org/x/oauth2"
)

// AuthCodeURL returns the consent page URL. Offline access with a forced
// consent prompt makes Google return a refresh token every time.
func AuthCodeURL(cfg OAuthConfig, state string) string {
	return cfg.OAuth2().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a credential owned by userID.
func Exchange(ctx context.Context, cfg OAuthConfig, userID, code string) (domain.Credential, error) {
	tok, err := cfg.OAuth2().Exchange(ctx, code)
	if err != nil {
		return domain.Credential{}, &AuthError{UserID: userID, Err: fmt.Errorf("exchanging code: %w", err)}
	}
	cred := domain.Credential{
		UserID:       userID,
		Provider:     domain.ProviderGoogle,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		UpdatedAt:    time.Now().UTC(),
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		cred.ExpiresAt = &exp
	}
	return cred, nil
}
