package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/kalend/internal/domain"
)

// CredentialRepo stores OAuth credentials keyed by user and provider.
// Credentials are created at consent and rewritten on refresh; they are
// never deleted here.
type CredentialRepo interface {
	Get(ctx context.Context, userID, provider string) (*domain.Credential, error)
	Upsert(ctx context.Context, c *domain.Credential) error
	// UpdateTokens rewrites the access token and expiry. An empty
	// refreshToken keeps the stored one. Last writer wins.
	UpdateTokens(ctx context.Context, userID, provider, accessToken, refreshToken string, expiresAt *time.Time) error
}

// ConversationSession is the header row of a stored conversation.
type ConversationSession struct {
	ID          string
	UserID      string
	Personality string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ConversationRepo persists chat history per session.
type ConversationRepo interface {
	// Ensure returns the session with the given id, creating it for userID
	// when absent. An empty id allocates a new one.
	Ensure(ctx context.Context, sessionID, userID string) (*ConversationSession, error)
	SetPersonality(ctx context.Context, sessionID, personality string) error
	// Append adds turns after the last stored one, atomically.
	Append(ctx context.Context, sessionID string, turns ...domain.Turn) error
	List(ctx context.Context, sessionID string) ([]domain.StoredTurn, error)
}
