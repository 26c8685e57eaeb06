package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/kalend/internal/auth"
	"github.com/alexanderramin/kalend/internal/domain"
)

// stateTTL bounds how long a consent link stays valid.
const stateTTL = 10 * time.Minute

// ExchangeFunc trades an authorization code for a credential.
type ExchangeFunc func(ctx context.Context, cfg auth.OAuthConfig, userID, code string) (domain.Credential, error)

type pendingConsent struct {
	userID  string
	expires time.Time
}

// ConsentFlow runs the browser OAuth consent and stores the credential.
type ConsentFlow struct {
	cfg      auth.OAuthConfig
	store    CredentialSaver
	exchange ExchangeFunc
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]pendingConsent
}

// NewConsentFlow creates a ConsentFlow that exchanges codes with auth.Exchange.
func NewConsentFlow(cfg auth.OAuthConfig, store CredentialSaver, logger *slog.Logger) *ConsentFlow {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsentFlow{
		cfg:      cfg,
		store:    store,
		exchange: auth.Exchange,
		logger:   logger,
		now:      time.Now,
		pending:  make(map[string]pendingConsent),
	}
}

// Begin registers a consent attempt for userID and returns the consent URL.
func (f *ConsentFlow) Begin(userID string) string {
	state := uuid.New().String()
	f.mu.Lock()
	now := f.now()
	for k, p := range f.pending {
		if now.After(p.expires) {
			delete(f.pending, k)
		}
	}
	f.pending[state] = pendingConsent{userID: userID, expires: now.Add(stateTTL)}
	f.mu.Unlock()
	return auth.AuthCodeURL(f.cfg, state)
}

// Complete exchanges code for the user that started state and stores the
// credential.
func (f *ConsentFlow) Complete(ctx context.Context, state, code string) (string, error) {
	f.mu.Lock()
	p, ok := f.pending[state]
	delete(f.pending, state)
	f.mu.Unlock()
	if !ok || f.now().After(p.expires) {
		return "", errors.New("unknown or expired consent state")
	}

	cred, err := f.exchange(ctx, f.cfg, p.userID, code)
	if err != nil {
		return "", err
	}
	if err := f.store.Upsert(ctx, &cred); err != nil {
		return "", err
	}
	f.logger.InfoContext(ctx, "calendar connected", "user", p.userID, "has_refresh_token", cred.CanRefresh())
	return p.userID, nil
}

func (s *Server) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	userID := domain.CoalesceStr(r.URL.Query().Get("user"), s.userID(r))
	http.Redirect(w, r, s.oauth.Begin(userID), http.StatusFound)
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		writeError(w, http.StatusBadRequest, "consent denied: "+msg)
		return
	}
	userID, err := s.oauth.Complete(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		s.logger.WarnContext(r.Context(), "consent failed", "error", err)
		status := http.StatusBadRequest
		if auth.IsAuthError(err) {
			status = http.StatusUnauthorized
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": userID})
}
