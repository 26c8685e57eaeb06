package gcal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexanderramin/kalend/internal/auth"
	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/repository"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CredentialSource loads the stored credential for a user.
type CredentialSource interface {
	Get(ctx context.Context, userID, provider string) (*domain.Credential, error)
}

// TokenRefresher exchanges a credential's refresh token for a new one.
type TokenRefresher interface {
	Refresh(ctx context.Context, cred domain.Credential) (domain.Credential, error)
}

// Client performs event CRUD against Google Calendar on behalf of a user.
// Every call fetches the credential afresh and follows the same retry
// contract: on 401 with a refresh token, refresh once and retry once.
type Client struct {
	cfg       Config
	creds     CredentialSource
	refresher TokenRefresher
	transport http.RoundTripper
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithTransport sets the base transport under the bearer-token layer.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a Client.
func NewClient(cfg Config, creds CredentialSource, refresher TokenRefresher, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = DefaultConfig().CalendarID
	}
	c := &Client{
		cfg:       cfg,
		creds:     creds,
		refresher: refresher,
		transport: http.DefaultTransport,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// service builds a calendar service that authenticates with accessToken.
func (c *Client) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	hc := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   c.transport,
		},
	}
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.cfg.Endpoint))
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return svc, nil
}

func (c *Client) credential(ctx context.Context, userID string) (domain.Credential, error) {
	cred, err := c.creds.Get(ctx, userID, domain.ProviderGoogle)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Credential{}, &auth.AuthError{UserID: userID, Err: auth.ErrNotConnected}
		}
		return domain.Credential{}, fmt.Errorf("loading credential: %w", err)
	}
	return *cred, nil
}

// withRetry runs call with the user's token. A 401 triggers exactly one
// refresh and one retry; a second 401 is a terminal *auth.AuthError. The
// returned error is the raw call error for non-401 failures so callers can
// inspect statuses such as 404.
func (c *Client) withRetry(ctx context.Context, userID, op string, call func(svc *calendar.Service) error) error {
	cred, err := c.credential(ctx, userID)
	if err != nil {
		return err
	}

	if cred.NeedsRefresh(c.now()) && cred.CanRefresh() {
		c.logger.Debug("refreshing expiring token", "user", userID, "op", op)
		if cred, err = c.refresher.Refresh(ctx, cred); err != nil {
			return err
		}
	}

	svc, err := c.service(ctx, cred.AccessToken)
	if err != nil {
		return err
	}
	err = call(svc)
	if statusOf(err) != http.StatusUnauthorized {
		return err
	}

	if !cred.CanRefresh() {
		return &auth.AuthError{UserID: userID, Err: auth.ErrMissingRefreshToken}
	}
	c.logger.Info("calendar call unauthorized, refreshing", "user", userID, "op", op)
	cred, err = c.refresher.Refresh(ctx, cred)
	if err != nil {
		return err
	}

	if svc, err = c.service(ctx, cred.AccessToken); err != nil {
		return err
	}
	err = call(svc)
	if statusOf(err) == http.StatusUnauthorized {
		return &auth.AuthError{UserID: userID, Err: auth.ErrUnauthorized}
	}
	return err
}

// finish maps a raw call error to the client's error surface.
func finish(op string, err error) error {
	if err == nil || auth.IsAuthError(err) {
		return err
	}
	return providerError(op, err)
}

// List returns the events overlapping [start, end], expanded into single
// instances and ordered by start time, across all pages.
func (c *Client) List(ctx context.Context, userID string, start, end time.Time) ([]domain.Event, error) {
	var out []domain.Event
	err := c.withRetry(ctx, userID, "list", func(svc *calendar.Service) error {
		out = out[:0]
		return svc.Events.List(c.cfg.CalendarID).
			TimeMin(start.Format(time.RFC3339)).
			TimeMax(end.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			Pages(ctx, func(page *calendar.Events) error {
				for _, item := range page.Items {
					out = append(out, toDomain(item))
				}
				return nil
			})
	})
	if err != nil {
		return nil, finish("listing events", err)
	}
	c.logger.Debug("listed events", "user", userID, "count", len(out))
	return out, nil
}

// ListCurrentWeek lists events from Sunday 00:00 to Saturday 23:59:59 of the
// week containing now, in now's location.
func (c *Client) ListCurrentWeek(ctx context.Context, userID string, now time.Time) ([]domain.Event, error) {
	start, end := WeekBounds(now)
	return c.List(ctx, userID, start, end)
}

// WeekBounds returns Sunday 00:00 and Saturday 23:59:59 around t.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	start := day.AddDate(0, 0, -int(day.Weekday()))
	end := domain.EndOfDay(start.AddDate(0, 0, 6))
	return start, end
}

// Create inserts e and returns the stored event.
func (c *Client) Create(ctx context.Context, userID string, e domain.Event) (*domain.Event, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	var created *calendar.Event
	err := c.withRetry(ctx, userID, "create", func(svc *calendar.Service) error {
		var err error
		created, err = svc.Events.Insert(c.cfg.CalendarID, fromDomain(e)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, finish("creating event", err)
	}
	out := toDomain(created)
	c.logger.Info("event created", "user", userID, "id", out.ID, "summary", out.Summary)
	return &out, nil
}

// Update fetches the current event, merges p over it and writes the full
// object back.
func (c *Client) Update(ctx context.Context, userID, eventID string, p domain.EventPatch) (*domain.Event, error) {
	var (
		updated *calendar.Event
		invalid error
	)
	err := c.withRetry(ctx, userID, "update", func(svc *calendar.Service) error {
		current, err := svc.Events.Get(c.cfg.CalendarID, eventID).Context(ctx).Do()
		if err != nil {
			return err
		}
		applyPatch(current, p)
		if err := toDomain(current).Validate(); err != nil {
			invalid = err
			return nil
		}
		updated, err = svc.Events.Update(c.cfg.CalendarID, eventID, current).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, finish("updating event", err)
	}
	if invalid != nil {
		return nil, fmt.Errorf("invalid event after update: %w", invalid)
	}
	out := toDomain(updated)
	c.logger.Info("event updated", "user", userID, "id", out.ID)
	return &out, nil
}

// Delete removes the event. An event that is already gone (404 or 410)
// counts as deleted.
func (c *Client) Delete(ctx context.Context, userID, eventID string) (bool, error) {
	err := c.withRetry(ctx, userID, "delete", func(svc *calendar.Service) error {
		return svc.Events.Delete(c.cfg.CalendarID, eventID).Context(ctx).Do()
	})
	switch status := statusOf(err); {
	case err == nil:
	case status == http.StatusNotFound || status == http.StatusGone:
		c.logger.Debug("event already gone", "user", userID, "id", eventID)
	default:
		return false, finish("deleting event", err)
	}
	c.logger.Info("event deleted", "user", userID, "id", eventID)
	return true, nil
}
