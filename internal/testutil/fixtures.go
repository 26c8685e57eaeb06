package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/kalend/internal/domain"
)

var testEventCounter atomic.Int64

// Credential options
type CredentialOption func(*domain.Credential)

func WithRefreshToken(tok string) CredentialOption {
	return func(c *domain.Credential) {
		c.RefreshToken = tok
	}
}

func WithExpiry(t time.Time) CredentialOption {
	return func(c *domain.Credential) {
		c.ExpiresAt = &t
	}
}

func WithAccessToken(tok string) CredentialOption {
	return func(c *domain.Credential) {
		c.AccessToken = tok
	}
}

// NewTestCredential returns a Google credential for userID with a refresh
// token and no expiry.
func NewTestCredential(userID string, opts ...CredentialOption) *domain.Credential {
	c := &domain.Credential{
		UserID:       userID,
		Provider:     domain.ProviderGoogle,
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Event options
type EventOption func(*domain.Event)

func WithDescription(d string) EventOption {
	return func(e *domain.Event) {
		e.Description = d
	}
}

func WithLocation(l string) EventOption {
	return func(e *domain.Event) {
		e.Location = l
	}
}

func WithID(id string) EventOption {
	return func(e *domain.Event) {
		e.ID = id
	}
}

// AllDay turns the event into an all-day event on the start date.
func AllDay() EventOption {
	return func(e *domain.Event) {
		st, _ := time.Parse(time.RFC3339, e.Start.DateTime)
		e.Start = domain.EventTime{Date: st.Format(domain.DateLayout)}
		e.End = domain.EventTime{Date: st.AddDate(0, 0, 1).Format(domain.DateLayout)}
		e.IsAllDay = true
	}
}

// NewTestEvent returns a one-hour timed event starting at start with a
// generated id.
func NewTestEvent(summary string, start time.Time, opts ...EventOption) domain.Event {
	n := testEventCounter.Add(1)
	e := domain.Event{
		ID:      fmt.Sprintf("evt%d", n),
		Summary: summary,
		Start:   domain.EventTime{DateTime: start.Format(time.RFC3339)},
		End:     domain.EventTime{DateTime: start.Add(time.Hour).Format(time.RFC3339)},
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// TestTimeInfo is a fixed "now" of 2025-06-10 09:00 UTC.
func TestTimeInfo() domain.TimeInfo {
	return domain.TimeInfoAt(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC), time.UTC)
}
