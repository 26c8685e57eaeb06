package gcal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/kalend/internal/auth"
	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/repository"
	"github.com/alexanderramin/kalend/internal/testutil"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
)

var testNow = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

type stubRefresher struct {
	mu     sync.Mutex
	next   string
	err    error
	calls  int
	tokens []string
}

func (s *stubRefresher) Refresh(_ context.Context, cred domain.Credential) (domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.tokens = append(s.tokens, cred.AccessToken)
	if s.err != nil {
		return domain.Credential{}, s.err
	}
	return cred.WithAccessToken(s.next, "", nil, testNow), nil
}

type fixture struct {
	fake      *testutil.FakeCalendar
	refresher *stubRefresher
	creds     *repository.SQLiteCredentialRepo
	client    *Client
}

func newFixture(t *testing.T, cred *domain.Credential, accepted ...string) *fixture {
	t.Helper()
	fake := testutil.NewFakeCalendar(t, accepted...)
	database := testutil.NewTestDB(t)
	creds := repository.NewSQLiteCredentialRepo(database)
	if cred != nil {
		require.NoError(t, creds.Upsert(context.Background(), cred))
	}
	ref := &stubRefresher{next: "fresh"}
	cfg := DefaultConfig()
	cfg.Endpoint = fake.Endpoint()
	client := NewClient(cfg, creds, ref, nil, WithClock(func() time.Time { return testNow }))
	return &fixture{fake: fake, refresher: ref, creds: creds, client: client}
}

func seedTimed(f *testutil.FakeCalendar, summary string, start time.Time) string {
	return f.Seed(&calendar.Event{
		Summary:  summary,
		Location: "Room 1",
		Start:    &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: "Europe/Berlin"},
		End:      &calendar.EventDateTime{DateTime: start.Add(time.Hour).Format(time.RFC3339), TimeZone: "Europe/Berlin"},
	})
}

func TestClient_CreateThenList_RoundTrip(t *testing.T) {
	fx := newFixture(t, testutil.NewTestCredential("alice"), "access-alice")
	ctx := context.Background()

	start := time.Date(2025, 6, 11, 14, 0, 0, 0, time.UTC)
	created, err := fx.client.Create(ctx, "alice", testutil.NewTestEvent("Team sync", start))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	events, err := fx.client.List(ctx, "alice", start.Add(-time.Hour), start.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Team sync", events[0].Summary)
	assert.Equal(t, created.ID, events[0].ID)
}

func TestClient_List_QueryAndPagination(t *testing.T) {
	fx := newFixture(t, testutil.NewTestCredential("alice"), "access-alice")
	fx.fake.PageSize = 2
	base := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedTimed(fx.fake, "slot", base.Add(time.Duration(i)*time.Hour))
	}

	events, err := fx.client.List(context.Background(), "alice", base, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 5)

	gets := fx.fake.Requests()
	require.Len(t, gets, 3, "five events in pages of two")
	q := gets[0].Query
	assert.Equal(t, "true", q["singleEvents"])
	assert.Equal(t, "startTime", q["orderBy"])
	assert.Equal(t, base.Format(time.RFC3339), q["timeMin"])
	assert.Equal(t, "/calendar/v3/calendars/primary/events", gets[0].Path)
}

func TestClient_Unauthorized_RefreshesOnceAndRetries(t *testing.T) {
	cred := testutil.NewTestCredential("alice", testutil.WithAccessToken("stale"))
	fx := newFixture(t, cred, "fresh")
	seedTimed(fx.fake, "Dentist", testNow.Add(time.Hour))

	events, err := fx.client.List(context.Background(), "alice", testNow, testNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 1)

	reqs := fx.fake.Requests()
	require.Len(t, reqs, 2, "exactly one retry")
	assert.Equal(t, "stale", reqs[0].Token)
	assert.Equal(t, "fresh", reqs[1].Token)
	assert.Equal(t, 1, fx.refresher.calls)
}

func TestClient_SecondUnauthorized_IsTerminal(t *testing.T) {
	cred := testutil.NewTestCredential("alice", testutil.WithAccessToken("stale"))
	fx := newFixture(t, cred) // no token accepted
	fx.refresher.next = "still-bad"

	_, err := fx.client.Create(context.Background(), "alice", testutil.NewTestEvent("x", testNow))
	require.Error(t, err)
	assert.True(t, auth.IsAuthError(err))
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
	assert.Equal(t, 2, fx.fake.CountRequests(http.MethodPost), "no third attempt")
	assert.Equal(t, 1, fx.refresher.calls)
}

func TestClient_Unauthorized_NoRefreshToken(t *testing.T) {
	cred := testutil.NewTestCredential("alice", testutil.WithAccessToken("stale"), testutil.WithRefreshToken(""))
	fx := newFixture(t, cred)

	_, err := fx.client.List(context.Background(), "alice", testNow, testNow.Add(time.Hour))
	assert.True(t, auth.IsAuthError(err))
	assert.ErrorIs(t, err, auth.ErrMissingRefreshToken)
	assert.Equal(t, 0, fx.refresher.calls)
	assert.Len(t, fx.fake.Requests(), 1)
}

func TestClient_RefreshFailure_Propagates(t *testing.T) {
	cred := testutil.NewTestCredential("alice", testutil.WithAccessToken("stale"))
	fx := newFixture(t, cred)
	fx.refresher.err = &auth.AuthError{UserID: "alice", Err: errors.New("invalid_grant")}

	_, err := fx.client.Delete(context.Background(), "alice", "evt1")
	assert.True(t, auth.IsAuthError(err))
	assert.Len(t, fx.fake.Requests(), 1)
}

func TestClient_ExpiredCredential_RefreshedProactively(t *testing.T) {
	cred := testutil.NewTestCredential("alice",
		testutil.WithAccessToken("expired"),
		testutil.WithExpiry(testNow.Add(-time.Minute)),
	)
	fx := newFixture(t, cred, "fresh")

	_, err := fx.client.List(context.Background(), "alice", testNow, testNow.Add(time.Hour))
	require.NoError(t, err)

	reqs := fx.fake.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "fresh", reqs[0].Token)
	assert.Equal(t, []string{"expired"}, fx.refresher.tokens)
}

func TestClient_MissingCredential(t *testing.T) {
	fx := newFixture(t, nil)

	_, err := fx.client.List(context.Background(), "nobody", testNow, testNow.Add(time.Hour))
	assert.True(t, auth.IsAuthError(err))
	assert.ErrorIs(t, err, auth.ErrNotConnected)
	assert.Empty(t, fx.fake.Requests())
}

func TestClient_Delete(t *testing.T) {
	fx := newFixture(t, testutil.NewTestCredential("alice"), "access-alice")
	ctx := context.Background()
	id := seedTimed(fx.fake, "Gym", testNow)

	ok, err := fx.client.Delete(ctx, "alice", id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Nil(t, fx.fake.Event(id))

	// Already gone: still a success.
	ok, err = fx.client.Delete(ctx, "alice", id)
	require.NoError(t, err)
	assert.True(t, ok)

	fx.fake.FailNext(http.MethodDelete, http.StatusGone, 1)
	ok, err = fx.client.Delete(ctx, "alice", "whatever")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_Delete_ProviderError(t *testing.T) {
	fx := newFixture(t, testutil.NewTestCredential("alice"), "access-alice")
	fx.fake.FailNext(http.MethodDelete, http.StatusInternalServerError, 1)

	ok, err := fx.client.Delete(context.Background(), "alice", "evt")
	assert.False(t, ok)
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusInternalServerError, pe.Status)
	assert.Equal(t, "Internal Server Error", pe.Message)
	assert.Contains(t, pe.Body, `"reason":"fake"`)
}

func TestClient_Update_RetainsStartWhenNotChanged(t *testing.T) {
	fx := newFixture(t, testutil.NewTestCredential("alice"), "access-alice")
	start := time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)
	id := seedTimed(fx.fake, "Standup", start)
	original := *fx.fake.Event(id).Start

	title := "Daily standup"
	got, err := fx.client.Update(context.Background(), "alice", id, domain.EventPatch{Summary: &title})
	require.NoError(t, err)
	assert.Equal(t, "Daily standup", got.Summary)

	var puts []testutil.RecordedRequest
	for _, r := range fx.fake.Requests() {
		if r.Method == http.MethodPut {
			puts = append(puts, r)
		}
	}
	require.Len(t, puts, 1)
	var body calendar.Event
	require.NoError(t, json.Unmarshal(puts[0].Body, &body))
	require.NotNil(t, body.Start)
	assert.Equal(t, original.DateTime, body.Start.DateTime)
	assert.Equal(t, original.TimeZone, body.Start.TimeZone)
	assert.Equal(t, "Room 1", body.Location, "unpatched top-level fields are written back")
	assert.Equal(t, 1, fx.fake.CountRequests(http.MethodGet), "fetches current event before writing")
}

func TestClient_Update_MergesStartOneLevelDeep(t *testing.T) {
	fx := newFixture(t, testutil.NewTestCredential("alice"), "access-alice")
	id := seedTimed(fx.fake, "Standup", time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC))

	newStart := domain.EventTime{DateTime: "2025-06-12T11:00:00Z"}
	got, err := fx.client.Update(context.Background(), "alice", id, domain.EventPatch{Start: &newStart})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-12T11:00:00Z", got.Start.DateTime)
	assert.Equal(t, "Europe/Berlin", got.Start.TimeZone, "timeZone survives a dateTime-only patch")
	assert.Equal(t, "Standup", got.Summary)

	allDay := domain.EventTime{Date: "2025-06-13"}
	allDayEnd := domain.EventTime{Date: "2025-06-14"}
	got, err = fx.client.Update(context.Background(), "alice", id, domain.EventPatch{Start: &allDay, End: &allDayEnd})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-13", got.Start.Date)
	assert.Empty(t, got.Start.DateTime)
	assert.True(t, got.IsAllDay)
}

func TestClient_Update_MixedEndpointsRejected(t *testing.T) {
	fx := newFixture(t, testutil.NewTestCredential("alice"), "access-alice")
	id := seedTimed(fx.fake, "Standup", time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC))

	allDay := domain.EventTime{Date: "2025-06-13"}
	_, err := fx.client.Update(context.Background(), "alice", id, domain.EventPatch{Start: &allDay})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "both be dates")
	assert.Zero(t, fx.fake.CountRequests(http.MethodPut), "invalid event is never written")
}

func TestClient_Update_NotFound(t *testing.T) {
	fx := newFixture(t, testutil.NewTestCredential("alice"), "access-alice")

	_, err := fx.client.Update(context.Background(), "alice", "missing", domain.EventPatch{})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusNotFound, pe.Status)
}

func TestClient_Create_InvalidEvent_NoRequest(t *testing.T) {
	fx := newFixture(t, testutil.NewTestCredential("alice"), "access-alice")

	_, err := fx.client.Create(context.Background(), "alice", domain.Event{Summary: "no times"})
	assert.Error(t, err)
	assert.Empty(t, fx.fake.Requests())
}

func TestClient_ListCurrentWeek(t *testing.T) {
	fx := newFixture(t, testutil.NewTestCredential("alice"), "access-alice")
	seedTimed(fx.fake, "Inside", time.Date(2025, 6, 14, 20, 0, 0, 0, time.UTC))
	seedTimed(fx.fake, "Next week", time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC))

	events, err := fx.client.ListCurrentWeek(context.Background(), "alice", testNow)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Inside", events[0].Summary)
}

func TestWeekBounds(t *testing.T) {
	start, end := WeekBounds(testNow) // Tuesday
	assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 14, 23, 59, 59, 0, time.UTC), end)

	sunday := time.Date(2025, 6, 8, 15, 0, 0, 0, time.UTC)
	start, _ = WeekBounds(sunday)
	assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), start)
}
