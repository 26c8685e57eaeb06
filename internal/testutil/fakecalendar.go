package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"google.golang.org/api/calendar/v3"
)

// RecordedRequest is one request the fake calendar received.
type RecordedRequest struct {
	Method string
	Path   string
	Token  string
	Query  map[string]string
	Body   []byte
}

type scriptedFailure struct {
	method string
	status int
	left   int
}

// FakeCalendar is an in-memory stand-in for the Google Calendar v3 REST API
// covering the events collection of any calendar id.
type FakeCalendar struct {
	Server *httptest.Server

	// PageSize splits list responses into pages when > 0.
	PageSize int

	mu       sync.Mutex
	events   map[string]*calendar.Event
	nextID   int
	tokens   map[string]bool
	failures []*scriptedFailure
	requests []RecordedRequest
}

// NewFakeCalendar starts a fake calendar that accepts the given bearer tokens.
func NewFakeCalendar(t *testing.T, acceptedTokens ...string) *FakeCalendar {
	t.Helper()
	f := &FakeCalendar{
		events: make(map[string]*calendar.Event),
		tokens: make(map[string]bool),
	}
	for _, tok := range acceptedTokens {
		f.tokens[tok] = true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /calendar/v3/calendars/{cal}/events", f.handleList)
	mux.HandleFunc("POST /calendar/v3/calendars/{cal}/events", f.handleInsert)
	mux.HandleFunc("GET /calendar/v3/calendars/{cal}/events/{id}", f.handleGet)
	mux.HandleFunc("PUT /calendar/v3/calendars/{cal}/events/{id}", f.handlePut)
	mux.HandleFunc("DELETE /calendar/v3/calendars/{cal}/events/{id}", f.handleDelete)

	f.Server = httptest.NewServer(f.middleware(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// Endpoint is the base URL to hand to the calendar client.
func (f *FakeCalendar) Endpoint() string {
	return f.Server.URL + "/calendar/v3/"
}

// AcceptToken makes tok valid.
func (f *FakeCalendar) AcceptToken(tok string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[tok] = true
}

// RevokeToken makes tok invalid.
func (f *FakeCalendar) RevokeToken(tok string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, tok)
}

// FailNext makes the next n requests with method return status.
func (f *FakeCalendar) FailNext(method string, status, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, &scriptedFailure{method: method, status: status, left: n})
}

// Seed stores e, assigning an id when it has none, and returns the id.
func (f *FakeCalendar) Seed(e *calendar.Event) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.Id == "" {
		f.nextID++
		e.Id = fmt.Sprintf("fake%d", f.nextID)
	}
	f.events[e.Id] = e
	return e.Id
}

// Event returns the stored event with id, or nil.
func (f *FakeCalendar) Event(id string) *calendar.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[id]
}

// Len returns the number of stored events.
func (f *FakeCalendar) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// Requests returns a copy of the requests received so far.
func (f *FakeCalendar) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// CountRequests counts received requests with method.
func (f *FakeCalendar) CountRequests(method string) int {
	n := 0
	for _, r := range f.Requests() {
		if r.Method == method {
			n++
		}
	}
	return n
}

func (f *FakeCalendar) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		query := make(map[string]string)
		for k, v := range r.URL.Query() {
			query[k] = v[0]
		}

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method: r.Method, Path: r.URL.Path, Token: token, Query: query, Body: body,
		})
		valid := f.tokens[token]
		status := 0
		if valid {
			for _, sf := range f.failures {
				if sf.method == r.Method && sf.left > 0 {
					sf.left--
					status = sf.status
					break
				}
			}
		}
		f.mu.Unlock()

		if !valid {
			writeGoogleError(w, http.StatusUnauthorized, "Invalid Credentials")
			return
		}
		if status != 0 {
			writeGoogleError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeGoogleError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":%q,"errors":[{"message":%q,"reason":"fake"}]}}`, status, msg, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func eventBounds(e *calendar.Event) (time.Time, time.Time) {
	parse := func(dt *calendar.EventDateTime) time.Time {
		if dt == nil {
			return time.Time{}
		}
		if dt.DateTime != "" {
			t, _ := time.Parse(time.RFC3339, dt.DateTime)
			return t
		}
		t, _ := time.Parse("2006-01-02", dt.Date)
		return t
	}
	return parse(e.Start), parse(e.End)
}

func (f *FakeCalendar) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var tmin, tmax time.Time
	if v := q.Get("timeMin"); v != "" {
		tmin, _ = time.Parse(time.RFC3339, v)
	}
	if v := q.Get("timeMax"); v != "" {
		tmax, _ = time.Parse(time.RFC3339, v)
	}

	f.mu.Lock()
	var items []*calendar.Event
	for _, e := range f.events {
		start, end := eventBounds(e)
		if !tmin.IsZero() && !end.After(tmin) {
			continue
		}
		if !tmax.IsZero() && !start.Before(tmax) {
			continue
		}
		items = append(items, e)
	}
	pageSize := f.PageSize
	f.mu.Unlock()

	sort.Slice(items, func(i, j int) bool {
		si, _ := eventBounds(items[i])
		sj, _ := eventBounds(items[j])
		if si.Equal(sj) {
			return items[i].Id < items[j].Id
		}
		return si.Before(sj)
	})

	resp := &calendar.Events{Kind: "calendar#events"}
	offset, _ := strconv.Atoi(q.Get("pageToken"))
	if offset > len(items) {
		offset = len(items)
	}
	items = items[offset:]
	if pageSize > 0 && len(items) > pageSize {
		items = items[:pageSize]
		resp.NextPageToken = strconv.Itoa(offset + pageSize)
	}
	resp.Items = items
	writeJSON(w, http.StatusOK, resp)
}

func (f *FakeCalendar) handleInsert(w http.ResponseWriter, r *http.Request) {
	var e calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeGoogleError(w, http.StatusBadRequest, "Bad Request")
		return
	}
	if e.Start == nil || e.End == nil {
		writeGoogleError(w, http.StatusBadRequest, "Missing end time.")
		return
	}
	e.Id = ""
	e.Status = "confirmed"
	f.Seed(&e)
	writeJSON(w, http.StatusOK, &e)
}

func (f *FakeCalendar) handleGet(w http.ResponseWriter, r *http.Request) {
	e := f.Event(r.PathValue("id"))
	if e == nil {
		writeGoogleError(w, http.StatusNotFound, "Not Found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (f *FakeCalendar) handlePut(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if f.Event(id) == nil {
		writeGoogleError(w, http.StatusNotFound, "Not Found")
		return
	}
	var e calendar.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeGoogleError(w, http.StatusBadRequest, "Bad Request")
		return
	}
	e.Id = id
	f.mu.Lock()
	f.events[id] = &e
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, &e)
}

func (f *FakeCalendar) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	f.mu.Lock()
	_, ok := f.events[id]
	delete(f.events, id)
	f.mu.Unlock()
	if !ok {
		writeGoogleError(w, http.StatusNotFound, "Not Found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
