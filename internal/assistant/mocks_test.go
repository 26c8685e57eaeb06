package assistant

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/gcal"
	"github.com/alexanderramin/kalend/internal/llm"
)

// mockLLMClient replays scripted responses in order and records requests.
type mockLLMClient struct {
	mu        sync.Mutex
	responses []string
	err       error
	errs      []error
	requests  []llm.GenerateRequest
}

func (m *mockLLMClient) Generate(_ context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.requests)
	m.requests = append(m.requests, req)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return &llm.GenerateResponse{Text: "", Model: "gemini-2.5-flash"}, nil
	}
	text := m.responses[min(i, len(m.responses)-1)]
	return &llm.GenerateResponse{Text: text, Model: "gemini-2.5-flash"}, nil
}

func (m *mockLLMClient) Available(_ context.Context) bool { return m.err == nil }

func (m *mockLLMClient) calls() []llm.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.GenerateRequest(nil), m.requests...)
}

// memCalendar is an in-memory Calendar with per-summary failure injection.
type memCalendar struct {
	mu      sync.Mutex
	events  map[string]domain.Event
	nextID  int
	failOn  map[string]error // keyed by summary (create) or id (update/delete)
	listErr error
	calls   []string
	ranges  [][2]time.Time
}

func newMemCalendar(seed ...domain.Event) *memCalendar {
	c := &memCalendar{events: make(map[string]domain.Event), failOn: make(map[string]error)}
	for _, e := range seed {
		if e.ID == "" {
			c.nextID++
			e.ID = fmt.Sprintf("mem%d", c.nextID)
		}
		c.events[e.ID] = e
	}
	return c
}

func (c *memCalendar) List(_ context.Context, _ string, start, end time.Time) ([]domain.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "list")
	c.ranges = append(c.ranges, [2]time.Time{start, end})
	if c.listErr != nil {
		return nil, c.listErr
	}
	var out []domain.Event
	for _, e := range c.events {
		st, err := e.Start.Time(nil)
		if err != nil {
			continue
		}
		if !st.Before(start) && !st.After(end) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.DateTime < out[j].Start.DateTime })
	return out, nil
}

func (c *memCalendar) ListCurrentWeek(ctx context.Context, userID string, now time.Time) ([]domain.Event, error) {
	c.mu.Lock()
	c.calls = append(c.calls, "listWeek")
	c.mu.Unlock()
	start, end := gcal.WeekBounds(now)
	return c.List(ctx, userID, start, end)
}

func (c *memCalendar) Create(_ context.Context, _ string, e domain.Event) (*domain.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "create:"+e.Summary)
	if err := c.failOn[e.Summary]; err != nil {
		return nil, err
	}
	c.nextID++
	e.ID = fmt.Sprintf("mem%d", c.nextID)
	c.events[e.ID] = e
	return &e, nil
}

func (c *memCalendar) Update(_ context.Context, _ string, id string, p domain.EventPatch) (*domain.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "update:"+id)
	if err := c.failOn[id]; err != nil {
		return nil, err
	}
	e, ok := c.events[id]
	if !ok {
		return nil, &gcal.ProviderError{Status: 404, Message: "Not Found"}
	}
	if p.Summary != nil {
		e.Summary = *p.Summary
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Start != nil {
		e.Start = *p.Start
	}
	if p.End != nil {
		e.End = *p.End
	}
	c.events[id] = e
	return &e, nil
}

func (c *memCalendar) Delete(_ context.Context, _ string, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, "delete:"+id)
	if err := c.failOn[id]; err != nil {
		return false, err
	}
	delete(c.events, id)
	return true, nil
}

func (c *memCalendar) callLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

var errBoom = errors.New("boom")
