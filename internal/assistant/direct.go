package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/gcal"
)

// Direct function names accepted by the Dispatcher.
const (
	FnGetEvents   = "getCalendarEvents"
	FnCreateEvent = "createCalendarEvent"
	FnUpdateEvent = "updateCalendarEvent"
	FnDeleteEvent = "deleteCalendarEvent"
)

// FunctionNames lists the supported direct functions.
var FunctionNames = []string{FnGetEvents, FnCreateEvent, FnUpdateEvent, FnDeleteEvent}

// FunctionCall is a direct calendar call that skips the LLM.
type FunctionCall struct {
	Name string          `json:"functionName"`
	Args json.RawMessage `json:"args,omitempty"`
}

// FunctionResult carries Data on success and Error otherwise.
type FunctionResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	err     error
}

// Err returns the underlying failure, or nil.
func (r FunctionResult) Err() error { return r.err }

type getEventsArgs struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

type updateEventArgs struct {
	EventID string `json:"eventId"`
	domain.EventPatch
}

type deleteEventArgs struct {
	EventID string `json:"eventId"`
}

// Dispatcher maps direct function calls onto the calendar.
type Dispatcher struct {
	cal    Calendar
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location
}

// NewDispatcher creates a Dispatcher. Dates without an offset are read in loc.
func NewDispatcher(cal Calendar, loc *time.Location, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{cal: cal, logger: logger, now: time.Now, loc: loc}
}

// Call runs fc for userID.
func (d *Dispatcher) Call(ctx context.Context, userID string, fc FunctionCall) FunctionResult {
	data, err := d.call(ctx, userID, fc)
	if err != nil {
		d.logger.WarnContext(ctx, "direct call failed", "user", userID, "function", fc.Name, "error", err)
		return FunctionResult{Error: err.Error(), err: err}
	}
	return FunctionResult{Success: true, Data: data}
}

func (d *Dispatcher) call(ctx context.Context, userID string, fc FunctionCall) (any, error) {
	switch fc.Name {
	case FnGetEvents:
		var args getEventsArgs
		if err := decodeArgs(fc.Args, &args); err != nil {
			return nil, err
		}
		events, err := d.listEvents(ctx, userID, args)
		if err != nil {
			return nil, err
		}
		if events == nil {
			events = []domain.Event{}
		}
		return events, nil

	case FnCreateEvent:
		var e domain.Event
		if err := decodeArgs(fc.Args, &e); err != nil {
			return nil, err
		}
		if e.Summary == "" {
			return nil, errors.New("summary is required")
		}
		if err := e.Validate(); err != nil {
			return nil, err
		}
		return d.cal.Create(ctx, userID, e)

	case FnUpdateEvent:
		var args updateEventArgs
		if err := decodeArgs(fc.Args, &args); err != nil {
			return nil, err
		}
		if args.EventID == "" {
			return nil, errors.New("eventId is required")
		}
		return d.cal.Update(ctx, userID, args.EventID, args.EventPatch)

	case FnDeleteEvent:
		var args deleteEventArgs
		if err := decodeArgs(fc.Args, &args); err != nil {
			return nil, err
		}
		if args.EventID == "" {
			return nil, errors.New("eventId is required")
		}
		ok, err := d.cal.Delete(ctx, userID, args.EventID)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"deleted": ok}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, fc.Name)
}

func (d *Dispatcher) listEvents(ctx context.Context, userID string, args getEventsArgs) ([]domain.Event, error) {
	if args.StartDate == "" && args.EndDate == "" {
		if wl, ok := d.cal.(WeekLister); ok {
			return wl.ListCurrentWeek(ctx, userID, d.now().In(d.loc))
		}
	}
	start, end, err := d.eventsRange(args)
	if err != nil {
		return nil, err
	}
	return d.cal.List(ctx, userID, start, end)
}

// eventsRange defaults to the current week. A date-only end is exclusive,
// except that an end equal to the start selects that whole day.
func (d *Dispatcher) eventsRange(args getEventsArgs) (time.Time, time.Time, error) {
	if args.StartDate == "" && args.EndDate == "" {
		start, end := gcal.WeekBounds(d.now().In(d.loc))
		return start, end, nil
	}
	start, _, err := parseModelTime(domain.CoalesceStr(args.StartDate, args.EndDate), d.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("startDate: %w", err)
	}
	if args.EndDate == "" {
		return start, domain.EndOfDay(start), nil
	}
	end, endIsDate, err := parseModelTime(args.EndDate, d.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("endDate: %w", err)
	}
	if endIsDate && end.Equal(start) {
		return start, domain.EndOfDay(start), nil
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("endDate must be after startDate")
	}
	return start, end, nil
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid args: %w", err)
	}
	return nil
}
