package assistant

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alexanderramin/kalend/internal/domain"
)

// OpType names an operation variant.
type OpType string

const (
	OpCreate OpType = "create"
	OpView   OpType = "view"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// execRank is the fixed execution order: creates, updates, views, deletes.
var execRank = map[OpType]int{
	OpCreate: 0,
	OpUpdate: 1,
	OpView:   2,
	OpDelete: 3,
}

// TimeRange is a closed interval in the user's timezone.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Operation is one of CreateOperation, ViewOperation, UpdateOperation or
// DeleteOperation.
type Operation interface {
	Type() OpType
	operation()
}

// CreateOperation adds each event independently.
type CreateOperation struct {
	Events []domain.Event
}

// ViewOperation lists events. A nil Range selects the default window.
type ViewOperation struct {
	Range *TimeRange
}

// UpdateOperation applies Changes to every event in Range matching Identifiers.
type UpdateOperation struct {
	Range       *TimeRange
	Identifiers []string
	Changes     domain.EventPatch
}

// DeleteOperation removes every event in Range matching Identifiers.
type DeleteOperation struct {
	Range       *TimeRange
	Identifiers []string
}

func (CreateOperation) Type() OpType { return OpCreate }
func (ViewOperation) Type() OpType   { return OpView }
func (UpdateOperation) Type() OpType { return OpUpdate }
func (DeleteOperation) Type() OpType { return OpDelete }

func (CreateOperation) operation() {}
func (ViewOperation) operation()   {}
func (UpdateOperation) operation() {}
func (DeleteOperation) operation() {}

// Intent is the structured reading of one chat message.
type Intent struct {
	Operations []Operation
}

// Reorder returns the operations sorted into execution order. The sort is
// stable, so operations of the same type keep their relative order.
func Reorder(ops []Operation) []Operation {
	out := append([]Operation(nil), ops...)
	sort.SliceStable(out, func(i, j int) bool {
		return execRank[out[i].Type()] < execRank[out[j].Type()]
	})
	return out
}

// wireIntent is the only JSON shape accepted from the model.
type wireIntent struct {
	Operations []wireOperation `json:"operations"`
}

type wireOperation struct {
	Type             string      `json:"type"`
	TimeRange        *wireRange  `json:"timeRange,omitempty"`
	EventDetails     *wireEvent  `json:"eventDetails,omitempty"`
	Events           []wireEvent `json:"events,omitempty"`
	EventIdentifiers []string    `json:"eventIdentifiers,omitempty"`
}

type wireRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type wireEvent struct {
	Summary       string `json:"summary,omitempty"`
	Description   string `json:"description,omitempty"`
	Location      string `json:"location,omitempty"`
	StartDateTime string `json:"startDateTime,omitempty"`
	EndDateTime   string `json:"endDateTime,omitempty"`
	StartDate     string `json:"startDate,omitempty"`
	EndDate       string `json:"endDate,omitempty"`
	TimeZone      string `json:"timeZone,omitempty"`
	IsAllDay      bool   `json:"isAllDay,omitempty"`
}

// validateWire checks the shape before conversion.
func validateWire(w wireIntent) error {
	if w.Operations == nil {
		return errors.New(`missing "operations"`)
	}
	for i, op := range w.Operations {
		switch OpType(op.Type) {
		case OpCreate:
			if op.EventDetails == nil && len(op.Events) == 0 {
				return fmt.Errorf("operation %d: create needs eventDetails or events", i)
			}
		case OpUpdate:
			if op.EventDetails == nil {
				return fmt.Errorf("operation %d: update needs eventDetails", i)
			}
		case OpView, OpDelete:
		default:
			return fmt.Errorf("operation %d: unknown type %q", i, op.Type)
		}
	}
	return nil
}

// toIntent converts validated wire data into operations, resolving all
// times in loc.
func (w wireIntent) toIntent(loc *time.Location) (*Intent, error) {
	intent := &Intent{Operations: make([]Operation, 0, len(w.Operations))}
	for i, op := range w.Operations {
		converted, err := op.toOperation(loc)
		if err != nil {
			return nil, fmt.Errorf("operation %d (%s): %w", i, op.Type, err)
		}
		intent.Operations = append(intent.Operations, converted)
	}
	return intent, nil
}

func (op wireOperation) toOperation(loc *time.Location) (Operation, error) {
	var rng *TimeRange
	if op.TimeRange != nil && (op.TimeRange.Start != "" || op.TimeRange.End != "") {
		r, err := op.TimeRange.resolve(loc)
		if err != nil {
			return nil, err
		}
		rng = r
	}

	switch OpType(op.Type) {
	case OpCreate:
		items := op.Events
		if op.EventDetails != nil {
			items = append([]wireEvent{*op.EventDetails}, items...)
		}
		events := make([]domain.Event, 0, len(items))
		for j, we := range items {
			e, err := we.toEvent(loc)
			if err != nil {
				return nil, fmt.Errorf("event %d: %w", j, err)
			}
			events = append(events, e)
		}
		return CreateOperation{Events: events}, nil
	case OpView:
		return ViewOperation{Range: rng}, nil
	case OpUpdate:
		patch, err := op.EventDetails.toPatch(loc)
		if err != nil {
			return nil, err
		}
		return UpdateOperation{Range: rng, Identifiers: cleanIdentifiers(op.EventIdentifiers), Changes: patch}, nil
	case OpDelete:
		return DeleteOperation{Range: rng, Identifiers: cleanIdentifiers(op.EventIdentifiers)}, nil
	}
	return nil, fmt.Errorf("unknown type %q", op.Type)
}

func cleanIdentifiers(ids []string) []string {
	var out []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// resolve reads a model range. A missing end closes the range at the end of
// the start day; a missing start opens it at the start of the end day.
func (r wireRange) resolve(loc *time.Location) (*TimeRange, error) {
	startStr, endStr := domain.CoalesceStr(r.Start, r.End), domain.CoalesceStr(r.End, r.Start)
	start, startIsDate, err := parseModelTime(startStr, loc)
	if err != nil {
		return nil, fmt.Errorf("timeRange.start: %w", err)
	}
	if r.Start == "" && !startIsDate {
		y, m, d := start.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	end, endIsDate, err := parseModelTime(endStr, loc)
	if err != nil {
		return nil, fmt.Errorf("timeRange.end: %w", err)
	}
	if endIsDate || r.End == "" {
		end = domain.EndOfDay(end)
	}
	if end.Before(start) {
		return nil, errors.New("timeRange ends before it starts")
	}
	return &TimeRange{Start: start, End: end}, nil
}

func (we wireEvent) toEvent(loc *time.Location) (domain.Event, error) {
	if strings.TrimSpace(we.Summary) == "" {
		return domain.Event{}, errors.New("summary is required")
	}
	e := domain.Event{
		Summary:     strings.TrimSpace(we.Summary),
		Description: we.Description,
		Location:    we.Location,
	}
	eloc := eventLocation(we.TimeZone, loc)

	allDay := we.IsAllDay || (we.StartDateTime == "" && we.StartDate != "")
	if allDay {
		startStr := domain.CoalesceStr(we.StartDate, we.StartDateTime)
		start, _, err := parseModelTime(startStr, eloc)
		if err != nil {
			return domain.Event{}, fmt.Errorf("start: %w", err)
		}
		end := start.AddDate(0, 0, 1)
		if endStr := domain.CoalesceStr(we.EndDate, we.EndDateTime); endStr != "" {
			parsed, _, err := parseModelTime(endStr, eloc)
			if err != nil {
				return domain.Event{}, fmt.Errorf("end: %w", err)
			}
			// All-day end dates are exclusive.
			if parsed.After(start) {
				end = parsed
			}
		}
		e.Start = domain.EventTime{Date: start.Format(domain.DateLayout)}
		e.End = domain.EventTime{Date: end.Format(domain.DateLayout)}
		e.IsAllDay = true
		return e, nil
	}

	if we.StartDateTime == "" {
		return domain.Event{}, errors.New("startDateTime or startDate is required")
	}
	start, _, err := parseModelTime(we.StartDateTime, eloc)
	if err != nil {
		return domain.Event{}, fmt.Errorf("start: %w", err)
	}
	end := start.Add(time.Hour)
	if we.EndDateTime != "" {
		if end, _, err = parseModelTime(we.EndDateTime, eloc); err != nil {
			return domain.Event{}, fmt.Errorf("end: %w", err)
		}
		if !end.After(start) {
			return domain.Event{}, errors.New("end must be after start")
		}
	}
	e.Start = timedEndpoint(start, eloc)
	e.End = timedEndpoint(end, eloc)
	return e, nil
}

func (we *wireEvent) toPatch(loc *time.Location) (domain.EventPatch, error) {
	p := domain.EventPatch{
		Summary:     domain.StrPtr(strings.TrimSpace(we.Summary)),
		Description: domain.StrPtr(we.Description),
		Location:    domain.StrPtr(we.Location),
	}
	eloc := eventLocation(we.TimeZone, loc)

	endpoint := func(dateTime, date string) (*domain.EventTime, error) {
		switch {
		case dateTime != "" && !we.IsAllDay:
			t, _, err := parseModelTime(dateTime, eloc)
			if err != nil {
				return nil, err
			}
			et := timedEndpoint(t, eloc)
			return &et, nil
		case date != "" || dateTime != "":
			t, _, err := parseModelTime(domain.CoalesceStr(date, dateTime), eloc)
			if err != nil {
				return nil, err
			}
			return &domain.EventTime{Date: t.Format(domain.DateLayout)}, nil
		}
		return nil, nil
	}

	var err error
	if p.Start, err = endpoint(we.StartDateTime, we.StartDate); err != nil {
		return p, fmt.Errorf("start: %w", err)
	}
	if p.End, err = endpoint(we.EndDateTime, we.EndDate); err != nil {
		return p, fmt.Errorf("end: %w", err)
	}
	if p.IsEmpty() {
		return p, errors.New("update has no changes")
	}
	return p, nil
}

func timedEndpoint(t time.Time, loc *time.Location) domain.EventTime {
	return domain.EventTime{DateTime: t.In(loc).Format(time.RFC3339), TimeZone: loc.String()}
}

func eventLocation(tz string, fallback *time.Location) *time.Location {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return fallback
}

// modelLayouts are the local-time forms models emit besides RFC 3339.
var modelLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseModelTime parses a model-supplied timestamp. Strings without an
// offset are read in loc. The bool reports a bare date.
func parseModelTime(s string, loc *time.Location) (time.Time, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false, errors.New("empty time")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), false, nil
	}
	for _, layout := range modelLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, false, nil
		}
	}
	if t, err := time.ParseInLocation(domain.DateLayout, s, loc); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("unrecognised time %q", s)
}
