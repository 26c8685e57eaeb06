package domain

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar wire format for all-day dates.
const DateLayout = "2006-01-02"

// EventTime is one endpoint of an event. Exactly one of DateTime or Date is set.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// IsDate reports whether the endpoint is an all-day date.
func (t EventTime) IsDate() bool {
	return t.DateTime == "" && t.Date != ""
}

// IsZero reports whether neither field is populated.
func (t EventTime) IsZero() bool {
	return t.DateTime == "" && t.Date == ""
}

// Time parses the endpoint into a time.Time. All-day dates resolve to
// midnight in loc (UTC when loc is nil).
func (t EventTime) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	if t.Date != "" {
		return time.ParseInLocation(DateLayout, t.Date, loc)
	}
	return time.Time{}, errors.New("event time has neither dateTime nor date")
}

// Event is a calendar event as owned by the remote provider.
type Event struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	IsAllDay    bool      `json:"isAllDay,omitempty"`
}

// Validate checks the endpoint invariant: exactly one of dateTime/date per
// endpoint, and the same kind on both ends.
func (e Event) Validate() error {
	for name, et := range map[string]EventTime{"start": e.Start, "end": e.End} {
		if et.IsZero() {
			return fmt.Errorf("%s: missing dateTime or date", name)
		}
		if et.DateTime != "" && et.Date != "" {
			return fmt.Errorf("%s: both dateTime and date set", name)
		}
	}
	if e.Start.IsDate() != e.End.IsDate() {
		return errors.New("start and end must both be dates or both be date-times")
	}
	return nil
}

// EventPatch carries the fields of a partial update. Nil fields are left
// unchanged; Start and End are merged one level deep.
type EventPatch struct {
	Summary     *string    `json:"summary,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Start       *EventTime `json:"start,omitempty"`
	End         *EventTime `json:"end,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Summary == nil && p.Description == nil && p.Location == nil && p.Start == nil && p.End == nil
}
