package gcal

import (
	"github.com/alexanderramin/kalend/internal/domain"
	"google.golang.org/api/calendar/v3"
)

func toEventTime(dt *calendar.EventDateTime) domain.EventTime {
	if dt == nil {
		return domain.EventTime{}
	}
	return domain.EventTime{DateTime: dt.DateTime, Date: dt.Date, TimeZone: dt.TimeZone}
}

func fromEventTime(et domain.EventTime) *calendar.EventDateTime {
	return &calendar.EventDateTime{DateTime: et.DateTime, Date: et.Date, TimeZone: et.TimeZone}
}

// toDomain converts an API event. An event is all-day when its start is a date.
func toDomain(e *calendar.Event) domain.Event {
	out := domain.Event{
		ID:          e.Id,
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Start:       toEventTime(e.Start),
		End:         toEventTime(e.End),
	}
	out.IsAllDay = out.Start.IsDate()
	return out
}

func fromDomain(e domain.Event) *calendar.Event {
	return &calendar.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Start:       fromEventTime(e.Start),
		End:         fromEventTime(e.End),
	}
}

// applyPatch merges p over e in place. Top-level fields are replaced when
// set; start and end are merged one level deep, so a patch that sets only
// dateTime keeps the stored timeZone. Setting one of dateTime/date clears
// the other.
func applyPatch(e *calendar.Event, p domain.EventPatch) {
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
		e.Start = mergeTime(e.Start, *p.Start)
	}
	if p.End != nil {
		e.End = mergeTime(e.End, *p.End)
	}
}

func mergeTime(dst *calendar.EventDateTime, p domain.EventTime) *calendar.EventDateTime {
	if dst == nil {
		dst = &calendar.EventDateTime{}
	}
	switch {
	case p.DateTime != "":
		dst.DateTime = p.DateTime
		dst.Date = ""
	case p.Date != "":
		dst.Date = p.Date
		dst.DateTime = ""
	}
	if p.TimeZone != "" {
		dst.TimeZone = p.TimeZone
	}
	return dst
}
