// Package ics exports calendar events as iCalendar data.
package ics

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/alexanderramin/kalend/internal/domain"
)

const productID = "-//kalend//EN"

// Encode writes events as a VCALENDAR to w. stamp is used for DTSTAMP.
func Encode(w io.Writer, events []domain.Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, e := range events {
		ve, err := toComponent(e, stamp)
		if err != nil {
			return fmt.Errorf("event %q: %w", e.Summary, err)
		}
		cal.Children = append(cal.Children, ve)
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}
	return nil
}

func toComponent(e domain.Event, stamp time.Time) (*ical.Component, error) {
	ve := ical.NewComponent(ical.CompEvent)
	uid := e.ID
	if uid == "" {
		uid = fmt.Sprintf("%s-%d", domain.CoalesceStr(e.Start.DateTime, e.Start.Date), stamp.UnixNano())
	}
	ve.Props.SetText(ical.PropUID, uid+"@kalend")
	ve.Props.SetText(ical.PropSummary, e.Summary)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	if e.Description != "" {
		ve.Props.SetText(ical.PropDescription, e.Description)
	}
	if e.Location != "" {
		ve.Props.SetText(ical.PropLocation, e.Location)
	}

	start, err := e.Start.Time(nil)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	end, err := e.End.Time(nil)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	if e.Start.IsDate() {
		ve.Props.SetDate(ical.PropDateTimeStart, start)
		ve.Props.SetDate(ical.PropDateTimeEnd, end)
	} else {
		ve.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		ve.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
	}
	return ve, nil
}
