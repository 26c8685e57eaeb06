package domain

import (
	"fmt"
	"time"
)

// TimeInfo is the user's local notion of "now", supplied by the client.
type TimeInfo struct {
	Date      string `json:"date"`               // YYYY-MM-DD
	Time      string `json:"time,omitempty"`     // HH:MM
	Timezone  string `json:"timezone,omitempty"` // IANA name
	LocalTime string `json:"localTime,omitempty"`
}

// TimeInfoAt builds a TimeInfo for now in loc.
func TimeInfoAt(now time.Time, loc *time.Location) TimeInfo {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return TimeInfo{
		Date:      local.Format(DateLayout),
		Time:      local.Format("15:04"),
		Timezone:  loc.String(),
		LocalTime: local.Format("Monday, January 2, 2006 3:04 PM"),
	}
}

// Location resolves the timezone, defaulting to UTC when unset or unknown.
func (ti TimeInfo) Location() *time.Location {
	if ti.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(ti.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Today returns midnight of ti.Date in the user's timezone.
func (ti TimeInfo) Today() (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, ti.Date, ti.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", ti.Date, err)
	}
	return day, nil
}

// DayRange returns [today 00:00, today+days 23:59:59] in the user's timezone.
func (ti TimeInfo) DayRange(days int) (time.Time, time.Time, error) {
	start, err := ti.Today()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := EndOfDay(start.AddDate(0, 0, days))
	return start, end, nil
}

// EndOfDay returns 23:59:59 on the day of t, in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
