package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/kalend/internal/domain"
)

// EventWhen splits an event's start into a day label and a time label.
// All-day events report "all day"; unparseable times come back raw.
func EventWhen(e domain.Event, now time.Time, loc *time.Location) (day, clock string) {
	start, err := e.Start.Time(loc)
	if err != nil {
		return domain.CoalesceStr(e.Start.DateTime, e.Start.Date), ""
	}
	start = start.In(loc)
	day = RelativeDateFrom(start, now)
	if e.Start.IsDate() {
		return day, "all day"
	}
	clock = start.Format("3:04 PM")
	if end, err := e.End.Time(loc); err == nil && end.After(start) {
		clock += " " + Dim("("+FormatDuration(end.Sub(start))+")")
	}
	return day, clock
}

// FormatEvents renders events as a table in loc, relative to now.
func FormatEvents(events []domain.Event, now time.Time, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(Header("Events"))
	b.WriteString("\n\n")

	if len(events) == 0 {
		b.WriteString(Dim("  No events in this period."))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(events))
	for _, e := range events {
		day, clock := EventWhen(e, now, loc)
		rows = append(rows, []string{
			Bold(day),
			clock,
			domain.CoalesceStr(e.Summary, "(untitled)"),
			StyleDim.Render(e.Location),
			TruncID(e.ID),
		})
	}
	b.WriteString(RenderTable([]string{"DAY", "TIME", "EVENT", "WHERE", "ID"}, rows))
	b.WriteString("\n")
	b.WriteString(Dim(fmt.Sprintf("  %d event(s)", len(events))))
	b.WriteString("\n")
	return b.String()
}
