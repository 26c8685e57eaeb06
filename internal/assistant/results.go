package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/kalend/internal/domain"
)

// ItemResult is the outcome for one event inside an operation.
type ItemResult struct {
	ID      string `json:"id,omitempty"`
	Summary string `json:"summary"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// OperationResult is the outcome of one operation. Only the slice matching
// Type is populated: Events for create and view, Updates for update,
// Deletions for delete.
type OperationResult struct {
	Type      OpType       `json:"type"`
	Success   bool         `json:"success"`
	Events    []ItemResult `json:"events,omitempty"`
	Updates   []ItemResult `json:"updates,omitempty"`
	Deletions []ItemResult `json:"deletions,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Items returns the populated item slice.
func (r OperationResult) Items() []ItemResult {
	switch r.Type {
	case OpUpdate:
		return r.Updates
	case OpDelete:
		return r.Deletions
	default:
		return r.Events
	}
}

func itemFor(e domain.Event) ItemResult {
	return ItemResult{
		ID:      e.ID,
		Summary: e.Summary,
		Start:   domain.CoalesceStr(e.Start.DateTime, e.Start.Date),
		End:     domain.CoalesceStr(e.End.DateTime, e.End.Date),
	}
}

func succeeded(e domain.Event) ItemResult {
	it := itemFor(e)
	it.Success = true
	return it
}

func failed(e domain.Event, err error) ItemResult {
	it := itemFor(e)
	it.Error = err.Error()
	return it
}

func anySucceeded(items []ItemResult) bool {
	for _, it := range items {
		if it.Success {
			return true
		}
	}
	return false
}

// Summary renders results as plain text: counts and titles per operation
// type, with successes and failures listed separately. The output depends
// only on results and loc.
func Summary(results []OperationResult, loc *time.Location) string {
	if len(results) == 0 {
		return "No calendar actions were taken."
	}
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	for _, r := range results {
		ok, bad := splitItems(r.Items())
		switch r.Type {
		case OpView:
			if r.Error != "" {
				fmt.Fprintf(&b, "Could not fetch events: %s\n", r.Error)
				continue
			}
			if len(ok) == 0 {
				b.WriteString("No events found in that period.\n")
				continue
			}
			fmt.Fprintf(&b, "Found %s:\n", plural(len(ok), "event"))
			writeItems(&b, ok, loc)
		default:
			verb := pastTense[r.Type]
			if len(ok) > 0 {
				fmt.Fprintf(&b, "%s %s:\n", capitalize(verb), plural(len(ok), "event"))
				writeItems(&b, ok, loc)
			}
			if len(bad) > 0 {
				fmt.Fprintf(&b, "Failed to %s %s:\n", presentTense[r.Type], plural(len(bad), "event"))
				for _, it := range bad {
					fmt.Fprintf(&b, "- %s: %s\n", itemLabel(it, loc), it.Error)
				}
			}
			if len(ok) == 0 && len(bad) == 0 {
				msg := domain.CoalesceStr(r.Error, "nothing to do")
				fmt.Fprintf(&b, "Could not %s: %s\n", presentTense[r.Type], msg)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

var pastTense = map[OpType]string{
	OpCreate: "created",
	OpUpdate: "updated",
	OpDelete: "deleted",
}

var presentTense = map[OpType]string{
	OpCreate: "create",
	OpUpdate: "update",
	OpDelete: "delete",
}

func splitItems(items []ItemResult) (ok, bad []ItemResult) {
	for _, it := range items {
		if it.Success {
			ok = append(ok, it)
		} else {
			bad = append(bad, it)
		}
	}
	return ok, bad
}

func writeItems(b *strings.Builder, items []ItemResult, loc *time.Location) {
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", itemLabel(it, loc))
	}
}

func itemLabel(it ItemResult, loc *time.Location) string {
	title := domain.CoalesceStr(it.Summary, "(untitled)")
	when := formatWhen(it.Start, loc)
	if when == "" {
		return fmt.Sprintf("%q", title)
	}
	return fmt.Sprintf("%q (%s)", title, when)
}

func formatWhen(s string, loc *time.Location) string {
	if s == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc).Format("Mon Jan 2, 3:04 PM")
	}
	if t, err := time.Parse(domain.DateLayout, s); err == nil {
		return t.Format("Mon Jan 2") + ", all day"
	}
	return s
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
