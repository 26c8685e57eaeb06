package formatter

import (
	"strings"
	"time"

	"github.com/alexanderramin/kalend/internal/assistant"
	"github.com/alexanderramin/kalend/internal/domain"
)

// FormatReply renders the assistant's reply, in red when the turn failed.
func FormatReply(resp *assistant.ChatResponse) string {
	if resp == nil {
		return ""
	}
	label := StylePurple.Render("kalend: ")
	if resp.Error {
		return label + ErrorText(resp.Response)
	}
	return label + StyleFg.Render(resp.Response)
}

// FormatOperations renders the per-operation log of a turn. It returns an
// empty string when no operation ran.
func FormatOperations(results []assistant.OperationResult, loc *time.Location) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range results {
		b.WriteString("  ")
		b.WriteString(Mark(r.Success))
		b.WriteString(" ")
		b.WriteString(OpBadge(r.Type))
		if r.Error != "" {
			b.WriteString(" ")
			b.WriteString(ErrorText(r.Error))
		}
		b.WriteString("\n")
		for _, it := range r.Items() {
			b.WriteString("      ")
			b.WriteString(Mark(it.Success))
			b.WriteString(" ")
			b.WriteString(domain.CoalesceStr(it.Summary, "(untitled)"))
			if when := itemWhen(it.Start, loc); when != "" {
				b.WriteString(" ")
				b.WriteString(Dim(when))
			}
			if it.Error != "" {
				b.WriteString(" ")
				b.WriteString(ErrorText(it.Error))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func itemWhen(s string, loc *time.Location) string {
	if s == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc).Format("Mon Jan 2, 3:04 PM")
	}
	if t, err := time.Parse(domain.DateLayout, s); err == nil {
		return t.Format("Mon Jan 2")
	}
	return s
}
