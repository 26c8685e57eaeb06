package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/kalend/internal/domain"
)

// extractSystemPrompt instructs the LLM to convert a chat message into calendar operations.
const extractSystemPrompt = `You are the command parser of a calendar assistant.
Your task is to convert the user's latest message into calendar operations.

You must output ONLY a JSON object of this exact shape:
{
  "operations": [
    {
      "type": "create" | "view" | "update" | "delete",
      "timeRange": { "start": "YYYY-MM-DDTHH:MM:SS", "end": "YYYY-MM-DDTHH:MM:SS" },
      "eventDetails": {
        "summary": "title",
        "description": "optional",
        "location": "optional",
        "startDateTime": "YYYY-MM-DDTHH:MM:SS",
        "endDateTime": "YYYY-MM-DDTHH:MM:SS",
        "startDate": "YYYY-MM-DD",
        "endDate": "YYYY-MM-DD",
        "isAllDay": false
      },
      "events": [ { same fields as eventDetails } ],
      "eventIdentifiers": ["words from the title of an existing event"]
    }
  ]
}

Field rules:
- create: put one event in eventDetails, or several in events. summary and a start are required.
  Timed events use startDateTime/endDateTime; all-day events use startDate/endDate with isAllDay true.
  If no duration is given, a timed event lasts one hour.
- view: timeRange only. Omit timeRange when the user gives no period.
- update: eventIdentifiers name the events to change; eventDetails holds ONLY the fields that change.
- delete: eventIdentifiers name the events to remove. Use an empty list to remove everything in timeRange.
- Omit fields you do not need. Never add fields that are not listed above.
- Write times as local wall-clock time without an offset; they are read in the user's timezone.
- If the message asks for nothing calendar-related, return {"operations": []}.
- Output ONLY the JSON object, no markdown, no explanation.`

// buildExtractUserPrompt anchors relative expressions to the user's clock.
func buildExtractUserPrompt(message string, ti domain.TimeInfo) string {
	var b strings.Builder
	b.WriteString("Current date: " + ti.Date + "\n")
	if ti.Time != "" {
		b.WriteString("Current time: " + ti.Time + "\n")
	}
	b.WriteString("Timezone: " + domain.CoalesceStr(ti.Timezone, "UTC") + "\n")
	if ti.LocalTime != "" {
		b.WriteString("Local time: " + ti.LocalTime + "\n")
	}
	if rel := relativeDates(ti); rel != "" {
		b.WriteString("\nResolve relative expressions with these dates:\n")
		b.WriteString(rel)
	}
	b.WriteString("\nUser message:\n")
	b.WriteString(message)
	return b.String()
}

// relativeDates spells out today, tonight, tomorrow, this weekend and next
// week for the user's date.
func relativeDates(ti domain.TimeInfo) string {
	today, err := ti.Today()
	if err != nil {
		return ""
	}
	day := func(t time.Time) string { return t.Format("Monday 2006-01-02") }

	satOffset := (int(time.Saturday) - int(today.Weekday()) + 7) % 7
	weekendStart := today.AddDate(0, 0, satOffset)
	if today.Weekday() == time.Sunday {
		weekendStart = today
	}
	weekendEnd := today.AddDate(0, 0, satOffset+1)
	if today.Weekday() == time.Sunday {
		weekendEnd = today
	}

	monOffset := (int(time.Monday) - int(today.Weekday()) + 7) % 7
	if monOffset == 0 {
		monOffset = 7
	}
	nextMonday := today.AddDate(0, 0, monOffset)

	lines := []string{
		fmt.Sprintf("- today: %s", day(today)),
		fmt.Sprintf("- tonight: %sT18:00:00 to %sT23:59:59", today.Format(domain.DateLayout), today.Format(domain.DateLayout)),
		fmt.Sprintf("- tomorrow: %s", day(today.AddDate(0, 0, 1))),
		fmt.Sprintf("- this weekend: %s to %s", day(weekendStart), day(weekendEnd)),
		fmt.Sprintf("- next week: %s to %s", day(nextMonday), day(nextMonday.AddDate(0, 0, 6))),
		"- \"this morning\" or \"this evening\" without a day means today",
	}
	return strings.Join(lines, "\n") + "\n"
}

// synthesizeSystemPrompt builds the reply-writing instructions.
func synthesizeSystemPrompt(personality string, ti domain.TimeInfo) string {
	persona := "friendly and concise"
	if p := strings.TrimSpace(personality); p != "" {
		persona = p
	}
	return fmt.Sprintf(`You are an AI calendar assistant.
Personality: %s
Today's date: %s

You will receive the user's message and a factual report of the calendar actions that were carried out.
Write the chat reply.

Rules:
- Respond naturally and briefly (max 100 words).
- Explain what was done, including any failures, using the event titles and times from the report.
- Never invent events or actions that are not in the report.
- Do not mention JSON, operations, or internal processing.
- If nothing was done, answer the user helpfully and say what you can do.`, persona, ti.Date)
}

func buildSynthesizeUserPrompt(message, summary string) string {
	return fmt.Sprintf("User message:\n%s\n\nReport of what happened:\n%s", message, summary)
}
