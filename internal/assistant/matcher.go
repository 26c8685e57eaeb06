package assistant

import (
	"strings"

	"github.com/alexanderramin/kalend/internal/domain"
)

// synonyms expands a lower-cased identifier into extra keywords. Keys are
// common misspellings or shorthands; values include the corrected forms.
var synonyms = map[string][]string{
	"grocerries": {"grocery", "groceries", "shopping"},
	"grocceries": {"grocery", "groceries", "shopping"},
	"grocery":    {"groceries", "shopping"},
	"groceries":  {"grocery", "shopping"},
	"meating":    {"meeting"},
	"meetting":   {"meeting"},
	"mtg":        {"meeting"},
	"appt":       {"appointment"},
	"apointment": {"appointment"},
	"dr":         {"doctor"},
	"docter":     {"doctor"},
	"dentist":    {"dental"},
	"bday":       {"birthday"},
	"b-day":      {"birthday"},
	"birthdya":   {"birthday"},
	"excercise":  {"exercise", "workout", "gym"},
	"workout":    {"exercise", "gym"},
	"gym":        {"workout", "exercise"},
	"standup":    {"stand-up", "stand up"},
	"1:1":        {"one on one", "1on1"},
}

// Match returns the events referred to by identifiers. With no identifiers
// every event is returned. The filter is permissive and unranked: an event
// is kept when any expanded keyword hits it.
func Match(events []domain.Event, identifiers []string) []domain.Event {
	if len(identifiers) == 0 {
		return events
	}
	keywords := expandIdentifiers(identifiers)
	var out []domain.Event
	for _, e := range events {
		if matchesAny(e, keywords) {
			out = append(out, e)
		}
	}
	return out
}

func expandIdentifiers(identifiers []string) []string {
	seen := make(map[string]bool)
	var keywords []string
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			keywords = append(keywords, k)
		}
	}
	for _, id := range identifiers {
		k := strings.ToLower(strings.TrimSpace(id))
		add(k)
		for _, s := range synonyms[k] {
			add(s)
		}
		for _, tok := range strings.Fields(k) {
			for _, s := range synonyms[tok] {
				add(s)
			}
		}
	}
	return keywords
}

func matchesAny(e domain.Event, keywords []string) bool {
	summary := strings.ToLower(e.Summary)
	description := strings.ToLower(e.Description)
	for _, k := range keywords {
		if strings.Contains(summary, k) || (description != "" && strings.Contains(description, k)) {
			return true
		}
		if summary != "" && strings.Contains(k, summary) {
			return true
		}
		if summary == "" {
			continue
		}
		for _, tok := range strings.Fields(k) {
			if strings.Contains(summary, tok) {
				return true
			}
		}
	}
	return false
}
