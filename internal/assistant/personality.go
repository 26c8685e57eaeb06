package assistant

import (
	"sort"
	"strings"
)

// Personalities are the named reply styles a session can pick.
var Personalities = map[string]string{
	"friendly":     "Friendly and warm helper who uses emojis frequently",
	"professional": "Professional and efficient assistant focused on time management",
	"motivational": "Motivational coach who encourages and inspires planning",
	"witty":        "Witty helper with a good sense of humor",
	"minimalist":   "Minimalist who values simplicity and clarity",
}

// PersonalityNames returns the preset keys in sorted order.
func PersonalityNames() []string {
	names := make([]string, 0, len(Personalities))
	for k := range Personalities {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ResolvePersonality maps a preset key to its description. Any other
// non-empty value is used as a free-form description.
func ResolvePersonality(p string) string {
	p = strings.TrimSpace(p)
	if desc, ok := Personalities[strings.ToLower(p)]; ok {
		return desc
	}
	return p
}
