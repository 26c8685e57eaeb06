package cli

import (
	"errors"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/alexanderramin/kalend/internal/cli/formatter"
)

// kalendHuhTheme applies the formatter palette to huh prompts.
func kalendHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(formatter.ColorRed)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

// authCodeForm asks for the authorization code or the redirected URL.
func authCodeForm(value *string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Authorization code").
				Description("Paste the code, or the whole URL you were redirected to.").
				Placeholder("4/0Ab...").
				Value(value).
				Validate(func(s string) error {
					_, err := parseAuthCode(s)
					return err
				}),
		),
	).WithTheme(kalendHuhTheme()).WithShowHelp(false)
}

// parseAuthCode accepts a bare code or a redirect URL carrying ?code=.
func parseAuthCode(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("code is required")
	}
	if strings.Contains(s, "code=") {
		raw := s
		if i := strings.Index(raw, "?"); i >= 0 {
			raw = raw[i+1:]
		}
		q, err := url.ParseQuery(raw)
		if err != nil {
			return "", errors.New("could not read code from URL")
		}
		if e := q.Get("error"); e != "" {
			return "", errors.New("consent denied: " + e)
		}
		if c := q.Get("code"); c != "" {
			return c, nil
		}
		return "", errors.New("URL has no code parameter")
	}
	return s, nil
}
