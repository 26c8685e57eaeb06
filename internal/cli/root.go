package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/kalend/internal/auth"
	"github.com/alexanderramin/kalend/internal/server"
)

// App holds the collaborators used by CLI commands.
type App struct {
	Chat        server.Chatter
	ChatErr     error
	Calls       server.Caller
	Credentials server.CredentialSaver
	OAuth       auth.OAuthConfig
	Server      server.Config

	// Exchange trades an authorization code for a credential. Defaults to
	// auth.Exchange.
	Exchange server.ExchangeFunc

	UserID      string
	Personality string
	Location    *time.Location
	Now         func() time.Time
	Logger      *slog.Logger

	// InputHistoryPath is where chat inputs are remembered. Empty keeps
	// them in memory only.
	InputHistoryPath string

	// Interactive is true when stdin and stdout are terminals.
	Interactive bool
}

// requireChat fails when no model backend could be set up.
func (a *App) requireChat() error {
	if a.Chat != nil {
		return nil
	}
	if a.ChatErr != nil {
		return fmt.Errorf("chat is unavailable: %w (set GEMINI_API_KEY, or KALEND_LLM_PROVIDER=ollama)", a.ChatErr)
	}
	return fmt.Errorf("chat is unavailable: no model configured")
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) location() *time.Location {
	if a.Location != nil {
		return a.Location
	}
	return time.Local
}

func (a *App) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// NewRootCmd creates the top-level "kalend" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "kalend",
		Short:         "Talk to your Google Calendar",
		Long:          "kalend reads plain-language requests, runs them against Google Calendar and answers in chat.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&app.UserID, "user", "u", app.UserID, "user whose calendar to use")

	root.AddCommand(
		newServeCmd(app),
		newChatCmd(app),
		newAskCmd(app),
		newAuthCmd(app),
		newEventsCmd(app),
		newCallCmd(app),
		newPersonalitiesCmd(app),
	)

	return root
}
