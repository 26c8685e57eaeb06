package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/kalend/internal/assistant"
	"github.com/alexanderramin/kalend/internal/cli/formatter"
	"github.com/alexanderramin/kalend/internal/domain"
)

func newAskCmd(app *App) *cobra.Command {
	var sessionID, personality string
	cmd := &cobra.Command{
		Use:   `ask "<message>"`,
		Short: "Send a single message to the assistant",
		Long: "Run one chat turn: the message is interpreted, the calendar is updated\n" +
			"and the assistant's reply is printed with a log of what was done.",
		Example: `  kalend ask "lunch with Sam tomorrow at noon"
  kalend ask "what's on this week?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireChat(); err != nil {
				return err
			}
			req := assistant.ChatRequest{
				UserID:      app.UserID,
				Message:     strings.Join(args, " "),
				SessionID:   sessionID,
				Personality: domain.CoalesceStr(personality, app.Personality),
			}

			stop := func() {}
			if app.Interactive {
				stop = formatter.StartSpinner(cmd.ErrOrStderr(), "Thinking...")
			}
			resp, err := app.Chat.Turn(cmd.Context(), req)
			stop()
			if err != nil {
				return turnError(err)
			}

			printTurn(cmd.OutOrStdout(), resp, app.location())
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id to continue a stored conversation")
	addPersonalityFlag(cmd, &personality)
	return cmd
}

// printTurn writes the reply followed by the operation log.
func printTurn(w io.Writer, resp *assistant.ChatResponse, loc *time.Location) {
	fmt.Fprintln(w, formatter.FormatReply(resp))
	if ops := formatter.FormatOperations(resp.Operations, loc); ops != "" {
		fmt.Fprintln(w)
		fmt.Fprint(w, ops)
	}
}

// turnError adds a hint to errors the user can act on.
func turnError(err error) error {
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage):
		return fmt.Errorf("%w: say what you want to do, e.g. kalend ask \"dentist friday 3pm\"", err)
	case errors.Is(err, assistant.ErrSessionNotOwned):
		return fmt.Errorf("%w (pass --user for the session owner)", err)
	}
	return err
}
