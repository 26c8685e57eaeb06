package cli

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/kalend/internal/auth"
	"github.com/alexanderramin/kalend/internal/cli/formatter"
)

func newAuthCmd(app *App) *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Connect your Google Calendar",
		Long: "Open the printed link, grant calendar access and paste back the code\n" +
			"(or the URL you were redirected to). The credential is stored locally.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.OAuth.Configured() {
				return errors.New("OAuth is not configured: set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET")
			}
			out := cmd.OutOrStdout()

			if code == "" {
				url := auth.AuthCodeURL(app.OAuth, uuid.New().String())
				fmt.Fprintln(out, formatter.RenderBox("Connect Google Calendar", "Open this link and approve access:\n\n"+formatter.StyleBlue.Render(url)))
				fmt.Fprintln(out)

				input, err := readAuthCode(cmd, app.Interactive)
				if err != nil {
					return err
				}
				code = input
			}
			parsed, err := parseAuthCode(code)
			if err != nil {
				return err
			}

			exchange := app.Exchange
			if exchange == nil {
				exchange = auth.Exchange
			}
			cred, err := exchange(cmd.Context(), app.OAuth, app.UserID, parsed)
			if err != nil {
				return err
			}
			if cred.RefreshToken == "" {
				app.logger().Warn("consent returned no refresh token", "user", app.UserID)
			}
			if err := app.Credentials.Upsert(cmd.Context(), &cred); err != nil {
				return fmt.Errorf("store credential: %w", err)
			}

			fmt.Fprintf(out, "%s Connected calendar for %s\n", formatter.Mark(true), formatter.Bold(app.UserID))
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "authorization code, skips the prompt")
	return cmd
}

// readAuthCode prompts with huh on a terminal and reads one line otherwise.
func readAuthCode(cmd *cobra.Command, interactive bool) (string, error) {
	if interactive {
		var value string
		if err := authCodeForm(&value).Run(); err != nil {
			return "", err
		}
		return value, nil
	}
	fmt.Fprint(cmd.OutOrStdout(), "Authorization code: ")
	sc := bufio.NewScanner(cmd.InOrStdin())
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no authorization code given")
	}
	return sc.Text(), nil
}
