package cli

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/kalend/internal/assistant"
)

func newCallCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <function> ['<json args>']",
		Short: "Call a calendar function directly, without the LLM",
		Long: "Run one direct calendar function and print the JSON result.\n\n" +
			"Functions: " + strings.Join(assistant.FunctionNames, ", "),
		Example: `  kalend call getCalendarEvents '{"startDate":"2025-06-09","endDate":"2025-06-16"}'
  kalend call deleteCalendarEvent '{"eventId":"abc123"}'`,
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: assistant.FunctionNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc := assistant.FunctionCall{Name: args[0]}
			if len(args) == 2 {
				raw := []byte(args[1])
				if !json.Valid(raw) {
					return fmt.Errorf("args are not valid JSON: %s", args[1])
				}
				fc.Args = raw
			}

			res := app.Calls.Call(cmd.Context(), app.UserID, fc)
			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if !res.Success {
				return fmt.Errorf("%s failed: %s", fc.Name, res.Error)
			}
			return nil
		},
	}
	return cmd
}
