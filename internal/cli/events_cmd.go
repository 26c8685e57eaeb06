package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alexanderramin/kalend/internal/assistant"
	"github.com/alexanderramin/kalend/internal/cli/formatter"
	"github.com/alexanderramin/kalend/internal/domain"
	"github.com/alexanderramin/kalend/internal/ics"
)

// Output formats for kalend events.
const (
	formatText = "text"
	formatJSON = "json"
	formatICS  = "ics"
)

type rangeFlags struct {
	from, to string
}

func (r *rangeFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&r.from, "from", "", "start date or RFC 3339 time (default: start of this week)")
	fs.StringVar(&r.to, "to", "", "end date, exclusive, or RFC 3339 time (default: end of this week)")
}

func (r rangeFlags) args() (json.RawMessage, error) {
	return json.Marshal(map[string]string{"startDate": r.from, "endDate": r.to})
}

func newEventsCmd(app *App) *cobra.Command {
	var rng rangeFlags
	var format string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List calendar events",
		Long:  "List events in a range. --format ics writes an iCalendar file to stdout.",
		Example: `  kalend events
  kalend events --from 2025-06-01 --to 2025-07-01 --format ics > june.ics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatText, formatJSON, formatICS:
			default:
				return fmt.Errorf("unknown format %q (want text, json or ics)", format)
			}

			raw, err := rng.args()
			if err != nil {
				return err
			}
			res := app.Calls.Call(cmd.Context(), app.UserID, assistant.FunctionCall{Name: assistant.FnGetEvents, Args: raw})
			if !res.Success {
				return fmt.Errorf("list events: %s", res.Error)
			}
			events, _ := res.Data.([]domain.Event)

			out := cmd.OutOrStdout()
			switch format {
			case formatJSON:
				b, err := json.MarshalIndent(events, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
			case formatICS:
				return ics.Encode(out, events, app.now())
			default:
				fmt.Fprint(out, formatter.FormatEvents(events, app.now(), app.location()))
			}
			return nil
		},
	}
	rng.register(cmd.Flags())
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or ics")
	return cmd
}
