package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/kalend/internal/assistant"
	"github.com/alexanderramin/kalend/internal/cli/formatter"
)

func newPersonalitiesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "personalities",
		Short: "List the assistant personalities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(assistant.Personalities))
			for _, name := range assistant.PersonalityNames() {
				label := name
				if name == app.Personality {
					label += formatter.StyleGreen.Render(" *")
				}
				rows = append(rows, []string{formatter.Bold(label), formatter.Dim(assistant.Personalities[name])})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable([]string{"NAME", "STYLE"}, rows))
			return nil
		},
	}
}

// addPersonalityFlag registers --personality with completion over the known names.
func addPersonalityFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVarP(dst, "personality", "p", "", "reply style (see kalend personalities)")
	_ = cmd.RegisterFlagCompletionFunc("personality", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return assistant.PersonalityNames(), cobra.ShellCompDirectiveNoFileComp
	})
}
