package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/kalend/internal/cli/formatter"
	"github.com/alexanderramin/kalend/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chat API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireChat(); err != nil {
				return err
			}
			cfg := app.Server
			cfg.Addr, _ = cmd.Flags().GetString("addr")
			if app.UserID != "" {
				cfg.DefaultUser = app.UserID
			}

			var opts []server.Option
			if app.OAuth.Configured() && app.Credentials != nil {
				flow := server.NewConsentFlow(app.OAuth, app.Credentials, app.logger())
				opts = append(opts, server.WithConsent(flow))
			}
			srv := server.New(cfg, app.Chat, app.Calls, app.logger(), opts...)

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", formatter.StyleGreen.Render("●"), formatter.Dim("listening on "+cfg.Addr))
			return srv.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().String("addr", app.Server.Addr, "listen address")
	return cmd
}
