package cli

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/gitacct/internal/api"
	"github.com/rileyhilliard/gitacct/internal/ui"
)

var (
	serveAddr       string
	serveRequestLog bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the JSON API on --addr (default from config, 127.0.0.1:8000).
The API exposes the same operations as the CLI. It has no authentication,
so keep it on a loopback address.

Examples:
  gitacct serve
  gitacct serve --addr 127.0.0.1:9000 --log-requests`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand(cmd)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address")
	serveCmd.Flags().BoolVar(&serveRequestLog, "log-requests", false, "log every request")
	rootCmd.AddCommand(serveCmd)
}

func serveCommand(cmd *cobra.Command) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		addr := serveAddr
		if addr == "" {
			addr = a.cfg.Server.Addr
		}

		srv := api.New(a.svc)
		srv.Version = version
		srv.RequestLog = serveRequestLog

		return srv.ListenAndServe(ctx, addr, func(bound net.Addr) {
			if machineMode {
				_ = WriteJSONSuccess(cmd.OutOrStdout(), map[string]string{"addr": bound.String()})
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Listening on %s %s\n",
				ui.SuccessStyle().Render(ui.SymbolSuccess),
				ui.InfoStyle().Render("http://"+bound.String()),
				ui.MutedStyle().Render("(Ctrl-C to stop)"))
		})
	})
}
