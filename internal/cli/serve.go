package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petercsiba/dumpsheet/internal/output"
)

func NewServeCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the Twilio connector webhooks",
		Long:  "Serve the inbound-SMS forwarding and call-recording archive webhooks. Shuts down gracefully on SIGINT/SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(os.Stdout)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, err := deps.App.NewConnectorServer(ctx)
			if err != nil {
				return err
			}

			f.Info("Connector webhooks listening on " + deps.Config.ListenAddr)
			return srv.Run(ctx)
		},
	}
}
