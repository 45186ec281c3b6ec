package main

import (
	"github.com/spf13/cobra"

	"vimeodl/internal/bridge"
	"vimeodl/internal/logging"
)

func newHostCommand(ctx *commandContext) *cobra.Command {
	var parentWindow string

	cmd := &cobra.Command{
		Use:   "host [origin]",
		Short: "Run as a browser native messaging host on stdin/stdout",
		Long: "Run as a browser native messaging host. The browser passes the calling\n" +
			"extension origin as the first argument; it is logged and otherwise ignored.\n" +
			"Nothing but protocol frames is written to stdout.\n\n" +
			"Browsers launch the binary named in the host manifest directly, without the\n" +
			"host subcommand; vimeodl recognises those launches and runs this command.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				logger.Info("native host invoked",
					logging.String("origin", args[0]),
					logging.String("parent_window", parentWindow),
				)
			}

			orch, cleanup, err := ctx.newOrchestrator(cmd, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			host := bridge.NewHost(cmd.InOrStdin(), cmd.OutOrStdout(), orch,
				bridge.WithLogger(logger),
				bridge.WithMaxMessageBytes(cfg.Bridge.MaxMessageBytes),
			)
			return host.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&parentWindow, "parent-window", "", "Native window handle passed by Chrome on Windows")
	_ = cmd.Flags().MarkHidden("parent-window")
	return cmd
}
