package main

import (
	"fmt"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"vimeodl/internal/logging"
	"vimeodl/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local HTTP endpoint used by the browser extension",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind == "" {
				bind = cfg.Server.Bind
			}

			lock := flock.New(cfg.ServerLockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire server lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another vimeodl server is already running (lock %s)", cfg.ServerLockPath())
			}
			defer func() { _ = lock.Unlock() }()

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			orch, cleanup, err := ctx.newOrchestrator(cmd, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			srv := server.New(bind, cfg.Paths.OutputDir, orch, server.WithLogger(logger))
			logger.Info("starting server",
				logging.String("bind", bind),
				logging.String("lock", cfg.ServerLockPath()),
			)
			return srv.ListenAndServe(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to server.bind)")
	return cmd
}
