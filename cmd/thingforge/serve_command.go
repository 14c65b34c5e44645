package main

import (
	"github.com/spf13/cobra"

	"github.com/thingforge/thingforge/internal/monitor"
	"github.com/thingforge/thingforge/internal/remote"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the worker and accept websocket clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.setupLogging(cmd, true)
			if err != nil {
				return err
			}
			defer ctx.closeLogging()

			settings := ctx.settings
			e, err := newEngine(settings, logger, ctx.dispatcherLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			ctx.manager = e.manager

			if addr == "" {
				addr = settings.Remote().Address
			}
			status := monitor.NewService(monitor.Dependencies{
				Pending:     e.dispatcher.Pending,
				Subscribers: e.bus.Subscribers,
				Dropped:     e.bus.Dropped,
				Client:      e.manager.Client,
				Path:        settings.StatusFile(),
				Interval:    settings.StatusInterval(),
				Logger:      logger,
			})
			if err := status.Start(); err != nil {
				logger.Warn("status monitor disabled", "error", err)
			}

			srv := remote.NewServer(e.dispatcher, e.bus, settings.Remote().Secret, logger)
			serveErr := remote.Serve(cmd.Context(), addr, srv)
			status.Stop()

			// Closing the bus ends every peer's write pump.
			closeErr := e.Close()
			srv.Wait()
			logger.Info("server stopped", "dropped_progress", e.bus.Dropped())
			if serveErr != nil {
				return serveErr
			}
			return closeErr
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to remote.address)")
	return cmd
}
