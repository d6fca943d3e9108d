package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smartplace-sync/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (/sync/in, /sync/out)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.cfg.RequireActivationKey(); err != nil {
				return err
			}
			if err := a.cfg.RequireCredentials(); err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.ListenAddr
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			srv := server.New(a.service, server.Options{
				ActivationKey:      a.cfg.ActivationKey,
				RateLimitPerMinute: a.cfg.RateLimitPerMinute,
				Log:                a.log,
				Metrics:            a.metrics,
				Gatherer:           a.registry,
			})
			a.log.Info("starting server", "browser", a.cfg.Browser, "business_id", a.cfg.BusinessID)
			return server.Start(ctx, addr, srv.Routes(), a.log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default LISTEN_ADDR)")
	return cmd
}
