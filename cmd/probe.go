package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"smartplace-sync/browser"
	"smartplace-sync/client"
	"smartplace-sync/config"
)

func newProbeCmd() *cobra.Command {
	var (
		target     string
		timeout    time.Duration
		reportFile string
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that the portal login page is reachable and not blocking us",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if target == "" {
				target = cfg.LoginURL
			}
			ua := cfg.UserAgent
			if ua == "" {
				ua = browser.DefaultUserAgent
			}

			p, err := client.NewProber(cfg.ProxyURL, ua, nil)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			res, err := p.Probe(ctx, target)
			if err != nil {
				return err
			}
			client.PrintProbeResult(cmd.OutOrStdout(), res)
			if reportFile != "" {
				return client.AppendJSONLine(res, reportFile)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "url", "", "page to fetch (default LOGIN_URL)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall probe deadline")
	cmd.Flags().StringVar(&reportFile, "report-file", "", "append the probe result as a JSON line to this file")
	return cmd
}
