package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"smartplace-sync/client"
	"smartplace-sync/syncer"
)

func newFetchCmd() *cobra.Command {
	var (
		months     int
		jsonOut    bool
		reportFile string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch upcoming bookings from the booking list",
		RunE: func(cmd *cobra.Command, args []string) error {
			if months < 0 {
				return fmt.Errorf("--months must not be negative")
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			report := client.RunReport{
				Operation: syncer.OpFetch,
				Browser:   a.cfg.Browser,
				Started:   time.Now(),
				Months:    months,
			}

			res, runErr := a.service.Fetch(ctx, months)
			report.Finished = time.Now()
			report.Upcoming = len(res.All)
			report.NotCancelled = len(res.NotCancelled)
			report.Result = client.ResultSuccess
			if runErr != nil {
				report.Result, report.Error = client.ResultFailed, runErr.Error()
			}

			return writeFetch(cmd.OutOrStdout(), res, report, jsonOut, reportFile, runErr)
		},
	}

	cmd.Flags().IntVar(&months, "months", 1, "number of booking-list periods to read")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the bookings as JSON instead of a report")
	cmd.Flags().StringVar(&reportFile, "report-file", "", "append the run report as a JSON line to this file")
	return cmd
}

// writeFetch prints the bookings as JSON (successful runs with --json) or the run
// report, then appends the report to reportFile when set.
func writeFetch(w io.Writer, res syncer.FetchResult, report client.RunReport, jsonOut bool, reportFile string, runErr error) error {
	if !jsonOut || runErr != nil {
		return finishRun(w, report, reportFile, runErr)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{
		"notCanceledBookingList": res.NotCancelled,
		"allBookingList":         res.All,
	}); err != nil {
		return err
	}
	return appendReport(report, reportFile)
}
