package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"smartplace-sync/client"
	"smartplace-sync/portal"
	"smartplace-sync/syncer"
)

func newToggleCmd() *cobra.Command {
	var (
		datesStr   string
		roomName   string
		reportFile string
	)

	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Toggle a room's availability for the given dates",
		RunE: func(cmd *cobra.Command, args []string) error {
			dates, err := portal.ParseTargetDates(datesStr)
			if err != nil {
				return err
			}
			room, err := portal.ParseRoom(roomName)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			report := client.RunReport{
				Operation: syncer.OpToggle,
				Browser:   a.cfg.Browser,
				Started:   time.Now(),
				Room:      room.String(),
			}
			for _, d := range dates {
				report.Requested = append(report.Requested, d.String())
			}

			res, runErr := a.service.Toggle(ctx, dates, room)
			report.Finished = time.Now()
			report.Succeeded = res.Succeeded
			if res.NotFound != nil {
				report.NotFound = res.NotFound.String()
			}
			switch {
			case runErr != nil:
				report.Result, report.Error = client.ResultFailed, runErr.Error()
			case res.NotFound != nil:
				report.Result = client.ResultPartial
			default:
				report.Result = client.ResultSuccess
			}

			return finishRun(cmd.OutOrStdout(), report, reportFile, runErr)
		},
	}

	cmd.Flags().StringVar(&datesStr, "dates", "", "comma-separated dates, YYYY-MM-DD")
	cmd.Flags().StringVar(&roomName, "room", "", fmt.Sprintf("room name (%s or %s)", portal.RoomYeoyu, portal.RoomYeohang))
	cmd.Flags().StringVar(&reportFile, "report-file", "", "append the run report as a JSON line to this file")
	_ = cmd.MarkFlagRequired("dates")
	_ = cmd.MarkFlagRequired("room")
	return cmd
}

// finishRun prints the report, appends it to reportFile when set and returns runErr.
func finishRun(w io.Writer, report client.RunReport, reportFile string, runErr error) error {
	client.PrintRunReport(w, report)
	if err := appendReport(report, reportFile); err != nil {
		return err
	}
	return runErr
}

func appendReport(report client.RunReport, reportFile string) error {
	if reportFile == "" {
		return nil
	}
	if err := client.AppendJSONLine(report, reportFile); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
