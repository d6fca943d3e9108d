package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
)

// RunReport summarises one toggle or fetch run.
type RunReport struct {
	Operation string    `json:"operation"`
	Browser   string    `json:"browser"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`

	// Toggle
	Room      string   `json:"room,omitempty"`
	Requested []string `json:"requested,omitempty"`
	Succeeded []string `json:"succeeded,omitempty"`
	NotFound  string   `json:"not_found,omitempty"`

	// Fetch
	Months       int `json:"months,omitempty"`
	Upcoming     int `json:"upcoming,omitempty"`
	NotCancelled int `json:"not_cancelled,omitempty"`

	Result string `json:"result"` // SUCCESS, PARTIAL or FAILED
	Error  string `json:"error,omitempty"`
}

// Run outcomes.
const (
	ResultSuccess = "SUCCESS"
	ResultPartial = "PARTIAL"
	ResultFailed  = "FAILED"
)

// PrintRunReport writes a colored, human-readable report to w.
func PrintRunReport(w io.Writer, r RunReport) {
	headerColor := color.New(color.FgHiCyan, color.Bold).SprintFunc()
	sectionColor := color.New(color.FgHiYellow).SprintFunc()
	labelColor := color.New(color.FgWhite).SprintFunc()
	valueColor := color.New(color.FgHiWhite).SprintFunc()
	successColor := color.New(color.FgGreen, color.Bold).SprintFunc()
	warnColor := color.New(color.FgHiMagenta, color.Bold).SprintFunc()
	errorColor := color.New(color.FgRed, color.Bold).SprintFunc()

	rule := sectionColor(strings.Repeat("-", 50))

	fmt.Fprintln(w, "\n"+headerColor("[SmartPlace Sync Run]"))
	fmt.Fprintf(w, "%s  : %s\n", labelColor("Operation"), valueColor(r.Operation))
	fmt.Fprintf(w, "%s    : %s\n", labelColor("Browser"), valueColor(r.Browser))
	fmt.Fprintf(w, "%s    : %s\n", labelColor("Started"), valueColor(r.Started.Format("2006-01-02 15:04:05")))
	fmt.Fprintf(w, "%s    : %s\n", labelColor("Elapsed"), valueColor(r.Finished.Sub(r.Started).Round(time.Millisecond).String()))

	fmt.Fprintln(w, "\n"+rule)
	switch r.Operation {
	case "toggle":
		fmt.Fprintln(w, sectionColor("[Toggle]"))
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%s       : %s\n", labelColor("Room"), valueColor(r.Room))
		fmt.Fprintf(w, "%s  : %s\n", labelColor("Requested"), valueColor(strings.Join(r.Requested, ", ")))
		fmt.Fprintf(w, "%s    : %s\n", labelColor("Toggled"), successColor(strings.Join(r.Succeeded, ", ")))
		if r.NotFound != "" {
			fmt.Fprintf(w, "%s  : %s\n", labelColor("Not found"), warnColor(r.NotFound))
		}
	case "fetch":
		fmt.Fprintln(w, sectionColor("[Fetch]"))
		fmt.Fprintln(w, rule)
		fmt.Fprintf(w, "%s         : %s\n", labelColor("Months"), valueColor(r.Months))
		fmt.Fprintf(w, "%s       : %s\n", labelColor("Upcoming"), valueColor(r.Upcoming))
		fmt.Fprintf(w, "%s  : %s\n", labelColor("Not cancelled"), valueColor(r.NotCancelled))
	}

	fmt.Fprintln(w, "\n"+rule)
	resColor := errorColor
	switch r.Result {
	case ResultSuccess:
		resColor = successColor
	case ResultPartial:
		resColor = warnColor
	}
	fmt.Fprintf(w, "%s     : %s\n", labelColor("Result"), resColor(r.Result))
	if r.Error != "" {
		fmt.Fprintf(w, "%s      : %s\n", labelColor("Error"), errorColor(r.Error))
	}
}

// PrintProbeResult writes a colored summary of a probe to w.
func PrintProbeResult(w io.Writer, r *ProbeResult) {
	headerColor := color.New(color.FgHiCyan, color.Bold).SprintFunc()
	labelColor := color.New(color.FgWhite).SprintFunc()
	valueColor := color.New(color.FgHiWhite).SprintFunc()
	successColor := color.New(color.FgGreen, color.Bold).SprintFunc()
	errorColor := color.New(color.FgRed, color.Bold).SprintFunc()

	ms := func(d time.Duration) string { return fmt.Sprintf("%d ms", d.Milliseconds()) }

	fmt.Fprintln(w, "\n"+headerColor("[Portal Probe]"))
	fmt.Fprintf(w, "%s             : %s\n", labelColor("URL"), valueColor(r.URL))
	fmt.Fprintf(w, "%s  : %s\n", labelColor("DNS Resolution"), valueColor(ms(r.DNSDone)))
	fmt.Fprintf(w, "%s   : %s\n", labelColor("TCP Handshake"), valueColor(ms(r.ConnectDone)))
	fmt.Fprintf(w, "%s   : %s\n", labelColor("TLS Handshake"), valueColor(ms(r.TLSHandshakeDone)))
	fmt.Fprintf(w, "%s            : %s\n", labelColor("TTFB"), valueColor(ms(r.GotFirstResponseByte)))
	fmt.Fprintf(w, "%s           : %s\n", labelColor("Total"), valueColor(ms(r.TotalDuration)))

	if r.Error != "" {
		fmt.Fprintf(w, "%s           : %s\n", labelColor("Error"), errorColor(r.Error))
		return
	}
	fmt.Fprintf(w, "%s          : %s\n", labelColor("Status"), valueColor(fmt.Sprintf("%d %s", r.StatusCode, r.Protocol)))
	if r.Blocked {
		fmt.Fprintf(w, "%s         : %s\n", labelColor("Blocked"), errorColor(r.BlockReason))
	}
	if r.LoginFormFound {
		fmt.Fprintf(w, "%s      : %s\n", labelColor("Login form"), successColor("present"))
	} else {
		fmt.Fprintf(w, "%s      : %s\n", labelColor("Login form"), errorColor("missing"))
	}
}

// AppendJSONLine appends v as one JSON line to filename, creating the file and its
// directory when needed.
func AppendJSONLine(v any, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		return err
	}
	return nil
}
