package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartplace-sync/client"
	"smartplace-sync/portal"
	"smartplace-sync/syncer"
)

func readReports(t *testing.T, path string) []client.RunReport {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var out []client.RunReport
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		var r client.RunReport
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		out = append(out, r)
	}
	return out
}

func TestWriteFetch_JSONStillAppendsReport(t *testing.T) {
	num := "12345678"
	rec := portal.BookingRecord{ReservationNumber: &num}
	res := syncer.FetchResult{NotCancelled: []portal.BookingRecord{rec}, All: []portal.BookingRecord{rec}}
	report := client.RunReport{Operation: syncer.OpFetch, Months: 1, Upcoming: 1, NotCancelled: 1, Result: client.ResultSuccess}
	reportFile := filepath.Join(t.TempDir(), "reports", "runs.jsonl")

	var out bytes.Buffer
	require.NoError(t, writeFetch(&out, res, report, true, reportFile, nil))

	var body map[string][]portal.BookingRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &body))
	require.Len(t, body["allBookingList"], 1)
	assert.Equal(t, "12345678", body["allBookingList"][0].Key())
	assert.Len(t, body["notCanceledBookingList"], 1)

	reports := readReports(t, reportFile)
	require.Len(t, reports, 1)
	assert.Equal(t, syncer.OpFetch, reports[0].Operation)
	assert.Equal(t, client.ResultSuccess, reports[0].Result)
	assert.Equal(t, 1, reports[0].Upcoming)
}

func TestWriteFetch_FailureFallsBackToReport(t *testing.T) {
	runErr := errors.New("login failed")
	report := client.RunReport{Operation: syncer.OpFetch, Result: client.ResultFailed, Error: runErr.Error()}
	reportFile := filepath.Join(t.TempDir(), "runs.jsonl")

	var out bytes.Buffer
	err := writeFetch(&out, syncer.FetchResult{}, report, true, reportFile, runErr)
	assert.ErrorIs(t, err, runErr)
	assert.False(t, json.Valid(out.Bytes()))

	reports := readReports(t, reportFile)
	require.Len(t, reports, 1)
	assert.Equal(t, "login failed", reports[0].Error)
}

func TestWriteFetch_NoReportFile(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeFetch(&out, syncer.FetchResult{}, client.RunReport{Operation: syncer.OpFetch}, true, "", nil))
	assert.True(t, json.Valid(out.Bytes()))
}
