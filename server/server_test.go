package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"smartplace-sync/metrics"
	"smartplace-sync/portal"
	"smartplace-sync/syncer"
)

const testKey = "test_key"

type fakePortal struct {
	toggleRes syncer.ToggleResult
	fetchRes  syncer.FetchResult
	err       error

	gotDates  []string
	gotRoom   portal.Room
	gotMonths int
	calls     int
}

func (f *fakePortal) Toggle(_ context.Context, dates []portal.Date, room portal.Room) (syncer.ToggleResult, error) {
	f.calls++
	for _, d := range dates {
		f.gotDates = append(f.gotDates, d.String())
	}
	f.gotRoom = room
	return f.toggleRes, f.err
}

func (f *fakePortal) Fetch(_ context.Context, months int) (syncer.FetchResult, error) {
	f.calls++
	f.gotMonths = months
	return f.fetchRes, f.err
}

func newTestServer(p Portal, opts Options) http.Handler {
	if opts.ActivationKey == "" {
		opts.ActivationKey = testKey
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.NewRegistry()
	}
	return New(p, opts).Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHello(t *testing.T) {
	h := newTestServer(&fakePortal{}, Options{})

	rec, _ := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello, World!", rec.Body.String())

	rec, out := do(t, h, http.MethodPost, "/", `{"data":"test"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello, World!", out["message"])
	assert.Equal(t, map[string]any{"data": "test"}, out["data"])

	rec, _ = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSyncIn_Success(t *testing.T) {
	p := &fakePortal{toggleRes: syncer.ToggleResult{Succeeded: []string{"2024-09-02", "2024-09-03"}}}
	h := newTestServer(p, Options{})

	rec, out := do(t, h, http.MethodPost, "/sync/in",
		`{"activationKey":"test_key","targetDatesStr":"2024-09-03,2024-09-02","targetRoom":"Yeoyu"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sync Naver Reservation", out["message"])
	assert.Equal(t, []any{"2024-09-02", "2024-09-03"}, out["successDates"])
	assert.NotContains(t, out, "notFoundDate")
	assert.Equal(t, map[string]any{"targetDatesStr": "2024-09-03,2024-09-02", "targetRoom": "Yeoyu"}, out["data"])

	assert.Equal(t, []string{"2024-09-02", "2024-09-03"}, p.gotDates)
	assert.Equal(t, portal.RoomYeoyu, p.gotRoom)
}

func TestSyncIn_LegacyField(t *testing.T) {
	p := &fakePortal{}
	h := newTestServer(p, Options{})

	rec, _ := do(t, h, http.MethodPost, "/sync/in",
		`{"activationKey":"test_key","targetDateStr":"2024-09-02","targetRoom":"Yeohang"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"2024-09-02"}, p.gotDates)
	assert.Equal(t, portal.RoomYeohang, p.gotRoom)
}

func TestSyncIn_NewFieldWins(t *testing.T) {
	p := &fakePortal{}
	h := newTestServer(p, Options{})

	rec, _ := do(t, h, http.MethodPost, "/sync/in",
		`{"activationKey":"test_key","targetDateStr":"2024-01-01","targetDatesStr":"2024-09-02","targetRoom":"Yeoyu"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"2024-09-02"}, p.gotDates)
}

func TestSyncIn_NotFoundDate(t *testing.T) {
	nf := portal.Date{Year: 2024, Month: time.August, Day: 20}
	p := &fakePortal{toggleRes: syncer.ToggleResult{Succeeded: []string{"2024-08-19"}, NotFound: &nf}}
	h := newTestServer(p, Options{})

	rec, out := do(t, h, http.MethodPost, "/sync/in",
		`{"activationKey":"test_key","targetDatesStr":"2024-08-19,2024-08-20,2024-08-21","targetRoom":"Yeoyu"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"2024-08-19"}, out["successDates"])
	assert.Equal(t, "2024-08-20", out["notFoundDate"])
}

func TestSyncIn_InvalidKey(t *testing.T) {
	p := &fakePortal{}
	h := newTestServer(p, Options{})

	for _, body := range []string{
		`{"activationKey":"wrong_key","targetDatesStr":"2024-09-02","targetRoom":"Yeoyu"}`,
		`{"targetDatesStr":"2024-09-02","targetRoom":"Yeoyu"}`,
	} {
		rec, out := do(t, h, http.MethodPost, "/sync/in", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid Access Key", out["message"])
	}
	assert.Zero(t, p.calls)
}

func TestSyncIn_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `targetRoom=Yeoyu`},
		{name: "empty body", body: ``},
		{name: "unknown room", body: `{"activationKey":"test_key","targetDatesStr":"2024-09-02","targetRoom":"Penthouse"}`},
		{name: "bad date", body: `{"activationKey":"test_key","targetDatesStr":"2024-13-02","targetRoom":"Yeoyu"}`},
		{name: "no dates", body: `{"activationKey":"test_key","targetRoom":"Yeoyu"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePortal{}
			rec, _ := do(t, newTestServer(p, Options{}), http.MethodPost, "/sync/in", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, p.calls)
		})
	}
}

func TestSyncIn_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason any
	}{
		{name: "markup", err: fmt.Errorf("locate: %w", portal.ErrElementNotFound), wantStatus: http.StatusBadGateway, wantReason: "portal_markup"},
		{name: "malformed date", err: &portal.MalformedDateError{Input: "x", Reason: "y"}, wantStatus: http.StatusBadGateway, wantReason: "portal_markup"},
		{name: "timeout", err: context.DeadlineExceeded, wantStatus: http.StatusInternalServerError, wantReason: "timeout"},
		{name: "other", err: errors.New("browser crashed"), wantStatus: http.StatusInternalServerError, wantReason: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePortal{err: tt.err, toggleRes: syncer.ToggleResult{Succeeded: []string{"2024-09-02"}}}
			rec, out := do(t, newTestServer(p, Options{}), http.MethodPost, "/sync/in",
				`{"activationKey":"test_key","targetDatesStr":"2024-09-02,2024-09-03","targetRoom":"Yeoyu"}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "Sync Naver Reservation Failed", out["message"])
			assert.Equal(t, tt.wantReason, out["reason"])
			assert.Equal(t, []any{"2024-09-02"}, out["successDates"])
		})
	}
}

func upcoming(number, status string) portal.BookingRecord {
	start := "20991231"
	return portal.BookingRecord{ReservationNumber: &number, StartDate: &start, Status: &status}
}

func TestSyncOut_Success(t *testing.T) {
	all := []portal.BookingRecord{upcoming("1", "예약확정"), upcoming("2", portal.CancelledStatus)}
	p := &fakePortal{fetchRes: syncer.SplitCancelled(all)}
	h := newTestServer(p, Options{})

	rec, out := do(t, h, http.MethodPost, "/sync/out", `{"activationKey":"test_key","monthSize":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, p.gotMonths)
	assert.Equal(t, "Sync Naver Reservation", out["message"])
	assert.Len(t, out["allBookingList"], 2)
	assert.Len(t, out["notCanceledBookingList"], 1)

	first := out["allBookingList"].([]any)[0].(map[string]any)
	assert.Equal(t, "1", first["reservationNumber"])
	assert.Nil(t, first["option"])
}

func TestSyncOut_DefaultMonthSize(t *testing.T) {
	for _, body := range []string{`{"activationKey":"test_key"}`, `{"activationKey":"test_key","monthSize":null}`} {
		p := &fakePortal{}
		rec, out := do(t, newTestServer(p, Options{}), http.MethodPost, "/sync/out", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, p.gotMonths)
		assert.Equal(t, []any{}, out["allBookingList"])
		assert.Equal(t, []any{}, out["notCanceledBookingList"])
	}
}

func TestSyncOut_ZeroMonths(t *testing.T) {
	p := &fakePortal{}
	rec, _ := do(t, newTestServer(p, Options{}), http.MethodPost, "/sync/out", `{"activationKey":"test_key","monthSize":0}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, p.gotMonths)
}

func TestSyncOut_Rejections(t *testing.T) {
	p := &fakePortal{}
	h := newTestServer(p, Options{})

	rec, out := do(t, h, http.MethodPost, "/sync/out", `{"activationKey":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, map[string]any{}, out["data"])

	rec, _ = do(t, h, http.MethodPost, "/sync/out", `{"activationKey":"test_key","monthSize":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/sync/out", `{"activationKey":"test_key","monthSize":"two"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Zero(t, p.calls)
}

func TestSyncOut_Failure(t *testing.T) {
	p := &fakePortal{err: fmt.Errorf("page 0: %w", portal.ErrMalformedDate)}
	rec, out := do(t, newTestServer(p, Options{}), http.MethodPost, "/sync/out", `{"activationKey":"test_key"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Get Naver Reservation Failed", out["message"])
	assert.Equal(t, "portal_markup", out["reason"])
}

func TestRateLimit(t *testing.T) {
	p := &fakePortal{}
	h := newTestServer(p, Options{RateLimitPerMinute: 2})

	body := `{"activationKey":"test_key"}`
	for i := 0; i < 2; i++ {
		rec, _ := do(t, h, http.MethodPost, "/sync/out", body)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec, out := do(t, h, http.MethodPost, "/sync/out", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too Many Requests", out["message"])
	assert.Equal(t, 2, p.calls)

	// hello and health are not throttled
	rec, _ = do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New("test", reg)
	h := newTestServer(&fakePortal{}, Options{Metrics: m, Gatherer: reg})

	do(t, h, http.MethodPost, "/sync/out", `{"activationKey":"test_key"}`)
	do(t, h, http.MethodPost, "/sync/out", `{"activationKey":"bad"}`)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/sync/out", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/sync/out", "401")))

	rec, _ := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestKeyChecker(t *testing.T) {
	plain := NewKeyChecker("secret")
	assert.True(t, plain.Valid("secret"))
	assert.False(t, plain.Valid("Secret"))
	assert.False(t, plain.Valid(""))

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	hashed := NewKeyChecker(string(hash))
	assert.True(t, hashed.Valid("secret"))
	assert.False(t, hashed.Valid(string(hash)))

	assert.False(t, NewKeyChecker("").Valid(""))
	assert.False(t, NewKeyChecker("").Valid("anything"))
}
