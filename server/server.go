// Package server exposes the portal operations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"smartplace-sync/logging"
	"smartplace-sync/metrics"
	"smartplace-sync/portal"
	"smartplace-sync/syncer"
)

// Portal is the operation surface the handlers drive.
type Portal interface {
	Toggle(ctx context.Context, dates []portal.Date, room portal.Room) (syncer.ToggleResult, error)
	Fetch(ctx context.Context, months int) (syncer.FetchResult, error)
}

// Response messages shared with existing API clients.
const (
	msgHello         = "Hello, World!"
	msgSync          = "Sync Naver Reservation"
	msgSyncFailed    = "Sync Naver Reservation Failed"
	msgFetchFailed   = "Get Naver Reservation Failed"
	msgInvalidKey    = "Invalid Access Key"
	msgBadRequest    = "Bad Request"
	msgTooManyReq    = "Too Many Requests"
	reasonMarkup     = "portal_markup"
	reasonTimeout    = "timeout"
	maxRequestBytes  = 1 << 20
	defaultMonthSize = 1
)

// Server holds the HTTP handlers.
type Server struct {
	portal   Portal
	keys     *KeyChecker
	limiter  *rate.Limiter
	log      logging.Logger
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
}

// Options configures New.
type Options struct {
	ActivationKey string
	// RateLimitPerMinute caps sync requests; 0 disables the limit.
	RateLimitPerMinute int
	Log                logging.Logger
	Metrics            *metrics.Metrics
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

func New(p Portal, opts Options) *Server {
	s := &Server{
		portal:   p,
		keys:     NewKeyChecker(opts.ActivationKey),
		log:      opts.Log,
		metrics:  opts.Metrics,
		gatherer: opts.Gatherer,
	}
	if s.log == nil {
		s.log = logging.NewNop()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if opts.RateLimitPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RateLimitPerMinute)), opts.RateLimitPerMinute)
	}
	return s
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHello)
	mux.HandleFunc("POST /{$}", s.handleHelloPost)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.Handle("POST /sync/in", s.instrument("/sync/in", s.throttle(http.HandlerFunc(s.handleSyncIn))))
	mux.Handle("POST /sync/out", s.instrument("/sync/out", s.throttle(http.HandlerFunc(s.handleSyncOut))))

	return mux
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	s.log.Info(msgHello)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(msgHello))
}

func (s *Server) handleHelloPost(w http.ResponseWriter, r *http.Request) {
	var data any
	if err := decodeJSON(r, &data); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": msgBadRequest, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msgHello, "data": data})
}

type syncInRequest struct {
	ActivationKey  string  `json:"activationKey"`
	TargetDatesStr *string `json:"targetDatesStr"`
	TargetDateStr  *string `json:"targetDateStr"` // superseded by targetDatesStr
	TargetRoom     string  `json:"targetRoom"`
}

type syncInData struct {
	TargetDatesStr string `json:"targetDatesStr"`
	TargetRoom     string `json:"targetRoom"`
}

type syncInResponse struct {
	Message      string      `json:"message"`
	Reason       string      `json:"reason,omitempty"`
	SuccessDates []string    `json:"successDates"`
	NotFoundDate string      `json:"notFoundDate,omitempty"`
	Data         *syncInData `json:"data,omitempty"`
}

func (s *Server) handleSyncIn(w http.ResponseWriter, r *http.Request) {
	var req syncInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": msgBadRequest, "error": err.Error()})
		return
	}
	if !s.keys.Valid(req.ActivationKey) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": msgInvalidKey})
		return
	}

	datesStr := ""
	switch {
	case req.TargetDatesStr != nil:
		datesStr = *req.TargetDatesStr
	case req.TargetDateStr != nil:
		datesStr = *req.TargetDateStr
	}
	dates, err := portal.ParseTargetDates(datesStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": msgBadRequest, "error": err.Error()})
		return
	}
	room, err := portal.ParseRoom(req.TargetRoom)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": msgBadRequest, "error": err.Error()})
		return
	}

	s.log.Info("sync in requested", "target_dates", datesStr, "target_room", room.String())
	res, err := s.portal.Toggle(r.Context(), dates, room)
	resp := syncInResponse{SuccessDates: res.Succeeded}
	if resp.SuccessDates == nil {
		resp.SuccessDates = []string{}
	}
	if res.NotFound != nil {
		resp.NotFoundDate = res.NotFound.String()
	}

	if err != nil {
		status, reason := classify(err)
		s.log.Error("sync in failed", "error", err, "succeeded", res.Succeeded)
		resp.Message, resp.Reason = msgSyncFailed, reason
		writeJSON(w, status, resp)
		return
	}

	resp.Message = msgSync
	resp.Data = &syncInData{TargetDatesStr: datesStr, TargetRoom: room.String()}
	writeJSON(w, http.StatusOK, resp)
}

type syncOutRequest struct {
	ActivationKey string `json:"activationKey"`
	MonthSize     *int   `json:"monthSize"`
}

type syncOutResponse struct {
	Message                string                 `json:"message"`
	NotCanceledBookingList []portal.BookingRecord `json:"notCanceledBookingList"`
	AllBookingList         []portal.BookingRecord `json:"allBookingList"`
}

func (s *Server) handleSyncOut(w http.ResponseWriter, r *http.Request) {
	var req syncOutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": msgBadRequest, "error": err.Error()})
		return
	}
	if !s.keys.Valid(req.ActivationKey) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": msgInvalidKey, "data": map[string]any{}})
		return
	}

	months := defaultMonthSize
	if req.MonthSize != nil {
		months = *req.MonthSize
	}
	if months < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": msgBadRequest, "error": "monthSize must not be negative"})
		return
	}

	s.log.Info("sync out requested", "month_size", months)
	res, err := s.portal.Fetch(r.Context(), months)
	if err != nil {
		status, reason := classify(err)
		s.log.Error("sync out failed", "error", err)
		writeJSON(w, status, map[string]any{"message": msgFetchFailed, "reason": reason})
		return
	}

	resp := syncOutResponse{
		Message:                msgSync,
		NotCanceledBookingList: res.NotCancelled,
		AllBookingList:         res.All,
	}
	if resp.NotCanceledBookingList == nil {
		resp.NotCanceledBookingList = []portal.BookingRecord{}
	}
	if resp.AllBookingList == nil {
		resp.AllBookingList = []portal.BookingRecord{}
	}
	s.log.Info("sync out succeeded", "all", len(res.All), "not_cancelled", len(res.NotCancelled))
	writeJSON(w, http.StatusOK, resp)
}

// classify maps an operation error onto a status code and a machine-readable reason.
func classify(err error) (int, string) {
	switch {
	case syncer.IsMarkupError(err):
		return http.StatusBadGateway, reasonMarkup
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusInternalServerError, reasonTimeout
	default:
		return http.StatusInternalServerError, ""
	}
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"message": msgTooManyReq})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.log.Debug("request served", "route", route, "status", rec.status, "elapsed", time.Since(start).String())
		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		}
	})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start serves h on addr until ctx is done, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler, log logging.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
