package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smartplace-sync/browser"
	"smartplace-sync/config"
	"smartplace-sync/logging"
	"smartplace-sync/metrics"
	"smartplace-sync/portal"
)

// Operation names used in logs and metrics.
const (
	OpToggle = "toggle"
	OpFetch  = "fetch"
)

// Service runs portal operations end to end: it takes the account lock, launches
// a browser, logs in, opens the right page and hands the session to the
// orchestrator. The browser is always released before returning.
type Service struct {
	cfg      *config.Config
	launcher browser.Launcher
	lock     *AccountLock
	pacer    *browser.Pacer
	log      logging.Logger
	metrics  *metrics.Metrics

	// Now is passed to the Aggregator; nil means time.Now.
	Now func() time.Time
}

func NewService(cfg *config.Config, launcher browser.Launcher, log logging.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logging.NewNop()
	}
	return &Service{
		cfg:      cfg,
		launcher: launcher,
		lock:     NewAccountLock(),
		pacer:    browser.NewPacer(cfg.PaceMin, cfg.PaceMax),
		log:      log,
		metrics:  m,
	}
}

// Toggle flips room's availability for each of dates, in ascending order.
func (s *Service) Toggle(ctx context.Context, dates []portal.Date, room portal.Room) (ToggleResult, error) {
	var res ToggleResult
	err := s.run(ctx, OpToggle, s.cfg.ManagementURL, 1, func(ctx context.Context, sess browser.Session, log logging.Logger) error {
		locator := &portal.Locator{
			MaxAdvances: s.cfg.LocateMaxAdvances,
			Pacer:       s.pacer,
			Log:         log,
		}
		if s.metrics != nil {
			locator.OnAdvance = s.metrics.CalendarAdvances.Inc
		}
		t := &Toggler{Locator: locator, Pacer: s.pacer, Log: log}

		var err error
		res, err = t.Sync(ctx, sess, dates, room)
		if s.metrics != nil {
			s.metrics.DatesToggled.Add(float64(len(res.Succeeded)))
			if res.NotFound != nil {
				s.metrics.DatesNotFound.Inc()
			}
		}
		return err
	})
	return res, err
}

// Fetch returns upcoming bookings from months booking-list periods.
func (s *Service) Fetch(ctx context.Context, months int) (FetchResult, error) {
	if months < 0 {
		return FetchResult{}, fmt.Errorf("negative month count %d", months)
	}
	var res FetchResult
	err := s.run(ctx, OpFetch, s.cfg.BookingListURL, 2, func(ctx context.Context, sess browser.Session, log logging.Logger) error {
		a := &Aggregator{Pacer: s.pacer, Log: log, Now: s.Now}
		var err error
		res, err = a.Fetch(ctx, sess, months)
		if err == nil && s.metrics != nil {
			s.metrics.BookingsFetched.WithLabelValues("all").Set(float64(len(res.All)))
			s.metrics.BookingsFetched.WithLabelValues("not_cancelled").Set(float64(len(res.NotCancelled)))
		}
		return err
	})
	return res, err
}

type operation func(ctx context.Context, sess browser.Session, log logging.Logger) error

func (s *Service) run(ctx context.Context, op, pageURL string, settle int, fn operation) (err error) {
	log := s.log.With("op_id", uuid.NewString(), "operation", op)
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			log.Error("operation failed", "error", err, "elapsed", time.Since(start).String())
		} else {
			log.Info("operation finished", "elapsed", time.Since(start).String())
		}
		s.metrics.ObserveOperation(op, outcome, time.Since(start))
	}()

	if err := s.cfg.RequireCredentials(); err != nil {
		return err
	}
	if s.cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.OperationTimeout)
		defer cancel()
	}

	release, err := s.lock.Acquire(ctx, s.cfg.AccountID)
	if err != nil {
		return fmt.Errorf("waiting for account lock: %w", err)
	}
	defer release()

	sess, err := s.launcher.Launch(ctx)
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer func() {
		if rerr := sess.Release(); rerr != nil {
			log.Warn("failed to release browser", "error", rerr)
		}
	}()

	if err := s.login(ctx, sess, log); err != nil {
		return err
	}
	if err := sess.Navigate(ctx, pageURL); err != nil {
		return fmt.Errorf("open %s: %w", pageURL, err)
	}
	for i := 0; i < settle; i++ {
		if err := s.pacer.Wait(ctx, sess); err != nil {
			return err
		}
	}
	log.Debug("page opened", "url", pageURL)

	return fn(ctx, sess, log)
}

func (s *Service) login(ctx context.Context, sess browser.Session, log logging.Logger) error {
	if err := sess.Navigate(ctx, s.cfg.LoginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	if err := sess.FillLoginFields(ctx, s.cfg.AccountID, s.cfg.Password); err != nil {
		return fmt.Errorf("fill login form: %w", err)
	}
	if err := sess.Click(ctx, browser.Query(portal.LoginButtonSelector)); err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}
	if err := s.pacer.Wait(ctx, sess); err != nil {
		return err
	}
	log.Info("logged in")
	return nil
}

// IsMarkupError reports whether err means the portal page did not look the way the
// parsers expect.
func IsMarkupError(err error) bool {
	return errors.Is(err, portal.ErrElementNotFound) || errors.Is(err, portal.ErrMalformedDate)
}
