package syncer

import (
	"context"
	"fmt"
	"time"

	"smartplace-sync/browser"
	"smartplace-sync/logging"
	"smartplace-sync/portal"
)

// KST is the fixed UTC+9 zone booking dates are compared in.
var KST = time.FixedZone("KST", 9*60*60)

// FetchResult holds the upcoming bookings; NotCancelled is derived from All.
type FetchResult struct {
	NotCancelled []portal.BookingRecord
	All          []portal.BookingRecord
}

// Aggregator collects bookings across booking-list periods.
type Aggregator struct {
	Pacer *browser.Pacer
	Log   logging.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Fetch reads pages booking-list periods starting at the one on screen, then
// deduplicates and keeps bookings that start after today.
func (a *Aggregator) Fetch(ctx context.Context, sess browser.Session, pages int) (FetchResult, error) {
	log := a.Log
	if log == nil {
		log = logging.NewNop()
	}
	if pages < 0 {
		return FetchResult{}, fmt.Errorf("negative page count %d", pages)
	}

	next := browser.Query(portal.NextPeriodSelector)
	var collected []portal.BookingRecord
	for i := 0; i < pages; i++ {
		markup, err := sess.Markup(ctx)
		if err != nil {
			return FetchResult{}, fmt.Errorf("failed to read booking list: %w", err)
		}
		records, err := portal.ExtractPage(markup)
		if err != nil {
			return FetchResult{}, fmt.Errorf("booking list page %d: %w", i, err)
		}
		log.Debug("booking list page extracted", "page", i, "records", len(records))
		collected = append(collected, records...)

		if err := sess.Click(ctx, next); err != nil {
			return FetchResult{}, fmt.Errorf("failed to advance booking list: %w", err)
		}
		if err := a.Pacer.Wait(ctx, sess); err != nil {
			return FetchResult{}, err
		}
	}

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	all := FilterUpcoming(Dedup(collected), now())
	res := SplitCancelled(all)
	log.Info("booking list fetched", "pages", pages, "collected", len(collected), "upcoming", len(res.All), "not_cancelled", len(res.NotCancelled))
	return res, nil
}

// Dedup collapses records sharing a reservation number. The last sighting wins and
// also determines the survivor's position. Records without a number share one key.
func Dedup(records []portal.BookingRecord) []portal.BookingRecord {
	last := make(map[string]int, len(records))
	for i, r := range records {
		last[r.Key()] = i
	}
	out := make([]portal.BookingRecord, 0, len(last))
	for i, r := range records {
		if last[r.Key()] == i {
			out = append(out, r)
		}
	}
	return out
}

// FilterUpcoming keeps records whose start date, at midnight KST, is strictly after
// now. Records without a readable start date are dropped.
func FilterUpcoming(records []portal.BookingRecord, now time.Time) []portal.BookingRecord {
	now = now.In(KST)
	out := make([]portal.BookingRecord, 0, len(records))
	for _, r := range records {
		if r.StartDate == nil {
			continue
		}
		start, err := portal.ParseCompactDate(*r.StartDate)
		if err != nil {
			continue
		}
		if start.In(KST).After(now) {
			out = append(out, r)
		}
	}
	return out
}

// SplitCancelled derives the not-cancelled view from all.
func SplitCancelled(all []portal.BookingRecord) FetchResult {
	res := FetchResult{
		NotCancelled: make([]portal.BookingRecord, 0, len(all)),
		All:          all,
	}
	for _, r := range all {
		if !r.Cancelled() {
			res.NotCancelled = append(res.NotCancelled, r)
		}
	}
	return res
}
