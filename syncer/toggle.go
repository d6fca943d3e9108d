package syncer

import (
	"context"
	"fmt"

	"smartplace-sync/browser"
	"smartplace-sync/logging"
	"smartplace-sync/portal"
)

// PageLocator finds a date in the simple-management calendar.
type PageLocator interface {
	Locate(ctx context.Context, sess browser.Session, target portal.Date) (offset int, found bool, err error)
}

// ToggleResult reports which dates were toggled.
type ToggleResult struct {
	// Succeeded holds toggled dates as YYYY-MM-DD, in processing order.
	Succeeded []string
	// NotFound is the date that could not be located and stopped the batch.
	NotFound *portal.Date
}

// Toggler flips availability cells in the simple-management grid.
type Toggler struct {
	Locator PageLocator
	Pacer   *browser.Pacer
	Log     logging.Logger
}

// Sync toggles room's cell for each date. dates must be sorted ascending; the
// calendar only pages forward. The first date that cannot be located stops the
// batch. Clicks already issued are not undone on error.
func (t *Toggler) Sync(ctx context.Context, sess browser.Session, dates []portal.Date, room portal.Room) (ToggleResult, error) {
	log := t.Log
	if log == nil {
		log = logging.NewNop()
	}
	row := room.Index()
	if row < 0 {
		return ToggleResult{}, fmt.Errorf("unknown room %q", room)
	}

	res := ToggleResult{Succeeded: []string{}}
	for _, d := range dates {
		log.Info("toggling reservation", "date", d.String(), "room", room.String())

		offset, found, err := t.Locator.Locate(ctx, sess, d)
		if err != nil {
			return res, fmt.Errorf("locate %s: %w", d, err)
		}
		if !found {
			log.Warn("date not found in calendar, stopping", "date", d.String())
			nf := d
			res.NotFound = &nf
			return res, nil
		}

		input, err := toggleControl(ctx, sess, row, offset)
		if err != nil {
			return res, fmt.Errorf("toggle control for %s: %w", d, err)
		}
		if err := sess.Click(ctx, input); err != nil {
			return res, fmt.Errorf("toggle %s: %w", d, err)
		}
		res.Succeeded = append(res.Succeeded, d.String())
		log.Info("reservation toggled", "date", d.String(), "room", room.String())

		if err := t.Pacer.Wait(ctx, sess); err != nil {
			return res, err
		}
	}
	return res, nil
}

// toggleControl resolves grid body > row > cell[offset] > div > input.
func toggleControl(ctx context.Context, sess browser.Session, row, offset int) (browser.Locator, error) {
	body, err := sess.FindChild(ctx, browser.Locator{}, portal.GridBodySelector)
	if err != nil {
		return browser.Locator{}, err
	}
	rows, err := sess.FindChildren(ctx, body, portal.GridRowSelector)
	if err != nil {
		return browser.Locator{}, err
	}
	if row >= len(rows) {
		return browser.Locator{}, fmt.Errorf("grid row %d of %d: %w", row, len(rows), portal.ErrElementNotFound)
	}
	cells, err := sess.FindChildren(ctx, rows[row], portal.GridCellSelector)
	if err != nil {
		return browser.Locator{}, err
	}
	if offset < 0 || offset >= len(cells) {
		return browser.Locator{}, fmt.Errorf("grid cell %d of %d: %w", offset, len(cells), portal.ErrElementNotFound)
	}
	inner, err := sess.FindChild(ctx, cells[offset], portal.CellInnerSelector)
	if err != nil {
		return browser.Locator{}, err
	}
	return sess.FindChild(ctx, inner, portal.CellInputSelector)
}
