package portal

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"smartplace-sync/browser"
	"smartplace-sync/logging"
)

// DefaultMaxAdvances bounds how many times Locate pages the calendar forward.
const DefaultMaxAdvances = 10

// DateRange is the period the calendar currently shows, both ends inclusive.
type DateRange struct {
	Start Date
	End   Date
}

func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Offset returns the number of days from Start to d.
func (r DateRange) Offset(d Date) int {
	return d.DaysSince(r.Start)
}

func (r DateRange) String() string {
	return r.Start.String() + " ~ " + r.End.String()
}

// ParsePeriod reads the period anchor of a simple-management page.
func ParsePeriod(markup string) (DateRange, error) {
	doc, err := parseMarkup(markup)
	if err != nil {
		return DateRange{}, err
	}
	anchor := doc.Find(PeriodAnchorSelector).First()
	if anchor.Length() == 0 {
		return DateRange{}, fmt.Errorf("period anchor: %w", ErrElementNotFound)
	}

	start, end, err := SplitPeriod(ownText(anchor))
	if err != nil {
		return DateRange{}, err
	}
	r := DateRange{}
	if r.Start, err = ParseCalendarDate(start); err != nil {
		return DateRange{}, err
	}
	if r.End, err = ParseCalendarDate(end); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// ownText returns the first non-blank text node directly inside sel, falling back to
// the full text when the period is wrapped in a child element.
func ownText(sel *goquery.Selection) string {
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
				return strings.TrimSpace(c.Data)
			}
		}
	}
	return strings.TrimSpace(sel.Text())
}

// Locator pages the simple-management calendar until a target date is on screen.
type Locator struct {
	MaxAdvances int
	Pacer       *browser.Pacer
	Log         logging.Logger
	// OnAdvance, when set, is called after each next-period click.
	OnAdvance func()
}

// Locate returns the target's day offset within the displayed period. found is false
// when the target is still not displayed after MaxAdvances reads.
func (l *Locator) Locate(ctx context.Context, sess browser.Session, target Date) (offset int, found bool, err error) {
	limit := l.MaxAdvances
	if limit <= 0 {
		limit = DefaultMaxAdvances
	}
	log := l.Log
	if log == nil {
		log = logging.NewNop()
	}

	next := browser.Query(NextPeriodSelector)
	for i := 0; i < limit; i++ {
		markup, err := sess.Markup(ctx)
		if err != nil {
			return 0, false, fmt.Errorf("failed to read calendar: %w", err)
		}
		period, err := ParsePeriod(markup)
		if err != nil {
			return 0, false, err
		}

		if period.Contains(target) {
			offset := period.Offset(target)
			log.Debug("target in period", "target", target.String(), "period", period.String(), "offset", offset)
			return offset, true, nil
		}

		log.Debug("target not in period", "target", target.String(), "period", period.String())
		if err := sess.Click(ctx, next); err != nil {
			return 0, false, fmt.Errorf("failed to advance calendar: %w", err)
		}
		if l.OnAdvance != nil {
			l.OnAdvance()
		}
		if err := l.Pacer.Wait(ctx, sess); err != nil {
			return 0, false, err
		}
	}

	log.Warn("target not found within search budget", "target", target.String(), "advances", limit)
	return 0, false, nil
}
