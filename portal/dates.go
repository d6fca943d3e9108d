package portal

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Date is a civil calendar date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate validates y-m-d against the calendar.
func NewDate(y int, m time.Month, d int) (Date, bool) {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != m || t.Day() != d {
		return Date{}, false
	}
	return Date{Year: y, Month: m, Day: d}, true
}

// DateOf returns the civil date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compact formats d as YYYYMMDD.
func (d Date) Compact() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// DaysSince returns the number of whole days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.In(time.UTC).Sub(other.In(time.UTC)).Hours() / 24)
}

func (d Date) Before(other Date) bool { return d.DaysSince(other) < 0 }
func (d Date) After(other Date) bool  { return d.DaysSince(other) > 0 }

// components splits a dotted date on "." and trims each part, dropping empty parts.
func components(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ".") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// dateComponents is components without a trailing "(weekday)" part.
func dateComponents(raw string) []string {
	parts := components(raw)
	if len(parts) > 0 && strings.HasPrefix(parts[len(parts)-1], "(") {
		parts = parts[:len(parts)-1]
	}
	return parts
}

func numeric(raw, part string) (int, error) {
	n, err := strconv.Atoi(part)
	if err != nil || n < 0 {
		return 0, malformed(raw, "component %q is not numeric", part)
	}
	return n, nil
}

// checkYear accepts only two- and four-digit year tokens.
func checkYear(raw, year string) error {
	if n := len(year); n != 2 && n != 4 {
		return malformed(raw, "year %q must have 2 or 4 digits", year)
	}
	return nil
}

// ParseCompact converts a booking-list date such as "24. 8. 9.(월)" into "20240809".
// The trailing weekday is discarded and the year is "20" followed by the last two
// digits of the first token.
func ParseCompact(raw string) (string, error) {
	parts := dateComponents(raw)
	if len(parts) < 3 {
		return "", malformed(raw, "want 3 components, got %d", len(parts))
	}

	year := parts[0]
	if _, err := numeric(raw, year); err != nil {
		return "", err
	}
	if err := checkYear(raw, year); err != nil {
		return "", err
	}
	year = year[len(year)-2:]
	y, _ := strconv.Atoi("20" + year)

	m, err := numeric(raw, parts[1])
	if err != nil {
		return "", err
	}
	d, err := numeric(raw, parts[2])
	if err != nil {
		return "", err
	}

	date, ok := NewDate(y, time.Month(m), d)
	if !ok {
		return "", malformed(raw, "no such day")
	}
	return date.Compact(), nil
}

// ParseCalendarDate parses a calendar-period date: "YY. M. D" or "YYYY. M. D".
// Two-digit years are taken to be in the 2000s.
func ParseCalendarDate(raw string) (Date, error) {
	parts := dateComponents(raw)
	if len(parts) != 3 {
		return Date{}, malformed(raw, "want 3 components, got %d", len(parts))
	}

	var nums [3]int
	for i, p := range parts {
		n, err := numeric(raw, p)
		if err != nil {
			return Date{}, err
		}
		nums[i] = n
	}
	if err := checkYear(raw, parts[0]); err != nil {
		return Date{}, err
	}
	if len(parts[0]) == 2 {
		nums[0] += 2000
	}

	date, ok := NewDate(nums[0], time.Month(nums[1]), nums[2])
	if !ok {
		return Date{}, malformed(raw, "no such day")
	}
	return date, nil
}

// ParseCompactDate parses a YYYYMMDD string.
func ParseCompactDate(s string) (Date, error) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return Date{}, malformed(s, "want YYYYMMDD")
	}
	return DateOf(t), nil
}

// SplitPeriod splits "<start> ~ <end>" into its trimmed halves. When the end half
// carries only month and day, the first two characters of the start half are
// borrowed as its year.
func SplitPeriod(raw string) (start, end string, err error) {
	halves := strings.Split(raw, "~")
	if len(halves) != 2 {
		return "", "", malformed(raw, "want one '~' separator")
	}
	start = strings.TrimSpace(halves[0])
	end = strings.TrimSpace(halves[1])
	if start == "" || end == "" {
		return "", "", malformed(raw, "empty period half")
	}

	if numericComponents(end) == 2 && len(start) >= 2 {
		end = start[:2] + "." + end
	}
	return start, end, nil
}

// numericComponents counts the dot-separated parts of s that hold a number,
// ignoring a trailing weekday such as "(월)".
func numericComponents(s string) int {
	n := 0
	for _, p := range components(s) {
		if _, err := strconv.Atoi(p); err == nil {
			n++
		}
	}
	return n
}

// ParseTargetDates parses comma-separated YYYY-MM-DD dates and returns them in
// ascending order. Duplicates are kept.
func ParseTargetDates(csv string) ([]Date, error) {
	var dates []Date
	for _, field := range strings.Split(csv, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		t, err := time.Parse("2006-1-2", field)
		if err != nil {
			return nil, malformed(field, "want YYYY-MM-DD")
		}
		dates = append(dates, DateOf(t))
	}
	if len(dates) == 0 {
		return nil, malformed(csv, "no dates")
	}

	sort.SliceStable(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}
