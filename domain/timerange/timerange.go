// Package timerange turns a configured reporting period into a concrete
// [start, end] window with microsecond boundaries.
package timerange

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects the period type.
type Kind string

const (
	KindYear  Kind = "year"
	KindMonth Kind = "month"
	KindWeek  Kind = "week"
	KindDay   Kind = "day"
	KindLastX Kind = "lastx"
)

// DefaultKind is used for unknown or empty kinds.
const DefaultKind = KindMonth

// Unit is the step of a last-X window.
type Unit string

const (
	UnitDays  Unit = "d"
	UnitWeeks Unit = "w"
	UnitYears Unit = "y"
)

// DateFormat is the query-string date layout of the remote API.
const DateFormat = "2006-01-02"

// Weekdays is the weekday order used for week-start names, Monday first.
var Weekdays = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Config describes one period choice.
type Config struct {
	Kind Kind
	// Previous selects the period before the one containing the reference.
	Previous bool
	// YearStart is YYYY-MM-DD or MM-DD; only month and day are used.
	YearStart string
	// MonthStart is the day of month a month period begins on, 1-31.
	MonthStart int
	// WeekStart is a weekday name ("mon", "Monday", ...).
	WeekStart string
	LastCount int
	LastUnit  Unit
}

// Range is an inclusive window; End is the last microsecond of the period.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r Range) String() string {
	return fmt.Sprintf("%s/%s", r.Start.Format(time.RFC3339Nano), r.End.Format(time.RFC3339Nano))
}

// Duration is the length of the window.
func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Contains reports whether t falls inside the window.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// StartDate formats Start for query strings.
func (r Range) StartDate() string { return r.Start.Format(DateFormat) }

// EndDate formats End for query strings.
func (r Range) EndDate() string { return r.End.Format(DateFormat) }

// ExtendForBills pushes End forward by the window's own duration and
// clamps it to the end of that day, so the window covers the billing
// period and the following settlement period.
func (r Range) ExtendForBills() Range {
	end := r.End.Add(r.Duration())
	return Range{Start: r.Start, End: endOfDay(end)}
}

// Resolve computes the window for cfg as of ref. It is total: invalid
// parameters fall back to their defaults.
func Resolve(cfg Config, ref time.Time) Range {
	kind := cfg.Kind
	switch kind {
	case KindYear, KindMonth, KindWeek, KindDay, KindLastX:
	default:
		kind = DefaultKind
	}

	if !cfg.Previous {
		return resolveKind(kind, cfg, ref)
	}
	if kind == KindLastX {
		count, unit := normalizeLastX(cfg.LastCount, cfg.LastUnit)
		return lastXRange(count, unit, ref.AddDate(0, 0, -unitDays(count, unit)))
	}
	// The previous window ends right before the current one starts.
	current := resolveKind(kind, cfg, ref)
	return resolveKind(kind, cfg, beforeInstant(current.Start))
}

func resolveKind(kind Kind, cfg Config, ref time.Time) Range {
	switch kind {
	case KindYear:
		return yearRange(cfg.YearStart, ref)
	case KindWeek:
		return weekRange(cfg.WeekStart, ref)
	case KindDay:
		return dayRange(ref)
	case KindLastX:
		return lastXRange(cfg.LastCount, cfg.LastUnit, ref)
	default:
		return monthRange(cfg.MonthStart, ref)
	}
}

func yearRange(yearStart string, ref time.Time) Range {
	month, day := parseYearStart(yearStart)

	start := date(ref.Year(), month, day, ref.Location())
	if start.After(ref) {
		start = date(ref.Year()-1, month, day, ref.Location())
	}
	next := date(start.Year()+1, month, day, ref.Location())
	return Range{Start: start, End: beforeInstant(next)}
}

func monthRange(startDay int, ref time.Time) Range {
	start := date(ref.Year(), ref.Month(), startDay, ref.Location())
	if start.After(ref) {
		prev := firstOfMonth(ref).AddDate(0, -1, 0)
		start = date(prev.Year(), prev.Month(), startDay, ref.Location())
	}
	following := firstOfMonth(start).AddDate(0, 1, 0)
	next := date(following.Year(), following.Month(), startDay, ref.Location())
	return Range{Start: start, End: beforeInstant(next)}
}

func weekRange(weekStart string, ref time.Time) Range {
	target := weekdayIndex(weekStart)
	current := (int(ref.Weekday()) + 6) % 7

	delta := (target - current + 7) % 7
	if delta == 0 {
		delta = 7
	}
	next := midnight(ref).AddDate(0, 0, delta)
	start := next.AddDate(0, 0, -7)
	return Range{Start: start, End: beforeInstant(next)}
}

func dayRange(ref time.Time) Range {
	return Range{Start: midnight(ref), End: endOfDay(ref)}
}

func lastXRange(count int, unit Unit, ref time.Time) Range {
	count, unit = normalizeLastX(count, unit)
	start := midnight(ref).AddDate(0, 0, -unitDays(count, unit))
	return Range{Start: start, End: endOfDay(ref)}
}

func normalizeLastX(count int, unit Unit) (int, Unit) {
	if count < 1 {
		count = 1
	}
	switch unit {
	case UnitDays, UnitWeeks, UnitYears:
	default:
		unit = UnitDays
	}
	return count, unit
}

// unitDays converts a last-X span to days. A year counts as 52 weeks.
func unitDays(count int, unit Unit) int {
	switch unit {
	case UnitWeeks:
		return count * 7
	case UnitYears:
		return count * 52 * 7
	default:
		return count
	}
}

func parseYearStart(s string) (time.Month, int) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateFormat, "01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Month(), t.Day()
		}
	}
	return time.January, 1
}

func weekdayIndex(name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) >= 3 {
		name = name[:3]
	}
	for i, wd := range Weekdays {
		if wd == name {
			return i
		}
	}
	return 0
}

// date builds midnight of year/month/day with day clamped into the month.
func date(year int, month time.Month, day int, loc *time.Location) time.Time {
	if day < 1 {
		day = 1
	}
	if last := daysIn(year, month, loc); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return beforeInstant(midnight(t).AddDate(0, 0, 1))
}

func beforeInstant(t time.Time) time.Time {
	return t.Add(-time.Microsecond)
}
