package report

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type RangeKind string

const (
	RangeToday     RangeKind = "today"
	RangeYesterday RangeKind = "yesterday"
	RangeWeek      RangeKind = "week"
	RangeMonth     RangeKind = "month"
	RangeYear      RangeKind = "year"
	RangeCustom    RangeKind = "custom"
)

var (
	ErrIncompleteRange = errors.New("custom range needs both start and end dates")
	ErrUnknownRange    = errors.New("unknown report range")
	ErrQueryFailure    = errors.New("report query failed")
)

// Range is an inclusive [Start, End] window. End is the last millisecond of
// its day.
type Range struct {
	Kind  RangeKind `json:"kind"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Key identifies the window for caching the last computed aggregate.
func (r Range) Key() string {
	return string(r.Kind) + "|" + r.Start.Format(time.RFC3339Nano) + "|" + r.End.Format(time.RFC3339Nano)
}

func ParseRangeKind(raw string) (RangeKind, error) {
	kind := RangeKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case "":
		return RangeMonth, nil
	case RangeToday, RangeYesterday, RangeWeek, RangeMonth, RangeYear, RangeCustom:
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRange, raw)
}

// ResolveRange turns a range kind into day-bounded instants in loc. Rolling
// ranges (week, month, year) start at midnight of the shifted day and end at
// the end of today. Custom ranges use the calendar dates of customStart and
// customEnd; a zero value for either yields ErrIncompleteRange.
func ResolveRange(kind RangeKind, now time.Time, customStart time.Time, customEnd time.Time, loc *time.Location) (Range, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	r := Range{Kind: kind}
	switch kind {
	case RangeToday:
		r.Start, r.End = startOfDay(now), endOfDay(now)
	case RangeYesterday:
		y := now.AddDate(0, 0, -1)
		r.Start, r.End = startOfDay(y), endOfDay(y)
	case RangeWeek:
		r.Start, r.End = startOfDay(now.AddDate(0, 0, -7)), endOfDay(now)
	case RangeMonth:
		r.Start, r.End = startOfDay(now.AddDate(0, -1, 0)), endOfDay(now)
	case RangeYear:
		r.Start, r.End = startOfDay(now.AddDate(-1, 0, 0)), endOfDay(now)
	case RangeCustom:
		if customStart.IsZero() || customEnd.IsZero() {
			return Range{}, ErrIncompleteRange
		}
		r.Start, r.End = startOfDay(calendarDate(customStart, loc)), endOfDay(calendarDate(customEnd, loc))
	default:
		return Range{}, fmt.Errorf("%w: %q", ErrUnknownRange, kind)
	}
	return r, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// calendarDate keeps the wall-clock date of t and moves it into loc, so a
// parsed "2026-10-01" means that day in the report zone.
func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, loc)
}
