// Package period resolves a reporting mode and preset into an index window
// over a location's daily time series.
package period

import (
	"time"
)

type Mode string

const (
	ModeCurrent    Mode = "current"
	ModeFuture     Mode = "future"
	ModeHistorical Mode = "historical"
)

type Preset string

const (
	PresetToday Preset = "today"
	Preset7Day  Preset = "7day"
	Preset14Day Preset = "14day"
)

// Range is an inclusive explicit date range for historical reports.
type Range struct {
	Start time.Time
	End   time.Time
}

// Window is a resolved [Start, End) index pair into a daily date slice.
// ReferenceDate splits the window: days before it are "actual", days at or
// after it are "forecast". An empty window (Start == End) is a valid
// "no data" result, never an error.
type Window struct {
	Start         int
	End           int
	ReferenceDate time.Time
}

func (w Window) Empty() bool { return w.Start >= w.End }
func (w Window) Days() int   { return w.End - w.Start }

// lookback is how far before the anchor date the window opens, and
// defaultFutureOffset is the anchor used for future reports when the series
// does not reach the requested reference date.
const (
	lookbackDays        = 7
	defaultFutureOffset = 7
)

// Resolve maps (mode, preset, explicit range) onto the dates slice, which
// must be sorted ascending with no duplicates. now supplies "today"; pass a
// fixed value in tests. The result always satisfies
// 0 <= Start <= End <= len(dates).
func Resolve(dates []time.Time, mode Mode, preset Preset, explicit *Range, refOverride *time.Time, now time.Time) Window {
	today := truncateDay(now)

	switch mode {
	case ModeHistorical:
		w := Window{ReferenceDate: today}
		if explicit != nil {
			w.Start = indexOfDate(dates, truncateDay(explicit.Start))
			w.End = firstIndexAfter(dates, truncateDay(explicit.End))
		}
		return clampWindow(w, len(dates))

	case ModeFuture:
		ref := today.AddDate(0, 0, lookbackDays)
		if refOverride != nil {
			ref = truncateDay(*refOverride)
		}
		anchor := firstIndexAtOrAfter(dates, ref)
		if anchor == len(dates) {
			anchor = min(defaultFutureOffset, len(dates))
		}
		return windowAround(anchor, preset, ref, len(dates))

	default: // ModeCurrent
		anchor := firstIndexAtOrAfter(dates, today)
		return windowAround(anchor, preset, today, len(dates))
	}
}

func windowAround(anchor int, preset Preset, ref time.Time, n int) Window {
	start := anchor - lookbackDays
	if start < 0 {
		start = 0
	}
	w := Window{
		Start:         start,
		End:           start + presetSpan(preset),
		ReferenceDate: ref,
	}
	return clampWindow(w, n)
}

// presetSpan is the window length in days counted from the window start,
// which already sits lookbackDays before the anchor.
func presetSpan(preset Preset) int {
	if preset == PresetToday {
		return 1
	}
	return 14
}

func clampWindow(w Window, n int) Window {
	if w.Start < 0 {
		w.Start = 0
	}
	if w.Start > n {
		w.Start = n
	}
	if w.End > n {
		w.End = n
	}
	if w.End < w.Start {
		w.End = w.Start
	}
	return w
}

// firstIndexAtOrAfter returns len(dates) when every date precedes target.
func firstIndexAtOrAfter(dates []time.Time, target time.Time) int {
	for i, d := range dates {
		if !truncateDay(d).Before(target) {
			return i
		}
	}
	return len(dates)
}

// firstIndexAfter returns len(dates) when no date exceeds target.
func firstIndexAfter(dates []time.Time, target time.Time) int {
	for i, d := range dates {
		if truncateDay(d).After(target) {
			return i
		}
	}
	return len(dates)
}

// indexOfDate returns the exact match index, or 0 when the date is absent.
func indexOfDate(dates []time.Time, target time.Time) int {
	for i, d := range dates {
		if truncateDay(d).Equal(target) {
			return i
		}
	}
	return 0
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
