package caderidflux

import "time"

// SplitUnit selects the calendar unit a fetch is chunked by.
type SplitUnit int

const (
	// SplitNone issues a single query covering the whole range.
	SplitNone SplitUnit = iota
	// SplitHour chunks the range into one-hour windows.
	SplitHour
	// SplitDay chunks the range into 24-hour windows.
	SplitDay
	// SplitWeek chunks the range into seven-day windows.
	SplitWeek
	// SplitMonth chunks the range at calendar month boundaries.
	SplitMonth
	// SplitYear chunks the range at calendar year boundaries.
	SplitYear
)

// String returns the unit name.
func (u SplitUnit) String() string {
	switch u {
	case SplitNone:
		return "none"
	case SplitHour:
		return "hour"
	case SplitDay:
		return "day"
	case SplitWeek:
		return "week"
	case SplitMonth:
		return "month"
	case SplitYear:
		return "year"
	default:
		return "unknown"
	}
}

// SubWindow is one half-open [Start, End) slice of a requested range.
type SubWindow struct {
	Start time.Time
	End   time.Time
}

// SplitRange partitions [start, end) into sub-windows sized by unit. The
// result is contiguous, non-overlapping, ascending, and covers the range
// exactly: the final window is clipped to end.
//
// Hour, day, and week windows step in fixed durations from start. Month and
// year windows align to calendar boundaries, so the first and last windows
// may be partial units.
//
// A range of zero length yields one degenerate window.
func SplitRange(start, end time.Time, unit SplitUnit) []SubWindow {
	if !start.Before(end) {
		return []SubWindow{{Start: start, End: end}}
	}

	switch unit {
	case SplitHour:
		return splitFixed(start, end, time.Hour)
	case SplitDay:
		return splitFixed(start, end, 24*time.Hour)
	case SplitWeek:
		return splitFixed(start, end, 7*24*time.Hour)
	case SplitMonth, SplitYear:
		return splitCalendar(start, end, unit)
	default:
		return []SubWindow{{Start: start, End: end}}
	}
}

func splitFixed(start, end time.Time, step time.Duration) []SubWindow {
	var windows []SubWindow
	for cur := start; cur.Before(end); {
		next := cur.Add(step)
		if next.After(end) {
			next = end
		}
		windows = append(windows, SubWindow{Start: cur, End: next})
		cur = next
	}
	return windows
}

func splitCalendar(start, end time.Time, unit SplitUnit) []SubWindow {
	var windows []SubWindow
	for cur := start; cur.Before(end); {
		next := nextBoundary(cur, unit)
		if next.After(end) {
			next = end
		}
		windows = append(windows, SubWindow{Start: cur, End: next})
		cur = next
	}
	return windows
}

// nextBoundary returns the first month or year boundary strictly after t.
func nextBoundary(t time.Time, unit SplitUnit) time.Time {
	switch unit {
	case SplitYear:
		return time.Date(t.Year()+1, time.January, 1, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	}
}
