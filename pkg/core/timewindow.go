package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MJDEpoch is the origin of Modified Julian Date.
var MJDEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

// SecondsPerDay converts MJD days to the MJD seconds stored in TIME columns.
const SecondsPerDay = 86400.0

// TimeToMJDSeconds converts a wall-clock time to MJD seconds.
func TimeToMJDSeconds(t time.Time) float64 {
	t = t.UTC()
	return float64(t.Unix()-MJDEpoch.Unix()) + float64(t.Nanosecond())/1e9
}

// MJDSecondsToTime converts MJD seconds back to UTC.
func MJDSecondsToTime(s float64) time.Time {
	whole := math.Floor(s)
	ns := int64(math.Round((s - whole) * 1e9))
	return time.Unix(MJDEpoch.Unix()+int64(whole), ns).UTC()
}

// MJD returns the (fractional) Modified Julian Date of t.
func MJD(t time.Time) float64 {
	return TimeToMJDSeconds(t) / SecondsPerDay
}

// FormatMJDSeconds renders MJD seconds in the YYYY/MM/DD/hh:mm:ss form
// accepted by ParseTime.
func FormatMJDSeconds(s float64) string {
	switch {
	case math.IsInf(s, -1):
		return "-inf"
	case math.IsInf(s, 1):
		return "+inf"
	}
	return MJDSecondsToTime(s).Format("2006/01/02/15:04:05")
}

// ParseTime parses YYYY/MM/DD/hh:mm[:ss] or YYYY/DOY/hh:mm[:ss] as UTC.
func ParseTime(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")

	var date time.Time
	switch len(parts) {
	case 4:
		d, err := time.Parse("2006/01/02", strings.Join(parts[:3], "/"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date in %q: %w", s, err)
		}
		date = d
	case 3:
		year, err := strconv.Atoi(parts[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid year in %q: %w", s, err)
		}
		doy, err := strconv.Atoi(parts[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day of year in %q: %w", s, err)
		}
		if doy < 1 || doy > daysInYear(year) {
			return time.Time{}, fmt.Errorf("invalid day of year %d in %q", doy, s)
		}
		date = time.Date(year, time.January, doy, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}, fmt.Errorf("invalid time %q: expected YYYY/MM/DD/hh:mm[:ss] or YYYY/DOY/hh:mm[:ss]", s)
	}

	clock := parts[len(parts)-1]
	layout := "15:04"
	if strings.Count(clock, ":") == 2 {
		layout = "15:04:05"
	}
	c, err := time.Parse(layout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock time in %q: %w", s, err)
	}

	return time.Date(date.Year(), date.Month(), date.Day(),
		c.Hour(), c.Minute(), c.Second(), 0, time.UTC), nil
}

// DayOfYear returns the ordinal day of t in UTC.
func DayOfYear(t time.Time) int { return t.UTC().YearDay() }

func daysInYear(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}

// TimeWindow is an inclusive interval of MJD seconds. Infinite bounds mean
// the side is open.
type TimeWindow struct {
	Start float64
	End   float64
}

// Unbounded returns the window containing every time.
func Unbounded() TimeWindow {
	return TimeWindow{Start: math.Inf(-1), End: math.Inf(1)}
}

// NewTimeWindow validates end >= start.
func NewTimeWindow(start, end float64) (TimeWindow, error) {
	if end < start {
		return TimeWindow{}, &InvalidTimeRangeError{Start: start, End: end}
	}
	return TimeWindow{Start: start, End: end}, nil
}

// WindowBetween builds a window from optional wall-clock bounds.
func WindowBetween(start, end *time.Time) (TimeWindow, error) {
	w := Unbounded()
	if start != nil {
		w.Start = TimeToMJDSeconds(*start)
	}
	if end != nil {
		w.End = TimeToMJDSeconds(*end)
	}
	return NewTimeWindow(w.Start, w.End)
}

// Contains reports whether start <= t <= end.
func (w TimeWindow) Contains(t float64) bool {
	return t >= w.Start && t <= w.End
}

// IsUnbounded reports whether both sides are open.
func (w TimeWindow) IsUnbounded() bool {
	return math.IsInf(w.Start, -1) && math.IsInf(w.End, 1)
}

// Intersect narrows w by o. An empty intersection is an invalid range.
func (w TimeWindow) Intersect(o TimeWindow) (TimeWindow, error) {
	return NewTimeWindow(math.Max(w.Start, o.Start), math.Min(w.End, o.End))
}

// Duration returns the window length in seconds.
func (w TimeWindow) Duration() float64 { return w.End - w.Start }

func (w TimeWindow) String() string {
	return fmt.Sprintf("[%s, %s]", FormatMJDSeconds(w.Start), FormatMJDSeconds(w.End))
}
