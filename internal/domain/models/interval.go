package models

import "strings"

// Interval is the sampling resolution of a remote price series.
type Interval string

const (
	IntervalHour  Interval = "h"
	IntervalDay   Interval = "d"
	IntervalWeek  Interval = "w"
	IntervalMonth Interval = "m"
	IntervalYear  Interval = "y"
)

// AllIntervals lists every supported interval, finest first.
var AllIntervals = []Interval{IntervalHour, IntervalDay, IntervalWeek, IntervalMonth, IntervalYear}

// IsValid returns true if the interval is supported.
func (i Interval) IsValid() bool {
	switch i {
	case IntervalHour, IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
		return true
	default:
		return false
	}
}

// DefaultInterval returns the interval used when none is given.
func DefaultInterval() Interval { return IntervalDay }

// NormalizeInterval converts a raw string to a valid interval (or default).
// Long forms such as "day" or "1d" are accepted.
func NormalizeInterval(s string) Interval {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return DefaultInterval()
	case "hour", "1h":
		return IntervalHour
	case "day", "1d":
		return IntervalDay
	case "week", "1w":
		return IntervalWeek
	case "month", "1mo":
		return IntervalMonth
	case "year", "1y":
		return IntervalYear
	}
	iv := Interval(s)
	if iv.IsValid() {
		return iv
	}
	return DefaultInterval()
}
