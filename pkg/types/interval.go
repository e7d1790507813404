package types

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval of the given length starting at start.
func NewInterval(start time.Time, durationMinutes int) Interval {
	return Interval{Start: start, End: start.Add(time.Duration(durationMinutes) * time.Minute)}
}

// Overlaps reports whether the two ranges share any instant.
// Back-to-back ranges (one ends exactly where the other starts) do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Overlaps is the half-open test on raw bounds: s1 < e2 && s2 < e1.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// IntervalSet is an unordered collection of busy ranges prefetched for one day.
type IntervalSet []Interval

// Overlaps reports whether any member overlaps candidate.
func (s IntervalSet) Overlaps(candidate Interval) bool {
	for _, iv := range s {
		if iv.Overlaps(candidate) {
			return true
		}
	}
	return false
}
