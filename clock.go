package tsarchive

import (
	"fmt"
	"time"
)

// PeriodUnit is the unit of SamplingClock.Period.
type PeriodUnit int

const (
	// PeriodNanoseconds treats Period as a count of nanoseconds.
	PeriodNanoseconds PeriodUnit = iota
	// PeriodMicroseconds treats Period as a count of microseconds.
	PeriodMicroseconds
	// PeriodMilliseconds treats Period as a count of milliseconds.
	PeriodMilliseconds
	// PeriodSeconds treats Period as a count of seconds.
	PeriodSeconds
)

// Duration returns the PeriodUnit expressed as a time.Duration multiplier.
func (u PeriodUnit) Duration() (time.Duration, error) {
	switch u {
	case PeriodNanoseconds:
		return time.Nanosecond, nil
	case PeriodMicroseconds:
		return time.Microsecond, nil
	case PeriodMilliseconds:
		return time.Millisecond, nil
	case PeriodSeconds:
		return time.Second, nil
	default:
		return 0, fmt.Errorf("tsarchive: invalid period unit %d", u)
	}
}

// SamplingClock describes Count evenly-spaced instants starting at Start,
// spaced Period apart in PeriodUnits. Invariants: Period > 0, Count >= 0.
type SamplingClock struct {
	Start       TimeInstant
	Period      int64
	Count       int64
	PeriodUnits PeriodUnit
}

// NewSamplingClock validates and constructs a SamplingClock.
func NewSamplingClock(start TimeInstant, period int64, count int64, units PeriodUnit) (SamplingClock, error) {
	if period <= 0 {
		return SamplingClock{}, fmt.Errorf("tsarchive: sampling clock period must be > 0, got %d", period)
	}
	if count < 0 {
		return SamplingClock{}, fmt.Errorf("tsarchive: sampling clock count must be >= 0, got %d", count)
	}
	if _, err := units.Duration(); err != nil {
		return SamplingClock{}, err
	}
	return SamplingClock{Start: start, Period: period, Count: count, PeriodUnits: units}, nil
}

// periodDuration returns one period as a time.Duration.
func (c SamplingClock) periodDuration() time.Duration {
	unit, _ := c.PeriodUnits.Duration()
	return time.Duration(c.Period) * unit
}

// Instant materializes the i'th instant of the clock: start + i*period.
func (c SamplingClock) Instant(i int64) (TimeInstant, error) {
	if i < 0 || i >= c.Count {
		return TimeInstant{}, fmt.Errorf("tsarchive: clock index %d out of range [0, %d)", i, c.Count)
	}
	return c.Start.Add(time.Duration(i) * c.periodDuration()), nil
}

// Instants materializes every instant covered by the clock, in order.
func (c SamplingClock) Instants() []TimeInstant {
	out := make([]TimeInstant, c.Count)
	step := c.periodDuration()
	cur := c.Start
	for i := int64(0); i < c.Count; i++ {
		out[i] = cur
		cur = cur.Add(step)
	}
	return out
}

// End returns the instant of the clock's last sample. Count == 0 returns Start.
func (c SamplingClock) End() TimeInstant {
	if c.Count == 0 {
		return c.Start
	}
	return c.Start.Add(time.Duration(c.Count-1) * c.periodDuration())
}

// Interval returns the closed TimeInterval [Start, End()] covered by the clock.
func (c SamplingClock) Interval() TimeInterval {
	iv, _ := NewTimeInterval(c.Start, c.End())
	return iv
}

// Equal reports whether two clocks are identical: all four fields match.
func (c SamplingClock) Equal(other SamplingClock) bool {
	return c.Start.Equal(other.Start) &&
		c.Period == other.Period &&
		c.Count == other.Count &&
		c.PeriodUnits == other.PeriodUnits
}

// CompatibleWith reports whether c and other share (Period, PeriodUnits)
// and describe adjacent coverage: other.Start immediately follows c.End(),
// or vice versa, i.e. the two clocks could be concatenated into one
// continuous sequence with no gap or overlap.
func (c SamplingClock) CompatibleWith(other SamplingClock) bool {
	if c.Period != other.Period || c.PeriodUnits != other.PeriodUnits {
		return false
	}
	step := c.periodDuration()
	return c.End().Add(step).Equal(other.Start) || other.End().Add(step).Equal(c.Start)
}

// TimestampList is an explicit ordered sequence of TimeInstant. Length
// equals the sample count of the associated column(s). A list is
// "unordered" when it is not required to be strictly monotone.
type TimestampList struct {
	Timestamps []TimeInstant
	Unordered  bool
}

// NewTimestampList validates ordering (unless unordered) and constructs the list.
func NewTimestampList(timestamps []TimeInstant, unordered bool) (TimestampList, error) {
	if !unordered {
		for i := 1; i < len(timestamps); i++ {
			if !timestamps[i-1].Before(timestamps[i]) {
				return TimestampList{}, fmt.Errorf("tsarchive: timestamp list not strictly monotone at index %d", i)
			}
		}
	}
	return TimestampList{Timestamps: timestamps, Unordered: unordered}, nil
}

// Len returns the number of timestamps.
func (l TimestampList) Len() int { return len(l.Timestamps) }

// Interval returns the closed interval covered by the list. An empty list
// yields the zero TimeInterval.
func (l TimestampList) Interval() TimeInterval {
	if len(l.Timestamps) == 0 {
		return TimeInterval{}
	}
	begin, end := l.Timestamps[0], l.Timestamps[0]
	for _, ts := range l.Timestamps[1:] {
		if ts.Before(begin) {
			begin = ts
		}
		if ts.After(end) {
			end = ts
		}
	}
	iv, _ := NewTimeInterval(begin, end)
	return iv
}

// Equal reports element-wise equality of two timestamp lists (identity for
// grouping purposes: same length, same instants in the same order).
func (l TimestampList) Equal(other TimestampList) bool {
	if len(l.Timestamps) != len(other.Timestamps) {
		return false
	}
	for i, ts := range l.Timestamps {
		if !ts.Equal(other.Timestamps[i]) {
			return false
		}
	}
	return true
}
