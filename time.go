package tsarchive

import (
	"fmt"
	"time"
)

// TimeInstant is an epoch-seconds-plus-nanoseconds point in time with a
// total order. It is distinct from time.Time so that archive-side
// timestamps round-trip exactly regardless of the caller's local time.Time
// monotonic reading.
type TimeInstant struct {
	Seconds     int64
	Nanoseconds int32
}

// NewTimeInstant builds a TimeInstant from seconds and nanoseconds,
// normalizing so that 0 <= Nanoseconds < 1e9.
func NewTimeInstant(seconds int64, nanoseconds int32) TimeInstant {
	for nanoseconds < 0 {
		nanoseconds += 1e9
		seconds--
	}
	for nanoseconds >= 1e9 {
		nanoseconds -= 1e9
		seconds++
	}
	return TimeInstant{Seconds: seconds, Nanoseconds: nanoseconds}
}

// TimeInstantFromTime converts a time.Time into a TimeInstant.
func TimeInstantFromTime(t time.Time) TimeInstant {
	return TimeInstant{Seconds: t.Unix(), Nanoseconds: int32(t.Nanosecond())}
}

// Time converts the TimeInstant back into a time.Time (UTC).
func (t TimeInstant) Time() time.Time {
	return time.Unix(t.Seconds, int64(t.Nanoseconds)).UTC()
}

// Compare returns -1, 0, or 1 as t is before, equal to, or after other.
func (t TimeInstant) Compare(other TimeInstant) int {
	switch {
	case t.Seconds < other.Seconds:
		return -1
	case t.Seconds > other.Seconds:
		return 1
	case t.Nanoseconds < other.Nanoseconds:
		return -1
	case t.Nanoseconds > other.Nanoseconds:
		return 1
	default:
		return 0
	}
}

// Before reports whether t occurs strictly before other.
func (t TimeInstant) Before(other TimeInstant) bool { return t.Compare(other) < 0 }

// After reports whether t occurs strictly after other.
func (t TimeInstant) After(other TimeInstant) bool { return t.Compare(other) > 0 }

// Equal reports whether t and other denote the same instant.
func (t TimeInstant) Equal(other TimeInstant) bool { return t.Compare(other) == 0 }

// Add returns the instant d after t.
func (t TimeInstant) Add(d time.Duration) TimeInstant {
	totalNanos := int64(t.Nanoseconds) + int64(d)
	secs := t.Seconds + totalNanos/1e9
	nanos := int32(totalNanos % 1e9)
	return NewTimeInstant(secs, nanos)
}

// Sub returns the duration t - other.
func (t TimeInstant) Sub(other TimeInstant) time.Duration {
	secs := t.Seconds - other.Seconds
	nanos := int64(t.Nanoseconds) - int64(other.Nanoseconds)
	return time.Duration(secs)*time.Second + time.Duration(nanos)
}

// String implements fmt.Stringer.
func (t TimeInstant) String() string {
	return t.Time().Format(time.RFC3339Nano)
}

// TimeInterval is a closed interval [Begin, End] of TimeInstants.
// Invariant: Begin <= End.
type TimeInterval struct {
	Begin TimeInstant
	End   TimeInstant
}

// NewTimeInterval constructs a TimeInterval, returning an error if begin > end.
func NewTimeInterval(begin, end TimeInstant) (TimeInterval, error) {
	if begin.After(end) {
		return TimeInterval{}, fmt.Errorf("tsarchive: invalid interval: begin %s is after end %s", begin, end)
	}
	return TimeInterval{Begin: begin, End: end}, nil
}

// Duration returns End - Begin.
func (iv TimeInterval) Duration() time.Duration {
	return iv.End.Sub(iv.Begin)
}

// Contains reports whether instant falls within the closed interval.
func (iv TimeInterval) Contains(instant TimeInstant) bool {
	return !instant.Before(iv.Begin) && !instant.After(iv.End)
}

// Intersects reports whether iv and other share at least one instant.
func (iv TimeInterval) Intersects(other TimeInterval) bool {
	return !iv.Begin.After(other.End) && !other.Begin.After(iv.End)
}

// Union returns the smallest interval covering both iv and other.
// The two intervals need not intersect; Union always succeeds.
func (iv TimeInterval) Union(other TimeInterval) TimeInterval {
	begin := iv.Begin
	if other.Begin.Before(begin) {
		begin = other.Begin
	}
	end := iv.End
	if other.End.After(end) {
		end = other.End
	}
	return TimeInterval{Begin: begin, End: end}
}

// Intersection returns the overlap of iv and other, and whether one exists.
func (iv TimeInterval) Intersection(other TimeInterval) (TimeInterval, bool) {
	if !iv.Intersects(other) {
		return TimeInterval{}, false
	}
	begin := iv.Begin
	if other.Begin.After(begin) {
		begin = other.Begin
	}
	end := iv.End
	if other.End.Before(end) {
		end = other.End
	}
	return TimeInterval{Begin: begin, End: end}, true
}

// Equal reports whether iv and other denote the same interval.
func (iv TimeInterval) Equal(other TimeInterval) bool {
	return iv.Begin.Equal(other.Begin) && iv.End.Equal(other.End)
}

// String implements fmt.Stringer.
func (iv TimeInterval) String() string {
	return fmt.Sprintf("[%s, %s]", iv.Begin, iv.End)
}
