package tsarchive

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// TimeKey is the canonical identity of a time specification, used by the
// Raw Correlator to group messages into blocks. Two messages
// share a block iff their TimeKeys are Equal.
type TimeKey struct {
	// Clocked is true when the key identifies a SamplingClock; false when
	// it identifies a TimestampList.
	Clocked bool

	// Populated when Clocked is true.
	Start       TimeInstant
	Period      int64
	PeriodUnits PeriodUnit
	Count       int64

	// Populated when Clocked is false: an opaque identity for a
	// TimestampList, stable across equal lists regardless of identity
	// of the backing slice.
	listIdentity string
}

// ClockTimeKey builds the TimeKey for a SamplingClock: the exact
// (start, period, periodUnits, count) 4-tuple.
func ClockTimeKey(c SamplingClock) TimeKey {
	return TimeKey{
		Clocked:     true,
		Start:       c.Start,
		Period:      c.Period,
		PeriodUnits: c.PeriodUnits,
		Count:       c.Count,
	}
}

// TmsListTimeKey builds the TimeKey for a TimestampList: identity of the
// timestamp sequence itself (element-wise equality), canonicalized into a
// comparable string so TimeKey remains usable as a map key.
func TmsListTimeKey(l TimestampList) TimeKey {
	return TimeKey{Clocked: false, listIdentity: canonicalListIdentity(l)}
}

func canonicalListIdentity(l TimestampList) string {
	if len(l.Timestamps) == 0 {
		return "empty"
	}
	var sb strings.Builder
	for i, ts := range l.Timestamps {
		if i > 0 {
			sb.WriteByte('|')
		}
		fmt.Fprintf(&sb, "%d:%d", ts.Seconds, ts.Nanoseconds)
	}
	return sb.String()
}

// Equal reports whether two TimeKeys denote the same time specification.
func (k TimeKey) Equal(other TimeKey) bool {
	if k.Clocked != other.Clocked {
		return false
	}
	if k.Clocked {
		return k.Start.Equal(other.Start) && k.Period == other.Period &&
			k.PeriodUnits == other.PeriodUnits && k.Count == other.Count
	}
	return k.listIdentity == other.listIdentity
}

// Hash returns a canonical hash of the key suitable for bucketing
// correlator work across partitions post-pivot. Clock keys hash all four
// fields; list keys hash the canonical identity of the whole timestamp
// sequence, and Equal compares that identity exactly wherever Hash
// collides.
func (k TimeKey) Hash() uint64 {
	h := fnv.New64a()
	if k.Clocked {
		fmt.Fprintf(h, "c|%d|%d|%d|%d|%d", k.Start.Seconds, k.Start.Nanoseconds, k.Period, k.PeriodUnits, k.Count)
	} else {
		fmt.Fprintf(h, "l|%s", k.listIdentity)
	}
	return h.Sum64()
}

// StartTime returns the instant the time specification begins at, used for
// ordering blocks by start time.
func (k TimeKey) StartTime() TimeInstant {
	if k.Clocked {
		return k.Start
	}
	return TimeInstant{} // list keys carry no start; callers use the block's own StartTime instead.
}

// RawCorrelatedBlock is a set of columns sharing one time specification,
// emitted by the Raw Correlator. It is immutable once sealed.
type RawCorrelatedBlock interface {
	// TimeKeyOf returns the block's canonical time-specification identity.
	TimeKeyOf() TimeKey
	// StartTime returns the instant the block's coverage begins at.
	StartTime() TimeInstant
	// RowCount returns the number of samples every column in the block holds.
	RowCount() int64
	// ColumnsOf returns the block's columns.
	ColumnsOf() []DataColumn
}

// RawClockedBlock is a RawCorrelatedBlock whose rows are indexed by a
// SamplingClock.
type RawClockedBlock struct {
	Clock   SamplingClock
	Columns []DataColumn
}

func (b RawClockedBlock) TimeKeyOf() TimeKey    { return ClockTimeKey(b.Clock) }
func (b RawClockedBlock) StartTime() TimeInstant { return b.Clock.Start }
func (b RawClockedBlock) RowCount() int64        { return b.Clock.Count }
func (b RawClockedBlock) ColumnsOf() []DataColumn { return b.Columns }

// RawTmsListBlock is a RawCorrelatedBlock whose rows are indexed by an
// explicit TimestampList.
type RawTmsListBlock struct {
	TmsList TimestampList
	Columns []DataColumn
}

func (b RawTmsListBlock) TimeKeyOf() TimeKey { return TmsListTimeKey(b.TmsList) }
func (b RawTmsListBlock) StartTime() TimeInstant {
	if b.TmsList.Len() == 0 {
		return TimeInstant{}
	}
	return b.TmsList.Timestamps[0]
}
func (b RawTmsListBlock) RowCount() int64         { return int64(b.TmsList.Len()) }
func (b RawTmsListBlock) ColumnsOf() []DataColumn { return b.Columns }

// ValidateRawBlock checks the cross-field invariants a raw block must
// satisfy: every column shares the block's row count (a mismatch between a
// clock's count and a column's length is a CorruptMessage condition), and
// (for clocked blocks) the clock itself is well-formed.
func ValidateRawBlock(b RawCorrelatedBlock) error {
	rows := b.RowCount()
	for _, c := range b.ColumnsOf() {
		if int64(c.Len()) != rows {
			return fmt.Errorf("tsarchive: column %q has %d rows, block time key declares %d", c.Name, c.Len(), rows)
		}
	}
	if cb, ok := b.(RawClockedBlock); ok {
		if cb.Clock.Period <= 0 {
			return fmt.Errorf("tsarchive: clock period must be > 0, got %d", cb.Clock.Period)
		}
		if cb.Clock.Count < 0 {
			return fmt.Errorf("tsarchive: clock count must be >= 0, got %d", cb.Clock.Count)
		}
	}
	return nil
}
