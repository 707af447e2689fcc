package tsarchive

import (
	"fmt"
	"time"
)

// FrameMetadata carries the optional, non-derived bookkeeping fields an
// IngestionFrame may be tagged with. Attribute keys must be unique;
// ordering of the Attributes map carries no meaning.
type FrameMetadata struct {
	ProviderUID      string
	ClientRequestUID string
	FrameLabel       string
	FrameTimestamp   TimeInstant
	Attributes       map[string]string
	SnapshotID       string
	SnapshotInterval TimeInterval
}

// CopyShallow returns a FrameMetadata independent of m's Attributes map.
func (m FrameMetadata) CopyShallow() FrameMetadata {
	out := m
	if m.Attributes != nil {
		out.Attributes = make(map[string]string, len(m.Attributes))
		for k, v := range m.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}

// EqualOptional reports whether the optional properties of m and other are
// equal, ignoring ClientRequestUID (reassembling a binned frame yields a
// frame equal to the original modulo its ClientRequestUID).
func (m FrameMetadata) EqualOptional(other FrameMetadata) bool {
	if m.ProviderUID != other.ProviderUID ||
		m.FrameLabel != other.FrameLabel ||
		!m.FrameTimestamp.Equal(other.FrameTimestamp) ||
		m.SnapshotID != other.SnapshotID ||
		!m.SnapshotInterval.Equal(other.SnapshotInterval) {
		return false
	}
	if len(m.Attributes) != len(other.Attributes) {
		return false
	}
	for k, v := range m.Attributes {
		if ov, ok := other.Attributes[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// IngestionFrame is a column-major tabular ingest unit. Exactly one of
// Clock or TmsList is populated, never both, never neither once rows have
// been attached. Columns have unique names and each column's length must
// equal RowCount.
type IngestionFrame struct {
	clock    *SamplingClock
	tmsList  *TimestampList
	columns  []DataColumn
	metadata FrameMetadata
}

// NewClockedFrame constructs a frame whose rows are indexed by a SamplingClock.
func NewClockedFrame(clock SamplingClock, columns []DataColumn, metadata FrameMetadata) (*IngestionFrame, error) {
	f := &IngestionFrame{clock: &clock, columns: columns, metadata: metadata}
	if err := f.checkConsistency(); err != nil {
		return nil, err
	}
	return f, nil
}

// NewTmsListFrame constructs a frame whose rows are indexed by an explicit TimestampList.
func NewTmsListFrame(tmsList TimestampList, columns []DataColumn, metadata FrameMetadata) (*IngestionFrame, error) {
	f := &IngestionFrame{tmsList: &tmsList, columns: columns, metadata: metadata}
	if err := f.checkConsistency(); err != nil {
		return nil, err
	}
	return f, nil
}

// RowCount returns the frame's row count, derived from whichever of
// Clock/TmsList is populated.
func (f *IngestionFrame) RowCount() int64 {
	if f.clock != nil {
		return f.clock.Count
	}
	if f.tmsList != nil {
		return int64(f.tmsList.Len())
	}
	return 0
}

// ColumnCount returns len(columns).
func (f *IngestionFrame) ColumnCount() int { return len(f.columns) }

// Clock returns the frame's SamplingClock and true, or zero value and false
// if the frame is timestamp-list-indexed.
func (f *IngestionFrame) Clock() (SamplingClock, bool) {
	if f.clock == nil {
		return SamplingClock{}, false
	}
	return *f.clock, true
}

// TimestampList returns the frame's TimestampList and true, or zero value
// and false if the frame is clock-indexed.
func (f *IngestionFrame) TimestampList() (TimestampList, bool) {
	if f.tmsList == nil {
		return TimestampList{}, false
	}
	return *f.tmsList, true
}

// Columns returns the frame's columns in order. The returned slice is owned
// by the frame; callers must not mutate it.
func (f *IngestionFrame) Columns() []DataColumn { return f.columns }

// Metadata returns the frame's optional metadata.
func (f *IngestionFrame) Metadata() FrameMetadata { return f.metadata }

// Column looks up a column by name.
func (f *IngestionFrame) Column(name string) (DataColumn, bool) {
	for _, c := range f.columns {
		if c.Name == name {
			return c, true
		}
	}
	return DataColumn{}, false
}

// AddColumn appends columns to the frame, validating length and name
// uniqueness.
func (f *IngestionFrame) AddColumn(columns ...DataColumn) error {
	next := append(append([]DataColumn{}, f.columns...), columns...)
	if err := checkColumns(next, f.RowCount()); err != nil {
		return err
	}
	f.columns = next
	return nil
}

// RemoveColumnsByIndex removes the columns at the given indexes. Removing
// every column (cntCols >= ColumnCount()) leaves an empty frame and is not
// an error.
func (f *IngestionFrame) RemoveColumnsByIndex(indexes ...int) error {
	drop := make(map[int]bool, len(indexes))
	for _, idx := range indexes {
		if idx < 0 || idx >= len(f.columns) {
			return fmt.Errorf("tsarchive: column index %d out of range [0, %d)", idx, len(f.columns))
		}
		drop[idx] = true
	}
	kept := make([]DataColumn, 0, len(f.columns))
	for i, c := range f.columns {
		if !drop[i] {
			kept = append(kept, c)
		}
	}
	f.columns = kept
	return nil
}

// RemoveColumnsByName removes columns matching the given names. Unknown
// names are ignored. Removing every column leaves an empty frame.
func (f *IngestionFrame) RemoveColumnsByName(names ...string) error {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := make([]DataColumn, 0, len(f.columns))
	for _, c := range f.columns {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	f.columns = kept
	return nil
}

// RemoveRowsAtHead removes the first n rows, adjusting the time
// specification and every column's values in place. For clocked frames
// this preserves (Period, PeriodUnits) and advances (Start, Count); for
// list frames it slices TmsList.
func (f *IngestionFrame) RemoveRowsAtHead(n int64) error {
	if n < 0 || n > f.RowCount() {
		return fmt.Errorf("tsarchive: removeRowsAtHead(%d) out of range for frame of %d rows", n, f.RowCount())
	}
	if n == 0 {
		return nil
	}
	if f.clock != nil {
		f.clock.Start = f.clock.Start.Add(time.Duration(n) * f.clock.periodDuration())
		f.clock.Count -= n
	} else {
		f.tmsList.Timestamps = f.tmsList.Timestamps[n:]
	}
	for i := range f.columns {
		f.columns[i].Values = f.columns[i].Values[n:]
	}
	return nil
}

// RemoveRowsAtTail removes the last n rows, preserving (Start, Period,
// PeriodUnits) for clocked frames and slicing TmsList for list frames.
func (f *IngestionFrame) RemoveRowsAtTail(n int64) error {
	if n < 0 || n > f.RowCount() {
		return fmt.Errorf("tsarchive: removeRowsAtTail(%d) out of range for frame of %d rows", n, f.RowCount())
	}
	if n == 0 {
		return nil
	}
	newLen := f.RowCount() - n
	if f.clock != nil {
		f.clock.Count = newLen
	} else {
		f.tmsList.Timestamps = f.tmsList.Timestamps[:newLen]
	}
	for i := range f.columns {
		f.columns[i].Values = f.columns[i].Values[:newLen]
	}
	return nil
}

// CopyShallow returns an independent IngestionFrame: columns and metadata
// are copied, but individual element values (type any) are not deep copied.
func (f *IngestionFrame) CopyShallow() *IngestionFrame {
	out := &IngestionFrame{metadata: f.metadata.CopyShallow()}
	if f.clock != nil {
		c := *f.clock
		out.clock = &c
	}
	if f.tmsList != nil {
		l := TimestampList{Unordered: f.tmsList.Unordered, Timestamps: append([]TimeInstant{}, f.tmsList.Timestamps...)}
		out.tmsList = &l
	}
	out.columns = make([]DataColumn, len(f.columns))
	for i, c := range f.columns {
		out.columns[i] = c.CopyShallow()
	}
	return out
}

// checkConsistency verifies exactly one time specification, unique column
// names and matching column lengths. ClientRequestUID is not checked.
func (f *IngestionFrame) checkConsistency() error {
	if f.clock == nil && f.tmsList == nil {
		return fmt.Errorf("tsarchive: frame has neither SamplingClock nor TimestampList")
	}
	if f.clock != nil && f.tmsList != nil {
		return fmt.Errorf("tsarchive: frame has both SamplingClock and TimestampList")
	}
	return checkColumns(f.columns, f.RowCount())
}

func checkColumns(columns []DataColumn, rowCount int64) error {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if seen[c.Name] {
			return fmt.Errorf("tsarchive: duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
		if int64(len(c.Values)) != rowCount {
			return fmt.Errorf("tsarchive: column %q has %d values, want %d (row count)", c.Name, len(c.Values), rowCount)
		}
	}
	return nil
}

// CheckConsistency re-validates the frame's invariants; exported for callers
// (e.g. the binning processor) that mutate columns directly between calls.
func (f *IngestionFrame) CheckConsistency() error {
	return f.checkConsistency()
}
