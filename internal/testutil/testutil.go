// Package testutil provides synthetic fixture builders shared across
// subsystem tests: sampling clocks, columns, frames, requests and raw
// blocks built from small integer inputs instead of a live archive.
package testutil

import (
	"fmt"
	"testing"

	"github.com/jfoltran/tsarchive"
)

// PVName returns a deterministic process-variable name for index i, so
// table-driven tests can generate N distinct columns without hand-naming
// each one.
func PVName(i int) string {
	return fmt.Sprintf("pv%d", i)
}

// MustClock builds a SamplingClock starting at t=0 with a 1-second period
// and count samples, failing the test on error.
func MustClock(t *testing.T, count int64) tsarchive.SamplingClock {
	t.Helper()
	clock, err := tsarchive.NewSamplingClock(tsarchive.NewTimeInstant(0, 0), 1, count, tsarchive.PeriodSeconds)
	if err != nil {
		t.Fatalf("NewSamplingClock: %v", err)
	}
	return clock
}

// MustInt64Column builds a DataColumn named name holding count int64
// values, each equal to its row index.
func MustInt64Column(t *testing.T, name string, count int) tsarchive.DataColumn {
	t.Helper()
	values := make([]any, count)
	for i := range values {
		values[i] = int64(i)
	}
	col, err := tsarchive.NewDataColumn(name, tsarchive.ElementInt64, values)
	if err != nil {
		t.Fatalf("NewDataColumn(%s): %v", name, err)
	}
	return col
}

// MustClockedFrame builds a clock-indexed IngestionFrame with the given
// row count and one int64 column per name in pvNames.
func MustClockedFrame(t *testing.T, pvNames []string, rows int64, meta tsarchive.FrameMetadata) *tsarchive.IngestionFrame {
	t.Helper()
	clock := MustClock(t, rows)
	columns := make([]tsarchive.DataColumn, len(pvNames))
	for i, name := range pvNames {
		columns[i] = MustInt64Column(t, name, int(rows))
	}
	frame, err := tsarchive.NewClockedFrame(clock, columns, meta)
	if err != nil {
		t.Fatalf("NewClockedFrame: %v", err)
	}
	return frame
}

// MustTimeRange builds the closed TimeInterval [0, seconds] in seconds.
func MustTimeRange(t *testing.T, seconds int64) tsarchive.TimeInterval {
	t.Helper()
	tr, err := tsarchive.NewTimeInterval(tsarchive.NewTimeInstant(0, 0), tsarchive.NewTimeInstant(seconds, 0))
	if err != nil {
		t.Fatalf("NewTimeInterval: %v", err)
	}
	return tr
}

// MustDataRequest builds a DataRequest over pvNames spanning [0, seconds]
// seconds with the given stream type.
func MustDataRequest(t *testing.T, requestID string, pvNames []string, seconds int64, streamType tsarchive.StreamType) tsarchive.DataRequest {
	t.Helper()
	req, err := tsarchive.NewDataRequest(requestID, pvNames, MustTimeRange(t, seconds), streamType)
	if err != nil {
		t.Fatalf("NewDataRequest: %v", err)
	}
	return req
}

// MustRawClockedBlock builds a RawClockedBlock covering one or more PVs,
// reusing MustClock/MustInt64Column so correlate/assemble tests can
// construct inputs without threading through a real stream.
func MustRawClockedBlock(t *testing.T, pvNames []string, rows int64) tsarchive.RawClockedBlock {
	t.Helper()
	columns := make([]tsarchive.DataColumn, len(pvNames))
	for i, name := range pvNames {
		columns[i] = MustInt64Column(t, name, int(rows))
	}
	return tsarchive.RawClockedBlock{Clock: MustClock(t, rows), Columns: columns}
}
