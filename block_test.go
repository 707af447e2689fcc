package tsarchive

import "testing"

func TestClockTimeKeyEqual(t *testing.T) {
	c1 := mustClock(t, NewTimeInstant(0, 0), 1, 5, PeriodSeconds)
	c2 := mustClock(t, NewTimeInstant(0, 0), 1, 5, PeriodSeconds)
	c3 := mustClock(t, NewTimeInstant(0, 0), 1, 6, PeriodSeconds)

	k1, k2, k3 := ClockTimeKey(c1), ClockTimeKey(c2), ClockTimeKey(c3)
	if !k1.Equal(k2) {
		t.Errorf("expected identical clocks to produce equal keys")
	}
	if k1.Equal(k3) {
		t.Errorf("expected differing count to produce unequal keys")
	}
}

func TestTmsListTimeKeyEqual(t *testing.T) {
	l1, _ := NewTimestampList([]TimeInstant{NewTimeInstant(0, 0), NewTimeInstant(1, 0)}, false)
	l2, _ := NewTimestampList([]TimeInstant{NewTimeInstant(0, 0), NewTimeInstant(1, 0)}, false)
	l3, _ := NewTimestampList([]TimeInstant{NewTimeInstant(0, 0), NewTimeInstant(2, 0)}, false)

	k1, k2, k3 := TmsListTimeKey(l1), TmsListTimeKey(l2), TmsListTimeKey(l3)
	if !k1.Equal(k2) {
		t.Errorf("expected identical lists to produce equal keys")
	}
	if k1.Equal(k3) {
		t.Errorf("expected differing lists to produce unequal keys")
	}
}

func TestTimeKeyClockedAndListNeverEqual(t *testing.T) {
	c := mustClock(t, NewTimeInstant(0, 0), 1, 2, PeriodSeconds)
	l, _ := NewTimestampList([]TimeInstant{NewTimeInstant(0, 0), NewTimeInstant(1, 0)}, false)
	if ClockTimeKey(c).Equal(TmsListTimeKey(l)) {
		t.Errorf("expected clock key and list key to never compare equal")
	}
}

func TestValidateRawBlockDetectsRowMismatch(t *testing.T) {
	clock := mustClock(t, NewTimeInstant(0, 0), 1, 3, PeriodSeconds)
	col, _ := NewDataColumn("pv1", ElementInt64, []any{int64(1), int64(2)})
	block := RawClockedBlock{Clock: clock, Columns: []DataColumn{col}}
	if err := ValidateRawBlock(block); err == nil {
		t.Errorf("expected error for column/clock row count mismatch")
	}
}

func TestValidateRawBlockAcceptsConsistentBlock(t *testing.T) {
	clock := mustClock(t, NewTimeInstant(0, 0), 1, 2, PeriodSeconds)
	col, _ := NewDataColumn("pv1", ElementInt64, []any{int64(1), int64(2)})
	block := RawClockedBlock{Clock: clock, Columns: []DataColumn{col}}
	if err := ValidateRawBlock(block); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestRawTmsListBlockStartTime(t *testing.T) {
	tms, _ := NewTimestampList([]TimeInstant{NewTimeInstant(5, 0), NewTimeInstant(6, 0)}, false)
	col, _ := NewDataColumn("pv1", ElementInt64, []any{int64(1), int64(2)})
	block := RawTmsListBlock{TmsList: tms, Columns: []DataColumn{col}}
	want := NewTimeInstant(5, 0)
	if got := block.StartTime(); !got.Equal(want) {
		t.Errorf("StartTime() = %v, want %v", got, want)
	}
}
