package assemble

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/config"
	"github.com/jfoltran/tsarchive/internal/tserr"
)

func clockBlock(t *testing.T, startSec int64, period int64, count int64, pv string, values []any) tsarchive.RawClockedBlock {
	t.Helper()
	clock, err := tsarchive.NewSamplingClock(tsarchive.NewTimeInstant(startSec, 0), period, count, tsarchive.PeriodSeconds)
	if err != nil {
		t.Fatalf("NewSamplingClock: %v", err)
	}
	col, err := tsarchive.NewDataColumn(pv, tsarchive.ElementString, values)
	if err != nil {
		t.Fatalf("NewDataColumn: %v", err)
	}
	return tsarchive.RawClockedBlock{Clock: clock, Columns: []tsarchive.DataColumn{col}}
}

func tmsListBlock(t *testing.T, offsetsMs []int64, pv string, values []any) tsarchive.RawTmsListBlock {
	t.Helper()
	timestamps := make([]tsarchive.TimeInstant, len(offsetsMs))
	for i, ms := range offsetsMs {
		timestamps[i] = tsarchive.NewTimeInstant(ms/1000, int32(ms%1000)*1_000_000)
	}
	list, err := tsarchive.NewTimestampList(timestamps, false)
	if err != nil {
		t.Fatalf("NewTimestampList: %v", err)
	}
	col, err := tsarchive.NewDataColumn(pv, tsarchive.ElementString, values)
	if err != nil {
		t.Fatalf("NewDataColumn: %v", err)
	}
	return tsarchive.RawTmsListBlock{TmsList: list, Columns: []tsarchive.DataColumn{col}}
}

func fullRange(t *testing.T) tsarchive.TimeInterval {
	t.Helper()
	iv, err := tsarchive.NewTimeInterval(tsarchive.NewTimeInstant(0, 0), tsarchive.NewTimeInstant(100, 0))
	if err != nil {
		t.Fatalf("NewTimeInterval: %v", err)
	}
	return iv
}

// Scenario 3: super-domain merge of a clock block on {A} and a tmsList
// block on {B} with non-identical but overlapping domains.
func TestAssembleSuperDomainMerge(t *testing.T) {
	block1 := clockBlock(t, 0, 1, 3, "A", []any{"a0", "a1", "a2"})
	block2 := tmsListBlock(t, []int64{500, 1500}, "B", []any{"b0", "b1"})

	cfg := config.AggregateConfig{TimeDomainCollisionsEnabled: true}
	a := New(cfg, zerolog.Nop())

	agg, err := a.Assemble(context.Background(), []tsarchive.RawCorrelatedBlock{block1, block2}, fullRange(t))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(agg.Blocks) != 1 {
		t.Fatalf("len(agg.Blocks) = %d, want 1 (A and B collide into one SuperDomain block)", len(agg.Blocks))
	}
	sd, ok := agg.Blocks[0].(tsarchive.SuperDomainBlock)
	if !ok {
		t.Fatalf("block is %T, want SuperDomainBlock", agg.Blocks[0])
	}
	if sd.TmsList.Len() != 5 {
		t.Fatalf("union length = %d, want 5", sd.TmsList.Len())
	}

	var colA tsarchive.DataColumn
	for _, c := range sd.Columns {
		if c.Name == "A" {
			colA = c
		}
	}
	wantA := []any{"a0", nil, "a1", nil, "a2"}
	for i, want := range wantA {
		if colA.Values[i] != want {
			t.Errorf("A[%d] = %v, want %v", i, colA.Values[i], want)
		}
	}
	wantBPresence := []bool{false, true, false, true, false}
	for i, want := range wantBPresence {
		present, err := sd.PresenceOf("B", i)
		if err != nil {
			t.Fatalf("PresenceOf: %v", err)
		}
		if present != want {
			t.Errorf("B presence[%d] = %v, want %v", i, present, want)
		}
	}
}

func TestAssembleNonOverlappingBlocksStayIndependent(t *testing.T) {
	block1 := clockBlock(t, 0, 1, 2, "A", []any{"a0", "a1"})
	block2 := clockBlock(t, 10, 1, 2, "A", []any{"a2", "a3"})

	cfg := config.AggregateConfig{TimeDomainCollisionsEnabled: true}
	a := New(cfg, zerolog.Nop())

	agg, err := a.Assemble(context.Background(), []tsarchive.RawCorrelatedBlock{block1, block2}, fullRange(t))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(agg.Blocks) != 2 {
		t.Fatalf("len(agg.Blocks) = %d, want 2 (both time windows preserved)", len(agg.Blocks))
	}
	first, ok := agg.Blocks[0].(tsarchive.ClockedSampledBlock)
	if !ok {
		t.Fatalf("agg.Blocks[0] is %T, want ClockedSampledBlock", agg.Blocks[0])
	}
	if first.Clock.Start.Seconds != 0 {
		t.Errorf("agg.Blocks[0] starts at %v, want t=0", first.Clock.Start)
	}
	second := agg.Blocks[1].(tsarchive.ClockedSampledBlock)
	if second.Clock.Start.Seconds != 10 {
		t.Errorf("agg.Blocks[1] starts at %v, want t=10", second.Clock.Start)
	}
}

func TestAssembleOverlapWithCollisionsDisabledIsFatal(t *testing.T) {
	block1 := clockBlock(t, 0, 1, 3, "A", []any{"a0", "a1", "a2"})
	block2 := tmsListBlock(t, []int64{500, 1500}, "B", []any{"b0", "b1"})

	cfg := config.AggregateConfig{TimeDomainCollisionsEnabled: false}
	a := New(cfg, zerolog.Nop())

	_, err := a.Assemble(context.Background(), []tsarchive.RawCorrelatedBlock{block1, block2}, fullRange(t))
	if !tserr.Is(err, tserr.OverlappingDomain) {
		t.Fatalf("Assemble error = %v, want OverlappingDomain", err)
	}
}

func TestAssembleTypeConflictAcrossBlocks(t *testing.T) {
	block1 := clockBlock(t, 0, 1, 2, "A", []any{"a0", "a1"})
	clock2, _ := tsarchive.NewSamplingClock(tsarchive.NewTimeInstant(100, 0), 1, 2, tsarchive.PeriodSeconds)
	col2, _ := tsarchive.NewDataColumn("A", tsarchive.ElementInt64, []any{int64(1), int64(2)})
	block2 := tsarchive.RawClockedBlock{Clock: clock2, Columns: []tsarchive.DataColumn{col2}}

	cfg := config.AggregateConfig{}
	a := New(cfg, zerolog.Nop())

	_, err := a.Assemble(context.Background(), []tsarchive.RawCorrelatedBlock{block1, block2}, fullRange(t))
	if !tserr.Is(err, tserr.TypeConflict) {
		t.Fatalf("Assemble error = %v, want TypeConflict", err)
	}
}

func TestAssembleEmptyBlocksIsEmptyAggregate(t *testing.T) {
	cfg := config.AggregateConfig{}
	a := New(cfg, zerolog.Nop())

	_, err := a.Assemble(context.Background(), nil, fullRange(t))
	if !tserr.Is(err, tserr.EmptyAggregate) {
		t.Fatalf("Assemble error = %v, want EmptyAggregate", err)
	}
}

func TestAssembleConcurrentCoercion(t *testing.T) {
	blocks := make([]tsarchive.RawCorrelatedBlock, 0, 10)
	for i := int64(0); i < 10; i++ {
		blocks = append(blocks, clockBlock(t, i*10, 1, 2, "A", []any{"x", "y"}))
	}
	cfg := config.AggregateConfig{ConcurrencyEnabled: true, PivotSize: 2, MaxThreads: 4}
	a := New(cfg, zerolog.Nop())

	agg, err := a.Assemble(context.Background(), blocks, fullRange(t))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(agg.Blocks) != 10 {
		t.Fatalf("len(agg.Blocks) = %d, want 10", len(agg.Blocks))
	}
	if names := agg.PVNames(); len(names) != 1 || names[0] != "A" {
		t.Errorf("PVNames() = %v, want [A]", names)
	}
}
