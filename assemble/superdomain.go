package assemble

import (
	"sort"
	"sync"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/tserr"
)

// typeLedger tracks the element type committed to each PV name across
// every block coerced so far, rejecting a mismatch as TypeConflict.
type typeLedger struct {
	mu    sync.Mutex
	types map[string]tsarchive.ElementType
}

func newTypeLedger() *typeLedger {
	return &typeLedger{types: make(map[string]tsarchive.ElementType)}
}

func (l *typeLedger) check(name string, t tsarchive.ElementType) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.types[name]; ok {
		if existing != t {
			return tserr.New("assemble", tserr.TypeConflict,
				"PV %q: element type %s conflicts with previously seen %s", name, t, existing)
		}
		return nil
	}
	l.types[name] = t
	return nil
}

// blockInterval returns the closed time interval a typed block covers.
func blockInterval(b tsarchive.SampledBlock) tsarchive.TimeInterval {
	switch v := b.(type) {
	case tsarchive.ClockedSampledBlock:
		return v.Clock.Interval()
	case tsarchive.TmsListSampledBlock:
		return tmsListInterval(v.TmsList)
	case tsarchive.SuperDomainBlock:
		return tmsListInterval(v.TmsList)
	default:
		return tsarchive.TimeInterval{}
	}
}

func tmsListInterval(l tsarchive.TimestampList) tsarchive.TimeInterval {
	if l.Len() == 0 {
		return tsarchive.TimeInterval{}
	}
	iv, _ := tsarchive.NewTimeInterval(l.Timestamps[0], l.Timestamps[l.Len()-1])
	return iv
}

func timestampsOf(b tsarchive.SampledBlock) []tsarchive.TimeInstant {
	switch v := b.(type) {
	case tsarchive.ClockedSampledBlock:
		return v.Clock.Instants()
	case tsarchive.TmsListSampledBlock:
		return v.TmsList.Timestamps
	case tsarchive.SuperDomainBlock:
		return v.TmsList.Timestamps
	default:
		return nil
	}
}

// groupByCollision partitions blocks (sorted by start time) into maximal
// runs of pairwise-overlapping time domains, following the usual
// sorted-interval-merge sweep: a run extends as long as the next block's
// start falls within the run's accumulated coverage.
func groupByCollision(blocks []tsarchive.SampledBlock) [][]tsarchive.SampledBlock {
	if len(blocks) == 0 {
		return nil
	}
	var groups [][]tsarchive.SampledBlock
	current := []tsarchive.SampledBlock{blocks[0]}
	currentEnd := blockInterval(blocks[0]).End

	for _, b := range blocks[1:] {
		iv := blockInterval(b)
		if !iv.Begin.After(currentEnd) {
			current = append(current, b)
			if iv.End.After(currentEnd) {
				currentEnd = iv.End
			}
			continue
		}
		groups = append(groups, current)
		current = []tsarchive.SampledBlock{b}
		currentEnd = iv.End
	}
	groups = append(groups, current)
	return groups
}

// mergeSuperDomain builds the sorted union of every member's timestamps,
// then for each column present on any member,
// fill a value per union timestamp — the member contributing it, with
// later members in the group (by block start time, ties broken by
// position in the sorted input) winning when more than one member holds
// a sample at the same instant. Positions absent from a member stay nil
// and get a false presence bit.
func mergeSuperDomain(group []tsarchive.SampledBlock) (tsarchive.SampledBlock, error) {
	unionSet := make(map[tsarchive.TimeInstant]struct{})
	for _, b := range group {
		for _, ts := range timestampsOf(b) {
			unionSet[ts] = struct{}{}
		}
	}
	union := make([]tsarchive.TimeInstant, 0, len(unionSet))
	for ts := range unionSet {
		union = append(union, ts)
	}
	sort.Slice(union, func(i, j int) bool { return union[i].Before(union[j]) })

	rowOf := make(map[tsarchive.TimeInstant]int, len(union))
	for i, ts := range union {
		rowOf[ts] = i
	}

	tmsList, err := tsarchive.NewTimestampList(union, false)
	if err != nil {
		return nil, tserr.Wrap("assemble", tserr.CorruptMessage, err)
	}

	type columnState struct {
		elementType tsarchive.ElementType
		values      []any
		presence    []bool
	}
	states := make(map[string]*columnState)
	var order []string

	// Iterate members in their given (start-time-sorted) order so a later
	// member in the group naturally overwrites an earlier member's value
	// at a shared timestamp, matching "later-arriving member wins".
	for _, b := range group {
		memberTimestamps := timestampsOf(b)
		for _, col := range b.ColumnsOf() {
			state, ok := states[col.Name]
			if !ok {
				state = &columnState{
					elementType: col.ElementType,
					values:      make([]any, len(union)),
					presence:    make([]bool, len(union)),
				}
				states[col.Name] = state
				order = append(order, col.Name)
			}
			for i, ts := range memberTimestamps {
				row := rowOf[ts]
				state.values[row] = col.Values[i]
				state.presence[row] = true
			}
		}
	}

	sort.Strings(order)
	columns := make([]tsarchive.DataColumn, 0, len(order))
	presence := make(map[string][]bool, len(order))
	for _, name := range order {
		state := states[name]
		col, err := tsarchive.NewDataColumn(name, state.elementType, state.values)
		if err != nil {
			return nil, tserr.Wrap("assemble", tserr.CorruptMessage, err)
		}
		columns = append(columns, col)
		presence[name] = state.presence
	}

	return tsarchive.SuperDomainBlock{TmsList: tmsList, Columns: columns, Presence: presence}, nil
}

// rawBlockOf converts a merged SuperDomainBlock back into a RawTmsListBlock
// for re-validation via tsarchive.ValidateRawBlock, the advanced-error-
// checking re-check step applies uniformly to both raw and merged shapes.
func rawBlockOf(b tsarchive.SampledBlock) tsarchive.RawCorrelatedBlock {
	switch v := b.(type) {
	case tsarchive.SuperDomainBlock:
		return tsarchive.RawTmsListBlock{TmsList: v.TmsList, Columns: v.Columns}
	case tsarchive.ClockedSampledBlock:
		return tsarchive.RawClockedBlock{Clock: v.Clock, Columns: v.Columns}
	case tsarchive.TmsListSampledBlock:
		return tsarchive.RawTmsListBlock{TmsList: v.TmsList, Columns: v.Columns}
	default:
		return tsarchive.RawTmsListBlock{}
	}
}
