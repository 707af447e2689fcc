package correlate

import (
	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/tserr"
)

// blockBuilder accumulates the columns of every frame sharing one TimeKey.
type blockBuilder struct {
	key     tsarchive.TimeKey
	clock   *tsarchive.SamplingClock
	tmsList *tsarchive.TimestampList

	order   []string
	columns map[string]tsarchive.DataColumn
}

func newBlockBuilder(frame *tsarchive.IngestionFrame) (*blockBuilder, error) {
	b := &blockBuilder{columns: make(map[string]tsarchive.DataColumn)}
	if clock, ok := frame.Clock(); ok {
		c := clock
		b.clock = &c
		b.key = tsarchive.ClockTimeKey(clock)
	} else if list, ok := frame.TimestampList(); ok {
		l := list
		b.tmsList = &l
		b.key = tsarchive.TmsListTimeKey(list)
	} else {
		return nil, tserr.New("correlate", tserr.CorruptMessage, "frame has no time specification")
	}
	if err := b.addColumns(frame); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *blockBuilder) rowCount() int64 {
	if b.clock != nil {
		return b.clock.Count
	}
	return int64(b.tmsList.Len())
}

func (b *blockBuilder) addColumns(frame *tsarchive.IngestionFrame) error {
	for _, col := range frame.Columns() {
		if _, exists := b.columns[col.Name]; exists {
			return tserr.New("correlate", tserr.CorruptMessage, "duplicate column %q within one time-key group", col.Name)
		}
		if int64(col.Len()) != b.rowCount() {
			return tserr.New("correlate", tserr.CorruptMessage, "column %q has %d rows, time key declares %d", col.Name, col.Len(), b.rowCount())
		}
		b.columns[col.Name] = col
		b.order = append(b.order, col.Name)
	}
	return nil
}

// merge adds frame's columns to this builder, frame must share b's TimeKey.
func (b *blockBuilder) merge(frame *tsarchive.IngestionFrame) error {
	other, err := newBlockBuilder(frame)
	if err != nil {
		return err
	}
	if !b.key.Equal(other.key) {
		return tserr.New("correlate", tserr.CorruptMessage, "frame time key does not match group")
	}
	return b.mergeBuilder(other)
}

func (b *blockBuilder) mergeBuilder(other *blockBuilder) error {
	for _, name := range other.order {
		if _, exists := b.columns[name]; exists {
			return tserr.New("correlate", tserr.CorruptMessage, "duplicate column %q within one time-key group", name)
		}
		b.columns[name] = other.columns[name]
		b.order = append(b.order, name)
	}
	return nil
}

func (b *blockBuilder) build() (tsarchive.RawCorrelatedBlock, error) {
	columns := make([]tsarchive.DataColumn, len(b.order))
	for i, name := range b.order {
		columns[i] = b.columns[name]
	}
	var block tsarchive.RawCorrelatedBlock
	if b.clock != nil {
		block = tsarchive.RawClockedBlock{Clock: *b.clock, Columns: columns}
	} else {
		block = tsarchive.RawTmsListBlock{TmsList: *b.tmsList, Columns: columns}
	}
	if err := tsarchive.ValidateRawBlock(block); err != nil {
		return nil, tserr.Wrap("correlate", tserr.CorruptMessage, err)
	}
	return block, nil
}

// groupSet holds every live blockBuilder for one correlation phase, keyed
// by TimeKey, preserving first-seen order for deterministic output before
// the final start-time sort.
type groupSet struct {
	order    []tsarchive.TimeKey
	builders map[tsarchive.TimeKey]*blockBuilder
}

func newGroupSet() *groupSet {
	return &groupSet{builders: make(map[tsarchive.TimeKey]*blockBuilder)}
}

func (g *groupSet) size() int { return len(g.builders) }

func (g *groupSet) merge(frame *tsarchive.IngestionFrame) error {
	key, err := keyOf(frame)
	if err != nil {
		return err
	}
	if existing, ok := g.builders[key]; ok {
		return existing.merge(frame)
	}
	b, err := newBlockBuilder(frame)
	if err != nil {
		return err
	}
	g.builders[key] = b
	g.order = append(g.order, key)
	return nil
}

// absorb folds another groupSet's builders into g, merging any shared key.
func (g *groupSet) absorb(other *groupSet) error {
	for _, key := range other.order {
		b := other.builders[key]
		if existing, ok := g.builders[key]; ok {
			if err := existing.mergeBuilder(b); err != nil {
				return err
			}
			continue
		}
		g.builders[key] = b
		g.order = append(g.order, key)
	}
	return nil
}

func (g *groupSet) build() ([]tsarchive.RawCorrelatedBlock, error) {
	out := make([]tsarchive.RawCorrelatedBlock, 0, len(g.order))
	for _, key := range g.order {
		block, err := g.builders[key].build()
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}
	return out, nil
}

func keyOf(frame *tsarchive.IngestionFrame) (tsarchive.TimeKey, error) {
	if clock, ok := frame.Clock(); ok {
		return tsarchive.ClockTimeKey(clock), nil
	}
	if list, ok := frame.TimestampList(); ok {
		return tsarchive.TmsListTimeKey(list), nil
	}
	return tsarchive.TimeKey{}, tserr.New("correlate", tserr.CorruptMessage, "frame has no time specification")
}
