package tsarchive

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownColumn and ErrRowOutOfRange are sentinels a caller can match via
// errors.Is; subsystem packages (tablebuild) wrap them into their own typed
// error kinds at the API boundary rather than rewrapping ResultTable itself.
var (
	ErrUnknownColumn     = errors.New("tsarchive: unknown column")
	ErrRowOutOfRange     = errors.New("tsarchive: row out of range")
	ErrStaticTableTooBig = errors.New("tsarchive: static table too large")
)

// ResultTable is a queryable view over a SampledAggregate.
// StaticTable pre-coerces every column into one flat vector up front;
// DynamicTable defers materialization and resolves rows via binary search
// over a block index, trading row-lookup latency (O(log B + 1)) for a
// much smaller up-front footprint.
type ResultTable interface {
	// ColumnNames returns the table's column names in stable order.
	ColumnNames() []string
	// RowCount returns the number of rows in the table.
	RowCount() int64
	// At returns the value of column at row, or an error if either is out
	// of range (ErrUnknownColumn / ErrRowOutOfRange).
	At(column string, row int64) (any, error)
}

// StaticTable holds every column fully materialized as a flat vector.
type StaticTable struct {
	names   []string
	columns map[string]DataColumn
	rows    int64
}

// maxStaticTableCells bounds a StaticTable's total materialized cell count
// (rows * columns, summed across columns). Exceeding it returns
// StaticSizeExceeded rather than allocating a vector the caller likely
// didn't mean to request.
const maxStaticTableCells = 50_000_000

// NewStaticTable flattens an aggregate into a StaticTable, concatenating
// each block's contribution to a column in block-start-time order.
func NewStaticTable(agg SampledAggregate) (*StaticTable, error) {
	names := agg.PVNames()
	values := make(map[string][]any, len(names))
	elementTypes := make(map[string]ElementType, len(names))
	var totalCells int64
	var rows int64

	for _, block := range agg.Blocks {
		blockRows := block.RowCount()
		rows += blockRows
		present := make(map[string]bool, len(block.ColumnsOf()))
		for _, c := range block.ColumnsOf() {
			present[c.Name] = true
			elementTypes[c.Name] = c.ElementType
			values[c.Name] = append(values[c.Name], c.Values...)
			totalCells += int64(c.Len())
			if totalCells > maxStaticTableCells {
				return nil, fmt.Errorf("%w: exceeds %d cell cap", ErrStaticTableTooBig, maxStaticTableCells)
			}
		}
		for _, name := range names {
			if present[name] {
				continue
			}
			// This block doesn't carry name at all (distinct PV sets across
			// blocks); pad with absent markers so every column stays aligned
			// to the table's global row count.
			fill := make([]any, blockRows)
			values[name] = append(values[name], fill...)
		}
	}

	columns := make(map[string]DataColumn, len(names))
	for _, name := range names {
		columns[name] = DataColumn{Name: name, ElementType: elementTypes[name], Values: values[name]}
	}
	return &StaticTable{names: names, columns: columns, rows: rows}, nil
}

// ColumnNames implements ResultTable.
func (t *StaticTable) ColumnNames() []string { return t.names }

// RowCount implements ResultTable.
func (t *StaticTable) RowCount() int64 { return t.rows }

// At implements ResultTable.
func (t *StaticTable) At(column string, row int64) (any, error) {
	c, ok := t.columns[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	if row < 0 || row >= int64(c.Len()) {
		return nil, fmt.Errorf("%w: row %d not in [0, %d) for column %q", ErrRowOutOfRange, row, c.Len(), column)
	}
	return c.Values[row], nil
}

// dynamicBlockEntry indexes one SampledBlock's contribution to a
// DynamicTable: the row offset at which the block's rows begin in the
// table's global logical row space.
type dynamicBlockEntry struct {
	rowOffset int64
	block     SampledBlock
}

// DynamicTable defers materialization: it holds the underlying blocks and
// resolves individual cell lookups on demand via binary search over a
// block-start-time index, rather than flattening every column up front.
type DynamicTable struct {
	names   []string
	entries []dynamicBlockEntry // ordered by rowOffset, one per block
	rows    int64
}

// NewDynamicTable builds a DynamicTable view over an aggregate without
// flattening any column. The table's row index is global across blocks:
// block i owns rows [offset_i, offset_i + block_i.RowCount()).
func NewDynamicTable(agg SampledAggregate) (*DynamicTable, error) {
	names := agg.PVNames()
	entries := make([]dynamicBlockEntry, 0, len(agg.Blocks))
	var offset int64
	for _, block := range agg.Blocks {
		entries = append(entries, dynamicBlockEntry{rowOffset: offset, block: block})
		offset += block.RowCount()
	}
	return &DynamicTable{names: names, entries: entries, rows: offset}, nil
}

// ColumnNames implements ResultTable.
func (t *DynamicTable) ColumnNames() []string { return t.names }

// RowCount implements ResultTable.
func (t *DynamicTable) RowCount() int64 { return t.rows }

// At implements ResultTable via binary search over the block index,
// resolving the row within whichever block covers it, then the column
// within that block. A column absent from the covering block (distinct
// PV sets across blocks) resolves to nil rather than an error, mirroring
// StaticTable's padding.
func (t *DynamicTable) At(column string, row int64) (any, error) {
	if !contains(t.names, column) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	if row < 0 || row >= t.rows {
		return nil, fmt.Errorf("%w: row %d not in [0, %d)", ErrRowOutOfRange, row, t.rows)
	}
	idx := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].rowOffset > row
	}) - 1
	if idx < 0 {
		idx = 0
	}
	entry := t.entries[idx]
	localRow := row - entry.rowOffset
	for _, c := range entry.block.ColumnsOf() {
		if c.Name == column {
			if localRow < 0 || localRow >= int64(c.Len()) {
				return nil, fmt.Errorf("%w: row %d within block for column %q", ErrRowOutOfRange, row, column)
			}
			return c.Values[localRow], nil
		}
	}
	return nil, nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
