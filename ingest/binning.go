// Package ingest implements IngestionFrame binning and the bidirectional
// Streaming Ingest Processor.
package ingest

import (
	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/idgen"
	"github.com/jfoltran/tsarchive/internal/tserr"
)

// timeInstantBytes mirrors tablebuild's estimate: the on-wire cost of one
// TimeInstant in the shared timestamp vector.
const timeInstantBytes = 12

func elementSize(t tsarchive.ElementType) int64 {
	switch t {
	case tsarchive.ElementBool:
		return 1
	case tsarchive.ElementInt32, tsarchive.ElementFloat32:
		return 4
	case tsarchive.ElementInt64, tsarchive.ElementFloat64:
		return 8
	case tsarchive.ElementString, tsarchive.ElementBytes:
		return 32
	case tsarchive.ElementStructured, tsarchive.ElementArray:
		return 64
	default:
		return 8
	}
}

func perRowBytes(f *tsarchive.IngestionFrame) int64 {
	total := int64(timeInstantBytes)
	for _, c := range f.Columns() {
		total += elementSize(c.ElementType)
	}
	return total
}

// EstimateBytes approximates the serialized size of f, the same fixed
// per-ElementType model tablebuild uses for its own size decision.
func EstimateBytes(f *tsarchive.IngestionFrame) int64 {
	return f.RowCount() * perRowBytes(f)
}

// Bin decomposes frame into one or more composite frames, each estimated
// under maxBytes, by repeatedly removing either head rows or a column
// subset. A frame already under cap is returned unchanged as
// a single-element slice; otherwise every returned composite carries a
// fresh ClientRequestUID derived from the parent's, per the binning
// contract, while the parent's other metadata is preserved.
func Bin(frame *tsarchive.IngestionFrame, maxBytes int64) ([]*tsarchive.IngestionFrame, error) {
	if EstimateBytes(frame) <= maxBytes {
		return []*tsarchive.IngestionFrame{frame}, nil
	}

	working := frame.CopyShallow()
	parentUID := frame.Metadata().ClientRequestUID

	var out []*tsarchive.IngestionFrame
	for EstimateBytes(working) > maxBytes {
		// Row-binning reduces row count; it only helps while more than one
		// row remains and a single row's worth of columns already fits.
		// Otherwise fall back to column-binning, and only once neither
		// axis can shrink further is the frame unbinnable under cap.
		if working.RowCount() > 1 && perRowBytes(working) <= maxBytes {
			n := rowsUnderCap(working, maxBytes)
			chunk, err := headChunk(working, n, parentUID)
			if err != nil {
				return nil, tserr.Wrap("ingest", tserr.CorruptMessage, err)
			}
			out = append(out, chunk)
			if err := working.RemoveRowsAtHead(n); err != nil {
				return nil, tserr.Wrap("ingest", tserr.CorruptMessage, err)
			}
			continue
		}
		if working.ColumnCount() > 1 {
			names := columnsUnderCap(working, maxBytes)
			chunk, err := columnChunk(working, names, parentUID)
			if err != nil {
				return nil, tserr.Wrap("ingest", tserr.CorruptMessage, err)
			}
			if len(names) == 1 && EstimateBytes(chunk) > maxBytes {
				return nil, tserr.New("ingest", tserr.CorruptMessage,
					"frame cannot be binned under %d-byte cap: column %q alone exceeds it", maxBytes, names[0])
			}
			out = append(out, chunk)
			if err := working.RemoveColumnsByName(names...); err != nil {
				return nil, tserr.Wrap("ingest", tserr.CorruptMessage, err)
			}
			continue
		}
		return nil, tserr.New("ingest", tserr.CorruptMessage,
			"frame cannot be binned under %d-byte cap: a single row of a single column already exceeds it", maxBytes)
	}
	final, err := rebind(working, parentUID)
	if err != nil {
		return nil, tserr.Wrap("ingest", tserr.CorruptMessage, err)
	}
	out = append(out, final)
	return out, nil
}

// rowsUnderCap returns how many of f's leading rows fit within maxBytes,
// at least 1 and strictly less than f.RowCount() (progress guarantee:
// reaching this branch means f's full row count already exceeds cap).
func rowsUnderCap(f *tsarchive.IngestionFrame, maxBytes int64) int64 {
	perRow := perRowBytes(f)
	n := maxBytes / perRow
	if n < 1 {
		n = 1
	}
	if n >= f.RowCount() {
		n = f.RowCount() - 1
	}
	return n
}

// columnsUnderCap returns the names of f's leading columns whose combined
// estimated size (plus one timestamp) fits within maxBytes, always at
// least one and, whenever f has more than one column, never all of them
// (progress guarantee: reaching this branch means every column together
// already exceeds cap).
func columnsUnderCap(f *tsarchive.IngestionFrame, maxBytes int64) []string {
	cols := f.Columns()
	budget := maxBytes - timeInstantBytes
	var names []string
	var used int64
	for _, c := range cols {
		sz := elementSize(c.ElementType)
		if len(names) > 0 && used+sz > budget {
			break
		}
		names = append(names, c.Name)
		used += sz
	}
	if len(names) == 0 {
		names = append(names, cols[0].Name)
	}
	if len(names) >= len(cols) && len(cols) > 1 {
		names = names[:len(names)-1]
	}
	return names
}

// headChunk carves off f's leading n rows as an independent composite
// frame with a fresh ClientRequestUID.
func headChunk(f *tsarchive.IngestionFrame, n int64, parentUID string) (*tsarchive.IngestionFrame, error) {
	chunk := f.CopyShallow()
	if err := chunk.RemoveRowsAtTail(chunk.RowCount() - n); err != nil {
		return nil, err
	}
	return rebind(chunk, parentUID)
}

// columnChunk carves off the named columns as an independent composite
// frame sharing f's row index, with a fresh ClientRequestUID.
func columnChunk(f *tsarchive.IngestionFrame, names []string, parentUID string) (*tsarchive.IngestionFrame, error) {
	chunk := f.CopyShallow()
	drop := make(map[string]bool, len(names))
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	for _, c := range chunk.Columns() {
		if !keep[c.Name] {
			drop[c.Name] = true
		}
	}
	dropNames := make([]string, 0, len(drop))
	for n := range drop {
		dropNames = append(dropNames, n)
	}
	if err := chunk.RemoveColumnsByName(dropNames...); err != nil {
		return nil, err
	}
	return rebind(chunk, parentUID)
}

// rebind reconstructs chunk with a fresh ClientRequestUID, its other
// metadata carried over unchanged.
func rebind(chunk *tsarchive.IngestionFrame, parentUID string) (*tsarchive.IngestionFrame, error) {
	meta := chunk.Metadata()
	meta.ClientRequestUID = idgen.Derive(parentUID)
	if clock, ok := chunk.Clock(); ok {
		return tsarchive.NewClockedFrame(clock, chunk.Columns(), meta)
	}
	tms, _ := chunk.TimestampList()
	return tsarchive.NewTmsListFrame(tms, chunk.Columns(), meta)
}
