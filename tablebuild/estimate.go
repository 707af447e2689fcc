package tablebuild

import "github.com/jfoltran/tsarchive"

// timeInstantBytes is the on-wire size of a single TimeInstant (int64 +
// int32), used when estimating the cost of the shared timestamp vector.
const timeInstantBytes = 12

// elementSize gives a fixed per-value byte estimate for an ElementType.
// Variable-length types (string/bytes/structured/array) use a conservative
// flat estimate rather than inspecting every value, avoiding a full
// materialization pass just to decide whether to materialize.
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

// estimateBytes computes the byte cost NewStaticTable's flattened form
// would carry: one shared timestamp vector sized to the aggregate's total
// row count, plus one value vector per column sized to its own row count.
func estimateBytes(agg tsarchive.SampledAggregate) int64 {
	var total int64
	for _, block := range agg.Blocks {
		rows := block.RowCount()
		total += rows * timeInstantBytes
		for _, col := range block.ColumnsOf() {
			total += int64(col.Len()) * elementSize(col.ElementType)
		}
	}
	return total
}
