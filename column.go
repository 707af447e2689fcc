package tsarchive

import "fmt"

// ElementType enumerates the scalar and structured types a DataColumn's
// values may hold.
type ElementType int

const (
	ElementBool ElementType = iota
	ElementInt32
	ElementInt64
	ElementFloat32
	ElementFloat64
	ElementString
	ElementBytes
	ElementStructured
	ElementArray
)

// String implements fmt.Stringer.
func (e ElementType) String() string {
	switch e {
	case ElementBool:
		return "bool"
	case ElementInt32:
		return "int32"
	case ElementInt64:
		return "int64"
	case ElementFloat32:
		return "float32"
	case ElementFloat64:
		return "float64"
	case ElementString:
		return "string"
	case ElementBytes:
		return "bytes"
	case ElementStructured:
		return "structured"
	case ElementArray:
		return "array"
	default:
		return fmt.Sprintf("elementtype(%d)", int(e))
	}
}

// Assignable reports whether v is a legal value for this ElementType.
// A nil value is always assignable: it represents the "absent" marker
// used by super-domain merging.
func (e ElementType) Assignable(v any) bool {
	if v == nil {
		return true
	}
	switch e {
	case ElementBool:
		_, ok := v.(bool)
		return ok
	case ElementInt32:
		_, ok := v.(int32)
		return ok
	case ElementInt64:
		_, ok := v.(int64)
		return ok
	case ElementFloat32:
		_, ok := v.(float32)
		return ok
	case ElementFloat64:
		_, ok := v.(float64)
		return ok
	case ElementString:
		_, ok := v.(string)
		return ok
	case ElementBytes:
		_, ok := v.([]byte)
		return ok
	case ElementStructured:
		_, ok := v.(map[string]any)
		return ok
	case ElementArray:
		_, ok := v.([]any)
		return ok
	default:
		return false
	}
}

// ZeroValue returns the typed zero value for this type (nil for an
// unrecognized type).
func (e ElementType) ZeroValue() any {
	switch e {
	case ElementBool:
		return false
	case ElementInt32:
		return int32(0)
	case ElementInt64:
		return int64(0)
	case ElementFloat32:
		return float32(0)
	case ElementFloat64:
		return float64(0)
	case ElementString:
		return ""
	case ElementBytes:
		return []byte(nil)
	case ElementStructured:
		return map[string]any(nil)
	case ElementArray:
		return []any(nil)
	default:
		return nil
	}
}

// DataColumn is a named, typed, column-major vector of sample values.
// Invariant: every element of Values is Assignable to ElementType, and
// len(Values) equals the owning container's row count.
type DataColumn struct {
	Name        string
	ElementType ElementType
	Values      []any
}

// NewDataColumn validates the column's values against its declared type.
func NewDataColumn(name string, elementType ElementType, values []any) (DataColumn, error) {
	for i, v := range values {
		if !elementType.Assignable(v) {
			return DataColumn{}, fmt.Errorf("tsarchive: column %q: value at index %d is not assignable to %s", name, i, elementType)
		}
	}
	return DataColumn{Name: name, ElementType: elementType, Values: values}, nil
}

// Len returns the number of values in the column.
func (c DataColumn) Len() int { return len(c.Values) }

// CopyShallow returns a column sharing no backing array with c (the Values
// slice is copied; individual element values, being any, are not deep
// copied).
func (c DataColumn) CopyShallow() DataColumn {
	values := make([]any, len(c.Values))
	copy(values, c.Values)
	return DataColumn{Name: c.Name, ElementType: c.ElementType, Values: values}
}

// Slice returns the sub-column covering rows [from, to).
func (c DataColumn) Slice(from, to int) DataColumn {
	values := make([]any, to-from)
	copy(values, c.Values[from:to])
	return DataColumn{Name: c.Name, ElementType: c.ElementType, Values: values}
}
