package tsarchive

import "testing"

func TestElementTypeAssignable(t *testing.T) {
	tests := []struct {
		name string
		et   ElementType
		v    any
		want bool
	}{
		{"int64 matches", ElementInt64, int64(5), true},
		{"int64 rejects int32", ElementInt64, int32(5), false},
		{"string matches", ElementString, "hello", true},
		{"nil always assignable", ElementFloat64, nil, true},
		{"bytes matches", ElementBytes, []byte("x"), true},
		{"structured matches map", ElementStructured, map[string]any{"a": 1}, true},
		{"array matches slice", ElementArray, []any{1, 2}, true},
		{"wrong type rejected", ElementBool, "not a bool", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.et.Assignable(tt.v); got != tt.want {
				t.Errorf("Assignable(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}

func TestElementTypeZeroValue(t *testing.T) {
	if v := ElementInt64.ZeroValue(); v != int64(0) {
		t.Errorf("ZeroValue() = %v, want int64(0)", v)
	}
	if v := ElementString.ZeroValue(); v != "" {
		t.Errorf("ZeroValue() = %v, want empty string", v)
	}
	if v := ElementBool.ZeroValue(); v != false {
		t.Errorf("ZeroValue() = %v, want false", v)
	}
}

func TestNewDataColumnValidation(t *testing.T) {
	if _, err := NewDataColumn("pv1", ElementInt64, []any{int64(1), int64(2)}); err != nil {
		t.Errorf("expected valid column, got error: %v", err)
	}
	if _, err := NewDataColumn("pv1", ElementInt64, []any{int64(1), "oops"}); err == nil {
		t.Errorf("expected type mismatch to be rejected")
	}
	if _, err := NewDataColumn("pv1", ElementInt64, []any{int64(1), nil}); err != nil {
		t.Errorf("expected nil to be assignable as absent marker, got error: %v", err)
	}
}

func TestDataColumnSlice(t *testing.T) {
	c, _ := NewDataColumn("pv1", ElementInt64, []any{int64(0), int64(1), int64(2), int64(3)})
	sub := c.Slice(1, 3)
	if sub.Len() != 2 {
		t.Fatalf("Slice() len = %d, want 2", sub.Len())
	}
	if sub.Values[0] != int64(1) || sub.Values[1] != int64(2) {
		t.Errorf("Slice() values = %v, want [1 2]", sub.Values)
	}
	// mutating the sub-slice must not affect the original.
	sub.Values[0] = int64(99)
	if c.Values[1] != int64(1) {
		t.Errorf("Slice() leaked mutation into source column")
	}
}

func TestDataColumnCopyShallowIndependence(t *testing.T) {
	c, _ := NewDataColumn("pv1", ElementInt64, []any{int64(1), int64(2)})
	cp := c.CopyShallow()
	cp.Values[0] = int64(99)
	if c.Values[0] != int64(1) {
		t.Errorf("CopyShallow() shares backing array with source")
	}
}
