package tsarchive

import "testing"

func TestNewDataRequestRejectsForwardStream(t *testing.T) {
	iv, _ := NewTimeInterval(NewTimeInstant(0, 0), NewTimeInstant(10, 0))
	if _, err := NewDataRequest("r1", []string{"pv1"}, iv, StreamForward); err == nil {
		t.Errorf("expected forward stream type to be rejected")
	}
}

func TestNewDataRequestRejectsEmptyPVSet(t *testing.T) {
	iv, _ := NewTimeInterval(NewTimeInstant(0, 0), NewTimeInstant(10, 0))
	if _, err := NewDataRequest("r1", nil, iv, StreamBackward); err == nil {
		t.Errorf("expected empty PV set to be rejected")
	}
}

func TestNewDataRequestDedupsAndSortsPVNames(t *testing.T) {
	iv, _ := NewTimeInterval(NewTimeInstant(0, 0), NewTimeInstant(10, 0))
	req, err := NewDataRequest("r1", []string{"pv3", "pv1", "pv1", "pv2"}, iv, StreamBackward)
	if err != nil {
		t.Fatalf("NewDataRequest() error: %v", err)
	}
	want := []string{"pv1", "pv2", "pv3"}
	if len(req.PVNames) != len(want) {
		t.Fatalf("PVNames = %v, want %v", req.PVNames, want)
	}
	for i, w := range want {
		if req.PVNames[i] != w {
			t.Errorf("PVNames[%d] = %q, want %q", i, req.PVNames[i], w)
		}
	}
}

func TestDataRequestPVSet(t *testing.T) {
	iv, _ := NewTimeInterval(NewTimeInstant(0, 0), NewTimeInstant(10, 0))
	req, err := NewDataRequest("r1", []string{"pv1", "pv2"}, iv, StreamBackward)
	if err != nil {
		t.Fatalf("NewDataRequest() error: %v", err)
	}
	set := req.PVSet()
	if !set["pv1"] || !set["pv2"] || len(set) != 2 {
		t.Errorf("PVSet() = %v, want {pv1, pv2}", set)
	}
}
