package tsarchive

import (
	"fmt"
	"sort"
)

// StreamType selects the RPC streaming shape used to satisfy a DataRequest.
type StreamType int

const (
	// StreamBackward is server-streaming: one outbound request, many
	// inbound response messages.
	StreamBackward StreamType = iota
	// StreamBidirectional pairs a forward and a backward half; the
	// recoverer reads messages from the backward half.
	StreamBidirectional
	// StreamForward is explicitly rejected for queries.
	StreamForward
)

// String implements fmt.Stringer.
func (s StreamType) String() string {
	switch s {
	case StreamBackward:
		return "backward"
	case StreamBidirectional:
		return "bidirectional"
	case StreamForward:
		return "forward"
	default:
		return fmt.Sprintf("streamtype(%d)", int(s))
	}
}

// DataRequest describes a query for one or more PVs over a time range.
type DataRequest struct {
	RequestID  string
	PVNames    []string
	TimeRange  TimeInterval
	StreamType StreamType
}

// NewDataRequest validates and constructs a DataRequest. PVNames is sorted
// and deduplicated (the set itself is unordered; a canonical sorted slice
// keeps decomposition output deterministic).
func NewDataRequest(requestID string, pvNames []string, timeRange TimeInterval, streamType StreamType) (DataRequest, error) {
	if streamType == StreamForward {
		return DataRequest{}, fmt.Errorf("tsarchive: forward stream type is rejected for queries")
	}
	if len(pvNames) == 0 {
		return DataRequest{}, fmt.Errorf("tsarchive: request %s: empty PV set", requestID)
	}
	pvs := dedupSorted(pvNames)
	return DataRequest{
		RequestID:  requestID,
		PVNames:    pvs,
		TimeRange:  timeRange,
		StreamType: streamType,
	}, nil
}

func dedupSorted(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// PVSet returns the request's PV names as a set.
func (r DataRequest) PVSet() map[string]bool {
	set := make(map[string]bool, len(r.PVNames))
	for _, pv := range r.PVNames {
		set[pv] = true
	}
	return set
}
