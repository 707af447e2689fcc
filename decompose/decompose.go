// Package decompose splits a DataRequest into an ordered sequence of
// smaller subrequests, either automatically (by PV-count and duration
// caps) or along an explicitly chosen axis.
package decompose

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/config"
	"github.com/jfoltran/tsarchive/internal/tserr"
)

// Decomposer splits requests per its configuration.
type Decomposer struct {
	cfg    config.DecompositionConfig
	logger zerolog.Logger
}

// New constructs a Decomposer. cfg must already have passed Validate.
func New(cfg config.DecompositionConfig, logger zerolog.Logger) *Decomposer {
	return &Decomposer{cfg: cfg, logger: logger.With().Str("component", "decompose").Logger()}
}

// Decompose returns req as a 1-element sequence when decomposition is
// disabled, else applies the configured automatic or explicit strategy.
// The returned sequence is ordered by time then PV lexicographic order,
// its PV-set union and time-interval union equal req's.
func (d *Decomposer) Decompose(req tsarchive.DataRequest) ([]tsarchive.DataRequest, error) {
	if req.StreamType == tsarchive.StreamForward {
		return nil, tserr.New("decompose", tserr.ConfigInvalid, "forward stream type is rejected for queries")
	}
	if len(req.PVNames) == 0 {
		return nil, tserr.New("decompose", tserr.ConfigInvalid, "request %s: empty PV set", req.RequestID)
	}
	if req.TimeRange.Begin.After(req.TimeRange.End) {
		return nil, tserr.New("decompose", tserr.ConfigInvalid, "request %s: empty interval", req.RequestID)
	}

	if !d.cfg.Enabled {
		return []tsarchive.DataRequest{req}, nil
	}

	if d.cfg.Auto {
		return d.decomposeAuto(req)
	}
	return d.decomposeExplicit(req)
}

func (d *Decomposer) decomposeAuto(req tsarchive.DataRequest) ([]tsarchive.DataRequest, error) {
	if d.cfg.MaxPVs <= 0 {
		return nil, tserr.New("decompose", tserr.ConfigInvalid, "decomposition.maxPvs must be > 0")
	}
	if d.cfg.MaxDuration <= 0 {
		return nil, tserr.New("decompose", tserr.ConfigInvalid, "decomposition.maxDuration must be > 0")
	}

	pvGroups := groupPVs(req.PVNames, d.cfg.MaxPVs)
	windows := splitInterval(req.TimeRange, time.Duration(d.cfg.MaxDuration)*time.Second)

	out := make([]tsarchive.DataRequest, 0, len(pvGroups)*len(windows))
	for _, window := range windows {
		for _, pvs := range pvGroups {
			sub, err := tsarchive.NewDataRequest(subRequestID(req.RequestID, len(out)), pvs, window, req.StreamType)
			if err != nil {
				return nil, tserr.Wrap("decompose", tserr.ConfigInvalid, err)
			}
			out = append(out, sub)
		}
	}
	d.logger.Debug().Int("subrequests", len(out)).Int("pv_groups", len(pvGroups)).Int("windows", len(windows)).Msg("decomposed request")
	return out, nil
}

func (d *Decomposer) decomposeExplicit(req tsarchive.DataRequest) ([]tsarchive.DataRequest, error) {
	if d.cfg.StreamCount <= 0 {
		return nil, tserr.New("decompose", tserr.ConfigInvalid, "decomposition.streamCount must be > 0")
	}

	var pvGroups [][]string
	var windows []tsarchive.TimeInterval

	switch d.cfg.Strategy {
	case config.StrategyHorizontal:
		pvGroups = evenGroups(req.PVNames, d.cfg.StreamCount)
		windows = []tsarchive.TimeInterval{req.TimeRange}
	case config.StrategyVertical:
		pvGroups = [][]string{req.PVNames}
		windows = evenWindows(req.TimeRange, d.cfg.StreamCount)
	case config.StrategyGrid:
		side := gridSide(d.cfg.StreamCount)
		pvGroups = evenGroups(req.PVNames, side)
		windows = evenWindows(req.TimeRange, side)
	default:
		return nil, tserr.New("decompose", tserr.ConfigInvalid, "unknown decomposition strategy %q", d.cfg.Strategy)
	}

	out := make([]tsarchive.DataRequest, 0, len(pvGroups)*len(windows))
	for _, window := range windows {
		for _, pvs := range pvGroups {
			sub, err := tsarchive.NewDataRequest(subRequestID(req.RequestID, len(out)), pvs, window, req.StreamType)
			if err != nil {
				return nil, tserr.Wrap("decompose", tserr.ConfigInvalid, err)
			}
			out = append(out, sub)
		}
	}
	return out, nil
}

func subRequestID(parent string, index int) string {
	return fmt.Sprintf("%s.%d", parent, index)
}

// groupPVs splits a sorted PV name slice into contiguous groups of at most
// maxPerGroup, preserving order.
func groupPVs(pvNames []string, maxPerGroup int) [][]string {
	if maxPerGroup <= 0 || len(pvNames) <= maxPerGroup {
		return [][]string{append([]string(nil), pvNames...)}
	}
	var groups [][]string
	for i := 0; i < len(pvNames); i += maxPerGroup {
		end := i + maxPerGroup
		if end > len(pvNames) {
			end = len(pvNames)
		}
		groups = append(groups, append([]string(nil), pvNames[i:end]...))
	}
	return groups
}

// evenGroups splits pvNames into at most count contiguous groups of
// ceil(len(pvNames)/count) PVs each (the last may be smaller), used for
// explicit horizontal/grid decomposition. Fewer than count groups can
// result: 5 PVs with count 4 give 3 groups of 2, 2 and 1.
func evenGroups(pvNames []string, count int) [][]string {
	if count <= 1 || len(pvNames) <= count {
		return groupPVs(pvNames, ceilDiv(len(pvNames), max(count, 1)))
	}
	per := ceilDiv(len(pvNames), count)
	return groupPVs(pvNames, per)
}

// splitInterval partitions iv into contiguous windows of at most width,
// left-closed/right-open except the interval's own closed right endpoint,
// which is preserved on the final window.
func splitInterval(iv tsarchive.TimeInterval, width time.Duration) []tsarchive.TimeInterval {
	if width <= 0 || iv.Duration() <= width {
		return []tsarchive.TimeInterval{iv}
	}
	var windows []tsarchive.TimeInterval
	start := iv.Begin
	for start.Before(iv.End) {
		end := start.Add(width)
		if end.After(iv.End) {
			end = iv.End
		}
		windows = append(windows, tsarchive.TimeInterval{Begin: start, End: end})
		start = end
	}
	return windows
}

// evenWindows splits iv into contiguous windows of width duration/count,
// rounded down to the nanosecond (at least 1ns), used for explicit
// vertical/grid decomposition. That yields exactly count windows when count
// divides the duration evenly; otherwise extra windows follow, the last one
// narrower.
func evenWindows(iv tsarchive.TimeInterval, count int) []tsarchive.TimeInterval {
	if count <= 1 {
		return []tsarchive.TimeInterval{iv}
	}
	width := time.Duration(int64(iv.Duration()) / int64(count))
	if width <= 0 {
		width = time.Nanosecond
	}
	return splitInterval(iv, width)
}

func gridSide(count int) int {
	side := 1
	for side*side < count {
		side++
	}
	return side
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
