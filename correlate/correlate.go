// Package correlate implements the Raw Correlator: it groups inbound
// DataMessage frames sharing an identical time specification into single
// RawCorrelatedBlocks, starting single-threaded and pivoting to a
// hash-partitioned worker pool once the live group count passes a
// configured threshold.
package correlate

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/config"
	"github.com/jfoltran/tsarchive/internal/tserr"
	"github.com/jfoltran/tsarchive/rpc"
)

// Status records the two post-conditions the correlator checks on
// completion; either may legitimately fail without being fatal.
type Status struct {
	Ordering            bool
	DisjointTimeDomains bool
}

// Correlator groups messages into RawCorrelatedBlocks under a shared
// configuration. A Correlator instance is not reusable across concurrent
// Correlate calls; build one per session.
type Correlator struct {
	cfg    config.CorrelateConfig
	logger zerolog.Logger

	mu         sync.Mutex
	lastStatus Status
}

// New constructs a Correlator. cfg must already have passed Validate.
func New(cfg config.CorrelateConfig, logger zerolog.Logger) *Correlator {
	return &Correlator{cfg: cfg, logger: logger.With().Str("component", "correlate").Logger()}
}

// Status returns the ordering/disjointness status from the most recently
// completed Correlate call.
func (c *Correlator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus
}

func (c *Correlator) setStatus(s Status) {
	c.mu.Lock()
	c.lastStatus = s
	c.mu.Unlock()
}

// Correlate implements the recoverer.Correlator contract: consume messages
// until the channel closes, group them by exact time-key equality, and
// return the resulting blocks ordered by start time.
func (c *Correlator) Correlate(ctx context.Context, messages <-chan rpc.DataMessage) ([]tsarchive.RawCorrelatedBlock, error) {
	main := newGroupSet()
	pivot := newPivotPool(c.cfg, c.logger)

	for {
		select {
		case <-ctx.Done():
			return nil, tserr.Wrap("correlate", tserr.Cancelled, ctx.Err())
		case msg, ok := <-messages:
			if !ok {
				blocks, err := c.finish(main, pivot)
				return blocks, err
			}
			frame := frameOf(msg)
			if frame == nil {
				continue
			}
			if !pivot.active() && c.cfg.ConcurrencyEnabled && main.size() > c.cfg.PivotSize {
				pivot.start()
			}
			if pivot.active() {
				pivot.submit(frame)
			} else if err := main.merge(frame); err != nil {
				pivot.stopDiscard()
				return nil, err
			}
		}
	}
}

func (c *Correlator) finish(main *groupSet, pivot *pivotPool) ([]tsarchive.RawCorrelatedBlock, error) {
	workerSets, err := pivot.stop()
	if err != nil {
		return nil, err
	}
	for _, ws := range workerSets {
		if err := main.absorb(ws); err != nil {
			return nil, err
		}
	}

	blocks, err := main.build()
	if err != nil {
		return nil, err
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].StartTime().Before(blocks[j].StartTime()) })
	c.setStatus(computeStatus(blocks))
	return blocks, nil
}

func frameOf(msg rpc.DataMessage) *tsarchive.IngestionFrame {
	qr, ok := msg.(*rpc.QueryDataResponse)
	if !ok {
		return nil
	}
	return qr.Frame
}

func computeStatus(blocks []tsarchive.RawCorrelatedBlock) Status {
	ordering := true
	disjoint := true
	for i := 1; i < len(blocks); i++ {
		if !blocks[i-1].StartTime().Before(blocks[i].StartTime()) {
			ordering = false
		}
	}
	for i := 0; i < len(blocks); i++ {
		for j := i + 1; j < len(blocks); j++ {
			if intervalsOverlap(blocks[i], blocks[j]) {
				disjoint = false
			}
		}
	}
	return Status{Ordering: ordering, DisjointTimeDomains: disjoint}
}

func intervalsOverlap(a, b tsarchive.RawCorrelatedBlock) bool {
	aEnd := blockEnd(a)
	bEnd := blockEnd(b)
	return !a.StartTime().After(bEnd) && !b.StartTime().After(aEnd)
}

func blockEnd(b tsarchive.RawCorrelatedBlock) tsarchive.TimeInstant {
	switch v := b.(type) {
	case tsarchive.RawClockedBlock:
		return v.Clock.End()
	case tsarchive.RawTmsListBlock:
		if v.TmsList.Len() == 0 {
			return v.StartTime()
		}
		return v.TmsList.Timestamps[v.TmsList.Len()-1]
	default:
		return b.StartTime()
	}
}
