// Package assemble implements the Aggregate Assembler: it coerces raw
// correlated blocks into typed SampledBlocks, detects time-domain
// collisions between them, and resolves each maximal collision group into
// a single SuperDomain block via presence-bitmap merging.
package assemble

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/config"
	"github.com/jfoltran/tsarchive/internal/tserr"
)

// Assembler runs the Aggregate Assembler under a shared configuration.
type Assembler struct {
	cfg    config.AggregateConfig
	logger zerolog.Logger
}

// New constructs an Assembler. cfg must already have passed Validate.
func New(cfg config.AggregateConfig, logger zerolog.Logger) *Assembler {
	return &Assembler{cfg: cfg, logger: logger.With().Str("component", "assemble").Logger()}
}

// Assemble coerces blocks (assumed already sorted by start time, as the
// correlator emits them) into a SampledAggregate, merging any colliding
// time domains into SuperDomain blocks.
func (a *Assembler) Assemble(ctx context.Context, blocks []tsarchive.RawCorrelatedBlock, timeRange tsarchive.TimeInterval) (tsarchive.SampledAggregate, error) {
	typed, err := a.coerceAll(ctx, blocks)
	if err != nil {
		return tsarchive.SampledAggregate{}, err
	}

	groups := groupByCollision(typed)

	result := make([]tsarchive.SampledBlock, 0, len(groups))
	for _, group := range groups {
		if len(group) == 1 {
			result = append(result, group[0])
			continue
		}
		if !a.cfg.TimeDomainCollisionsEnabled {
			return tsarchive.SampledAggregate{}, tserr.New("assemble", tserr.OverlappingDomain,
				"%d blocks have overlapping but non-identical time domains and time-domain merging is disabled", len(group))
		}
		merged, err := mergeSuperDomain(group)
		if err != nil {
			return tsarchive.SampledAggregate{}, err
		}
		if a.cfg.AdvancedErrorChecking {
			if err := tsarchive.ValidateRawBlock(rawBlockOf(merged)); err != nil {
				return tsarchive.SampledAggregate{}, tserr.Wrap("assemble", tserr.CorruptMessage, err)
			}
		}
		result = append(result, merged)
	}

	agg, err := tsarchive.NewSampledAggregate(timeRange, result)
	if err != nil {
		return tsarchive.SampledAggregate{}, tserr.Wrap("assemble", tserr.EmptyAggregate, err)
	}
	return agg, nil
}

// coerceAll converts every raw block into its typed SampledBlock shape,
// verifying that any PV shared across blocks keeps a consistent element
// type. Coercion itself is embarrassingly parallel; only the
// type-consistency bookkeeping needs a lock.
func (a *Assembler) coerceAll(ctx context.Context, blocks []tsarchive.RawCorrelatedBlock) ([]tsarchive.SampledBlock, error) {
	out := make([]tsarchive.SampledBlock, len(blocks))

	types := newTypeLedger()

	if !a.cfg.ConcurrencyEnabled || len(blocks) <= a.cfg.PivotSize {
		for i, b := range blocks {
			typed, err := a.coerceOne(b, types)
			if err != nil {
				return nil, err
			}
			out[i] = typed
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	workCh := make(chan int, len(blocks))
	for i := range blocks {
		workCh <- i
	}
	close(workCh)

	workers := a.cfg.MaxThreads
	if workers > len(blocks) {
		workers = len(blocks)
	}
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range workCh {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				typed, err := a.coerceOne(blocks[i], types)
				if err != nil {
					return err
				}
				out[i] = typed
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Assembler) coerceOne(b tsarchive.RawCorrelatedBlock, types *typeLedger) (tsarchive.SampledBlock, error) {
	for _, col := range b.ColumnsOf() {
		if err := types.check(col.Name, col.ElementType); err != nil {
			return nil, err
		}
	}
	if a.cfg.AdvancedErrorChecking {
		if err := tsarchive.ValidateRawBlock(b); err != nil {
			return nil, tserr.Wrap("assemble", tserr.CorruptMessage, err)
		}
	}
	switch v := b.(type) {
	case tsarchive.RawClockedBlock:
		return tsarchive.ClockedSampledBlock{Clock: v.Clock, Columns: v.Columns}, nil
	case tsarchive.RawTmsListBlock:
		return tsarchive.TmsListSampledBlock{TmsList: v.TmsList, Columns: v.Columns}, nil
	default:
		return nil, tserr.New("assemble", tserr.CorruptMessage, "unrecognized raw block shape")
	}
}
