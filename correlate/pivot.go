package correlate

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/config"
)

// pivotPool is the hash-partitioned worker pool the correlator switches to
// once its live group count exceeds cfg.PivotSize. Each worker owns an
// independent groupSet keyed by TimeKey.Hash() bucket, so no worker ever
// sees another's partition.
type pivotPool struct {
	cfg    config.CorrelateConfig
	logger zerolog.Logger

	started bool
	chans   []chan *tsarchive.IngestionFrame
	sets    []*groupSet
	wg      sync.WaitGroup

	mu       sync.Mutex
	firstErr error
}

func newPivotPool(cfg config.CorrelateConfig, logger zerolog.Logger) *pivotPool {
	return &pivotPool{cfg: cfg, logger: logger}
}

func (p *pivotPool) active() bool { return p.started }

// start spins up cfg.MaxThreads workers. The pivot is one-way: calling
// start twice is a no-op.
func (p *pivotPool) start() {
	if p.started || p.cfg.MaxThreads < 1 {
		return
	}
	p.started = true
	p.chans = make([]chan *tsarchive.IngestionFrame, p.cfg.MaxThreads)
	p.sets = make([]*groupSet, p.cfg.MaxThreads)
	for i := range p.chans {
		p.chans[i] = make(chan *tsarchive.IngestionFrame, 32)
		p.sets[i] = newGroupSet()
		p.wg.Add(1)
		go p.runWorker(i)
	}
	p.logger.Debug().Int("workers", p.cfg.MaxThreads).Msg("correlator pivoted to parallel grouping")
}

func (p *pivotPool) runWorker(idx int) {
	defer p.wg.Done()
	for frame := range p.chans[idx] {
		if err := p.sets[idx].merge(frame); err != nil {
			p.recordErr(err)
		}
	}
}

func (p *pivotPool) recordErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.firstErr == nil {
		p.firstErr = err
	}
}

// submit routes frame to the worker owning its TimeKey's hash bucket.
func (p *pivotPool) submit(frame *tsarchive.IngestionFrame) {
	key, err := keyOf(frame)
	if err != nil {
		p.recordErr(err)
		return
	}
	idx := int(key.Hash() % uint64(len(p.chans)))
	p.chans[idx] <- frame
}

// stop closes every worker channel, waits for drain, and returns each
// worker's groupSet (or the first recorded error).
func (p *pivotPool) stop() ([]*groupSet, error) {
	if !p.started {
		return nil, nil
	}
	for _, ch := range p.chans {
		close(ch)
	}
	p.wg.Wait()
	if p.firstErr != nil {
		return nil, p.firstErr
	}
	return p.sets, nil
}

// stopDiscard closes workers without propagating their results, used when
// the main-thread path already failed and the pivot's output is moot.
func (p *pivotPool) stopDiscard() {
	if !p.started {
		return
	}
	for _, ch := range p.chans {
		close(ch)
	}
	p.wg.Wait()
}
