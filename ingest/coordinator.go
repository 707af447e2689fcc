package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/idgen"
	"github.com/jfoltran/tsarchive/internal/tserr"
)

// sentinelLabel tags the zero-row frames Coordinator injects so a
// processor never mistakes one for caller data.
const sentinelLabel = "ingest.sentinel"

// Coordinator gives an in-flight ingest session a deterministic drain
// point. It injects a zero-row sentinel frame into the producer's
// supplier and blocks until the matching acknowledgement comes back on
// the backward half: inject a marker, wait for it to be observed on the
// other side, treat that as proof every frame enqueued before it has
// been processed.
type Coordinator struct {
	logger   zerolog.Logger
	supplier chan<- *tsarchive.IngestionFrame

	mu      sync.Mutex
	pending map[string]chan struct{}
}

// NewCoordinator creates a Coordinator that injects sentinels into supplier,
// the same channel a Processor's producer loop reads frames from.
func NewCoordinator(supplier chan<- *tsarchive.IngestionFrame, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		logger:   logger.With().Str("component", "ingest.coordinator").Logger(),
		supplier: supplier,
		pending:  make(map[string]chan struct{}),
	}
}

// Initiate injects a new sentinel frame and returns its ClientRequestUID
// for later correlation via Await or Confirm.
func (c *Coordinator) Initiate(ctx context.Context) (string, error) {
	uid := idgen.New()
	ch := make(chan struct{})

	c.mu.Lock()
	c.pending[uid] = ch
	c.mu.Unlock()

	frame, err := sentinelFrame(uid)
	if err != nil {
		c.mu.Lock()
		delete(c.pending, uid)
		c.mu.Unlock()
		return "", tserr.Wrap("ingest", tserr.CorruptMessage, err)
	}

	select {
	case c.supplier <- frame:
		c.logger.Debug().Str("uid", uid).Msg("sentinel injected")
		return uid, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, uid)
		c.mu.Unlock()
		return "", ctx.Err()
	}
}

// Await blocks until the sentinel identified by uid is confirmed, ctx is
// cancelled, or timeout elapses.
func (c *Coordinator) Await(ctx context.Context, uid string, timeout time.Duration) error {
	c.mu.Lock()
	ch, ok := c.pending[uid]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("ingest: unknown sentinel %q", uid)
	}

	select {
	case <-ch:
		c.logger.Debug().Str("uid", uid).Msg("sentinel confirmed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		c.mu.Lock()
		delete(c.pending, uid)
		c.mu.Unlock()
		return tserr.New("ingest", tserr.DeadlineExceeded, "sentinel %q timed out after %s", uid, timeout)
	}
}

// Drain injects a sentinel and waits for its confirmation, giving the
// caller a single call proving every frame enqueued before it returns has
// been acknowledged.
func (c *Coordinator) Drain(ctx context.Context, timeout time.Duration) error {
	uid, err := c.Initiate(ctx)
	if err != nil {
		return err
	}
	return c.Await(ctx, uid, timeout)
}

// Confirm is called for every acknowledgement a processor's consumer loop
// observes. It closes the matching sentinel's wait channel if uid is
// pending, and is a silent no-op for ordinary frame acknowledgements.
func (c *Coordinator) Confirm(uid string) {
	c.mu.Lock()
	ch, ok := c.pending[uid]
	if ok {
		delete(c.pending, uid)
	}
	c.mu.Unlock()

	if ok {
		close(ch)
	}
}

// sentinelFrame builds the zero-row, zero-column frame Coordinator injects.
func sentinelFrame(uid string) (*tsarchive.IngestionFrame, error) {
	meta := tsarchive.FrameMetadata{ClientRequestUID: uid, FrameLabel: sentinelLabel}
	return tsarchive.NewTmsListFrame(tsarchive.TimestampList{}, nil, meta)
}
