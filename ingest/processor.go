package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/config"
	"github.com/jfoltran/tsarchive/internal/tserr"
	"github.com/jfoltran/tsarchive/rpc"
)

// State is the Streaming Ingest Processor's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Result is the outcome of one ingest session.
type Result struct {
	FramesSent         int64
	FramesAcknowledged int64
}

// Processor runs one bidirectional ingest session: a dedicated producer
// binning and forwarding frames pulled from a bounded supplier, and a
// dedicated consumer observing per-frame acknowledgements on the backward
// half, moving through `Idle → Streaming → [Completed|Failed]`.
type Processor struct {
	cfg    config.IngestConfig
	logger zerolog.Logger

	mu    sync.Mutex
	state State
}

// New constructs a Processor. cfg must already have passed Validate.
func New(cfg config.IngestConfig, logger zerolog.Logger) *Processor {
	return &Processor{cfg: cfg, logger: logger.With().Str("component", "ingest").Logger(), state: StateIdle}
}

// State returns the processor's current lifecycle state.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Processor) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.logger.Debug().Str("state", string(s)).Msg("ingest processor state changed")
}

// Run drives one ingest session to completion. It holds the forward
// handle for the call's duration (Streaming requires hasForwardHandle ∧
// ¬fatal) and settles into Completed once the supplier is drained and
// both halves of client have closed, or Failed on the first fatal
// condition: a transport error, a rejected acknowledgement, or the
// supplier stalling past cfg.PollTimeoutMs (SupplierEmptyPoll). A fatal
// condition on either side cancels the other. coord may be nil; when set,
// every non-exceptional acknowledgement is reported to it so a caller's
// pending Coordinator.Drain calls can resolve.
func (p *Processor) Run(ctx context.Context, client rpc.BidiStreamClient, providerID string, supplier <-chan *tsarchive.IngestionFrame, coord *Coordinator) (Result, error) {
	p.setState(StateStreaming)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var failOnce sync.Once
	var fatalErr error
	fail := func(err error) {
		failOnce.Do(func() {
			fatalErr = err
			cancel()
		})
	}

	var framesSent, framesAcked int64
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		framesSent = p.runProducer(ctx, client, providerID, supplier, fail)
	}()
	go func() {
		defer wg.Done()
		framesAcked = p.runConsumer(ctx, client, coord, fail)
	}()

	wg.Wait()

	result := Result{FramesSent: framesSent, FramesAcknowledged: framesAcked}
	if fatalErr != nil {
		p.setState(StateFailed)
		return result, fatalErr
	}
	p.setState(StateCompleted)
	return result, nil
}

// runProducer pulls frames from supplier until it is drained (closed,
// producerDrained) or stalls past cfg.PollTimeoutMs, binning each frame
// under cfg.MaxFrameBytes and sending every composite on the forward
// half. It always calls CompleteForward exactly once before returning
// (forwardClosed), whether draining finished cleanly or a fatal
// condition cut it short.
func (p *Processor) runProducer(ctx context.Context, client rpc.BidiStreamClient, providerID string, supplier <-chan *tsarchive.IngestionFrame, fail func(error)) int64 {
	var sent int64
	defer func() {
		if err := client.CompleteForward(ctx); err != nil {
			fail(tserr.Wrap("ingest", tserr.TransportError, err))
		}
	}()

	timeout := time.Duration(p.cfg.PollTimeoutMs) * time.Millisecond
	for {
		timer := time.NewTimer(timeout)
		select {
		case <-ctx.Done():
			timer.Stop()
			return sent
		case frame, ok := <-supplier:
			timer.Stop()
			if !ok {
				return sent
			}
			composites, err := Bin(frame, p.cfg.MaxFrameBytes)
			if err != nil {
				fail(err)
				return sent
			}
			for _, composite := range composites {
				meta := composite.Metadata()
				req := rpc.IngestDataRequest{
					ProviderID:       providerID,
					ClientRequestUID: meta.ClientRequestUID,
					Attributes:       meta.Attributes,
					Frame:            composite,
				}
				if err := client.Send(ctx, req); err != nil {
					fail(tserr.Wrap("ingest", tserr.TransportError, err))
					return sent
				}
				sent++
			}
		case <-timer.C:
			fail(tserr.New("ingest", tserr.TransportError, "supplier produced no frame within %s", timeout))
			return sent
		}
	}
}

// runConsumer drains client's backward half until it closes
// (backwardClosed). Any acknowledgement carrying an exceptionalResult is
// fatal: it sets the session result to failed and cancels the forward half
// via fail. Every other acknowledgement is reported to coord, if set, so a
// pending Coordinator.Drain can resolve.
func (p *Processor) runConsumer(ctx context.Context, client rpc.BidiStreamClient, coord *Coordinator, fail func(error)) int64 {
	var acked int64
	for {
		select {
		case <-ctx.Done():
			return acked
		case resp, ok := <-client.Responses():
			if !ok {
				return acked
			}
			if exc, rejected := resp.Exceptional(); rejected {
				fail(tserr.New("ingest", tserr.RequestRejected, "ingest rejected for %s: %s", resp.ClientRequestUID, exc.Message))
				continue
			}
			if resp.Acknowledged {
				acked++
				if coord != nil {
					coord.Confirm(resp.ClientRequestUID)
				}
			}
		}
	}
}
