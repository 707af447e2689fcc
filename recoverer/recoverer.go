// Package recoverer implements the Multi-Stream Recoverer: it opens up to
// maxStreams concurrent inbound streams against a set of subrequests,
// merges their messages into a bounded FIFO, and hands the FIFO to a
// correlator either inline (while streaming) or after every stream
// completes.
package recoverer

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/config"
	"github.com/jfoltran/tsarchive/internal/telemetry"
	"github.com/jfoltran/tsarchive/internal/tserr"
	"github.com/jfoltran/tsarchive/rpc"
)

// StreamOpener opens one inbound stream for a subrequest. Supplied by the
// caller so the recoverer never depends on a concrete transport.
type StreamOpener func(ctx context.Context, req tsarchive.DataRequest) (rpc.StreamClient, error)

// Correlator consumes DataMessage items and produces a sorted set of
// RawCorrelatedBlock. The recoverer is deliberately decoupled from any
// concrete correlator implementation; package correlate provides one.
type Correlator interface {
	Correlate(ctx context.Context, messages <-chan rpc.DataMessage) ([]tsarchive.RawCorrelatedBlock, error)
}

// Result is the outcome of one recovery session.
type Result struct {
	Blocks                []tsarchive.RawCorrelatedBlock
	ProcessedMessageCount int64
	ProcessedByteCount    int64
}

// Recoverer runs one or more recovery sessions under a shared configuration.
type Recoverer struct {
	cfg    config.MultiStreamConfig
	logger zerolog.Logger
}

// New constructs a Recoverer. cfg must already have passed Validate.
func New(cfg config.MultiStreamConfig, logger zerolog.Logger) *Recoverer {
	return &Recoverer{cfg: cfg, logger: logger.With().Str("component", "recoverer").Logger()}
}

// EstimatedDomainSize estimates a subrequest's domain size as
// |PVNames| · durationSeconds, the quantity ShouldMultiStream compares
// against its threshold.
func EstimatedDomainSize(req tsarchive.DataRequest) float64 {
	return float64(len(req.PVNames)) * req.TimeRange.Duration().Seconds()
}

// ShouldMultiStream implements the engagement decision rule:
// `decompositionEnabled ∧ estimatedDomainSize(req) ≥ multiStreamDomainSizeThreshold`.
func ShouldMultiStream(decompositionEnabled bool, req tsarchive.DataRequest, threshold float64) bool {
	return decompositionEnabled && EstimatedDomainSize(req) >= threshold
}

// Recover opens one stream per subrequest (bounded to cfg.MaxStreams
// concurrently), merges inbound messages into a FIFO of capacity
// cfg.FIFOCapacity, and hands the FIFO to correlator. Any fatal stream
// error cancels every peer stream; the first such error is returned.
func (r *Recoverer) Recover(ctx context.Context, subreqs []tsarchive.DataRequest, open StreamOpener, correlator Correlator) (Result, error) {
	streamIDs := make([]string, len(subreqs))
	for i, sub := range subreqs {
		streamIDs[i] = sub.RequestID
	}
	rec := telemetry.NewRecorder(r.logger, streamIDs)

	g, gctx := errgroup.WithContext(ctx)
	fifo := make(chan rpc.DataMessage, r.cfg.FIFOCapacity)

	workCh := make(chan tsarchive.DataRequest, len(subreqs))
	for _, sub := range subreqs {
		workCh <- sub
	}
	close(workCh)

	workers := r.cfg.MaxStreams
	if workers > len(subreqs) {
		workers = len(subreqs)
	}
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for sub := range workCh {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				if err := r.runStream(gctx, sub, open, fifo, rec); err != nil {
					return err
				}
			}
			return nil
		})
	}

	var closeOnce sync.Once
	closed := make(chan struct{})
	go func() {
		g.Wait()
		closeOnce.Do(func() { close(fifo) })
		close(closed)
	}()

	var blocks []tsarchive.RawCorrelatedBlock
	var correlateErr error
	if r.cfg.CorrelateWhileStreaming {
		blocks, correlateErr = correlator.Correlate(gctx, fifo)
	} else {
		<-closed
		blocks, correlateErr = correlator.Correlate(gctx, fifo)
	}

	workErr := g.Wait()
	<-closed

	result := Result{
		Blocks:                blocks,
		ProcessedMessageCount: rec.ProcessedMessageCount(),
		ProcessedByteCount:    rec.ProcessedByteCount(),
	}

	if workErr != nil {
		return result, workErr
	}
	if correlateErr != nil {
		return result, correlateErr
	}
	return result, nil
}

func (r *Recoverer) runStream(ctx context.Context, sub tsarchive.DataRequest, open StreamOpener, fifo chan<- rpc.DataMessage, rec *telemetry.Recorder) error {
	client, err := open(ctx, sub)
	if err != nil {
		return tserr.Wrap("recoverer", tserr.TransportError, err)
	}
	defer client.Close()

	rec.SetStreamStatus(client.ID(), telemetry.StreamRunning)

	inbound, err := client.Open(ctx, sub)
	if err != nil {
		rec.SetStreamStatus(client.ID(), telemetry.StreamFailed)
		return tserr.Wrap("recoverer", tserr.TransportError, err)
	}

	for {
		select {
		case msg, ok := <-inbound:
			if !ok {
				rec.SetStreamStatus(client.ID(), telemetry.StreamCompleted)
				return nil
			}
			rec.RecordMessage(client.ID(), msg.PayloadBytes())
			if exc, rejected := msg.Exceptional(); rejected {
				rec.SetStreamStatus(client.ID(), telemetry.StreamFailed)
				return tserr.New("recoverer", tserr.RequestRejected, "%s", exc.Error())
			}
			select {
			case fifo <- msg:
			case <-ctx.Done():
				rec.SetStreamStatus(client.ID(), telemetry.StreamCancelled)
				return tserr.Wrap("recoverer", tserr.Cancelled, ctx.Err())
			}
		case <-ctx.Done():
			rec.SetStreamStatus(client.ID(), telemetry.StreamCancelled)
			return tserr.Wrap("recoverer", tserr.Cancelled, ctx.Err())
		}
	}
}
