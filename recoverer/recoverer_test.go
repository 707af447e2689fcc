package recoverer

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/config"
	"github.com/jfoltran/tsarchive/internal/tserr"
	"github.com/jfoltran/tsarchive/rpc"
)

// passthroughCorrelator drains and records every message and returns no
// blocks, enough to exercise the recoverer's wiring without pulling in the
// real correlate package.
type passthroughCorrelator struct {
	seen []rpc.DataMessage
}

func (c *passthroughCorrelator) Correlate(ctx context.Context, messages <-chan rpc.DataMessage) ([]tsarchive.RawCorrelatedBlock, error) {
	for msg := range messages {
		c.seen = append(c.seen, msg)
	}
	return nil, nil
}

func mustSub(t *testing.T, id string, pv string) tsarchive.DataRequest {
	t.Helper()
	iv, err := tsarchive.NewTimeInterval(tsarchive.NewTimeInstant(0, 0), tsarchive.NewTimeInstant(10, 0))
	if err != nil {
		t.Fatalf("NewTimeInterval: %v", err)
	}
	req, err := tsarchive.NewDataRequest(id, []string{pv}, iv, tsarchive.StreamBackward)
	if err != nil {
		t.Fatalf("NewDataRequest: %v", err)
	}
	return req
}

func TestRecoverHappyPath(t *testing.T) {
	subs := []tsarchive.DataRequest{mustSub(t, "s1", "A"), mustSub(t, "s2", "B")}
	open := func(ctx context.Context, req tsarchive.DataRequest) (rpc.StreamClient, error) {
		return rpc.NewFakeStreamClient(req.RequestID, []*rpc.QueryDataResponse{
			{Stream: req.RequestID, SizeBytes: 10},
			{Stream: req.RequestID, SizeBytes: 20},
		}), nil
	}
	cfg := config.MultiStreamConfig{DomainSizeThreshold: 0, MaxStreams: 2, FIFOCapacity: 8}
	r := New(cfg, zerolog.Nop())
	corr := &passthroughCorrelator{}

	result, err := r.Recover(context.Background(), subs, open, corr)
	if err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if result.ProcessedMessageCount != 4 {
		t.Errorf("ProcessedMessageCount = %d, want 4", result.ProcessedMessageCount)
	}
	if result.ProcessedByteCount != 60 {
		t.Errorf("ProcessedByteCount = %d, want 60", result.ProcessedByteCount)
	}
	if len(corr.seen) != 4 {
		t.Errorf("correlator saw %d messages, want 4", len(corr.seen))
	}
}

// Scenario 5: request rejection.
func TestRecoverRequestRejectionCancelsPeers(t *testing.T) {
	subs := []tsarchive.DataRequest{mustSub(t, "s1", "A"), mustSub(t, "s2", "B")}
	open := func(ctx context.Context, req tsarchive.DataRequest) (rpc.StreamClient, error) {
		if req.RequestID == "s1" {
			return rpc.NewFakeStreamClient("s1", []*rpc.QueryDataResponse{
				{Stream: "s1", Exception: &rpc.ExceptionalResult{Code: codes.InvalidArgument, Message: "bad request"}},
			}), nil
		}
		// s2 blocks until ctx is cancelled, simulating an in-flight peer stream.
		return &blockingStreamClient{id: "s2"}, nil
	}
	cfg := config.MultiStreamConfig{DomainSizeThreshold: 0, MaxStreams: 2, FIFOCapacity: 8}
	r := New(cfg, zerolog.Nop())
	corr := &passthroughCorrelator{}

	result, err := r.Recover(context.Background(), subs, open, corr)
	if !tserr.Is(err, tserr.RequestRejected) {
		t.Fatalf("Recover error = %v, want RequestRejected", err)
	}
	if result.ProcessedMessageCount != 1 {
		t.Errorf("ProcessedMessageCount = %d, want 1", result.ProcessedMessageCount)
	}
}

// blockingStreamClient never produces a message; Open returns a channel
// that stays empty and closes only once ctx is cancelled, modeling a peer stream that must be cancelled by a sibling's
// fatal error.
type blockingStreamClient struct {
	id string
}

func (b *blockingStreamClient) ID() string { return b.id }

func (b *blockingStreamClient) Open(ctx context.Context, req tsarchive.DataRequest) (<-chan *rpc.QueryDataResponse, error) {
	out := make(chan *rpc.QueryDataResponse)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

func (b *blockingStreamClient) Close() error { return nil }

func TestEstimatedDomainSizeAndShouldMultiStream(t *testing.T) {
	req := mustSub(t, "s1", "A")
	size := EstimatedDomainSize(req)
	if size != 10 {
		t.Errorf("EstimatedDomainSize = %v, want 10", size)
	}
	if ShouldMultiStream(false, req, 1) {
		t.Errorf("ShouldMultiStream() = true when decomposition disabled")
	}
	if !ShouldMultiStream(true, req, 10) {
		t.Errorf("ShouldMultiStream() = false at threshold boundary")
	}
	if ShouldMultiStream(true, req, 11) {
		t.Errorf("ShouldMultiStream() = true below threshold")
	}
}

func TestRecoverTransportErrorSurfaces(t *testing.T) {
	subs := []tsarchive.DataRequest{mustSub(t, "s1", "A")}
	sentinel := tserr.New("rpc", tserr.TransportError, "dial failed")
	open := func(ctx context.Context, req tsarchive.DataRequest) (rpc.StreamClient, error) {
		return nil, sentinel
	}
	cfg := config.MultiStreamConfig{MaxStreams: 1, FIFOCapacity: 4}
	r := New(cfg, zerolog.Nop())

	_, err := r.Recover(context.Background(), subs, open, &passthroughCorrelator{})
	if !tserr.Is(err, tserr.TransportError) {
		t.Fatalf("Recover error = %v, want TransportError", err)
	}
}
