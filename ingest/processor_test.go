package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/config"
	"github.com/jfoltran/tsarchive/internal/tserr"
	"github.com/jfoltran/tsarchive/rpc"
)

// fakeBidiClient is an in-memory rpc.BidiStreamClient: every Send echoes
// an immediate acknowledgement, unless rejectUIDs names the request.
type fakeBidiClient struct {
	responses       chan *rpc.IngestDataResponse
	rejectUIDs      map[string]bool
	completeForward bool
	sendErr         error
}

func newFakeBidiClient(rejectUIDs map[string]bool) *fakeBidiClient {
	return &fakeBidiClient{
		responses:  make(chan *rpc.IngestDataResponse, 64),
		rejectUIDs: rejectUIDs,
	}
}

func (f *fakeBidiClient) ID() string { return "fake-bidi" }

func (f *fakeBidiClient) OpenQuery(ctx context.Context, req tsarchive.DataRequest) (<-chan *rpc.QueryDataResponse, error) {
	panic("not used by these tests")
}

func (f *fakeBidiClient) Send(ctx context.Context, req rpc.IngestDataRequest) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	if f.rejectUIDs[req.ClientRequestUID] {
		f.responses <- &rpc.IngestDataResponse{
			ClientRequestUID: req.ClientRequestUID,
			Exception:        &rpc.ExceptionalResult{Message: "rejected"},
		}
		return nil
	}
	f.responses <- &rpc.IngestDataResponse{ClientRequestUID: req.ClientRequestUID, Acknowledged: true}
	return nil
}

func (f *fakeBidiClient) Responses() <-chan *rpc.IngestDataResponse { return f.responses }

func (f *fakeBidiClient) CompleteForward(ctx context.Context) error {
	f.completeForward = true
	close(f.responses)
	return nil
}

func (f *fakeBidiClient) Close() error { return nil }

func testIngestConfig() config.IngestConfig {
	return config.IngestConfig{QueueCapacity: 8, PollTimeoutMs: 200, MaxFrameBytes: 1 << 20}
}

func TestProcessorRunCompletesOnDrainedSupplier(t *testing.T) {
	client := newFakeBidiClient(nil)
	supplier := make(chan *tsarchive.IngestionFrame, 4)
	supplier <- clockedFrame(t, 3, 1)
	supplier <- clockedFrame(t, 5, 2)
	close(supplier)

	p := New(testIngestConfig(), zerolog.Nop())
	result, err := p.Run(context.Background(), client, "provider-1", supplier, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FramesSent != 2 || result.FramesAcknowledged != 2 {
		t.Errorf("result = %+v, want FramesSent=2, FramesAcknowledged=2", result)
	}
	if !client.completeForward {
		t.Error("CompleteForward was never called")
	}
	if p.State() != StateCompleted {
		t.Errorf("State() = %v, want StateCompleted", p.State())
	}
}

func TestProcessorRunFailsOnRejectedAcknowledgement(t *testing.T) {
	frame := clockedFrame(t, 2, 1)
	uid := "will-be-rejected"
	meta := frame.Metadata()
	meta.ClientRequestUID = uid
	frame, err := tsarchive.NewClockedFrame(mustClock(t, frame), frame.Columns(), meta)
	if err != nil {
		t.Fatalf("NewClockedFrame: %v", err)
	}

	client := newFakeBidiClient(map[string]bool{uid: true})
	supplier := make(chan *tsarchive.IngestionFrame, 1)
	supplier <- frame
	close(supplier)

	p := New(testIngestConfig(), zerolog.Nop())
	_, err = p.Run(context.Background(), client, "provider-1", supplier, nil)
	if err == nil {
		t.Fatal("expected an error from a rejected acknowledgement")
	}
	if !tserr.Is(err, tserr.RequestRejected) {
		t.Errorf("err = %v, want RequestRejected", err)
	}
	if p.State() != StateFailed {
		t.Errorf("State() = %v, want StateFailed", p.State())
	}
}

func TestProcessorRunFailsOnSupplierStall(t *testing.T) {
	client := newFakeBidiClient(nil)
	supplier := make(chan *tsarchive.IngestionFrame) // never written to, never closed

	p := New(config.IngestConfig{QueueCapacity: 8, PollTimeoutMs: 20, MaxFrameBytes: 1 << 20}, zerolog.Nop())
	_, err := p.Run(context.Background(), client, "provider-1", supplier, nil)
	if err == nil {
		t.Fatal("expected an error from a stalled supplier")
	}
	if !tserr.Is(err, tserr.TransportError) {
		t.Errorf("err = %v, want TransportError", err)
	}
}

func TestProcessorRunBinsOversizeFrames(t *testing.T) {
	frame := clockedFrame(t, 100, 2)
	budget := EstimateBytes(frame) / 4

	client := newFakeBidiClient(nil)
	supplier := make(chan *tsarchive.IngestionFrame, 1)
	supplier <- frame
	close(supplier)

	p := New(config.IngestConfig{QueueCapacity: 8, PollTimeoutMs: 200, MaxFrameBytes: budget}, zerolog.Nop())
	result, err := p.Run(context.Background(), client, "provider-1", supplier, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FramesSent < 2 {
		t.Errorf("FramesSent = %d, want >= 2 (oversize frame should have been binned)", result.FramesSent)
	}
	if result.FramesSent != result.FramesAcknowledged {
		t.Errorf("FramesSent=%d != FramesAcknowledged=%d", result.FramesSent, result.FramesAcknowledged)
	}
}

func TestCoordinatorDrainResolvesOnAcknowledgement(t *testing.T) {
	client := newFakeBidiClient(nil)
	supplier := make(chan *tsarchive.IngestionFrame, 4)
	coord := NewCoordinator(supplier, zerolog.Nop())

	p := New(testIngestConfig(), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		p.Run(ctx, client, "provider-1", supplier, coord)
		close(done)
	}()

	if err := coord.Drain(ctx, time.Second); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	close(supplier)
	<-done
}

func mustClock(t *testing.T, f *tsarchive.IngestionFrame) tsarchive.SamplingClock {
	t.Helper()
	clock, ok := f.Clock()
	if !ok {
		t.Fatal("frame is not clock-indexed")
	}
	return clock
}
