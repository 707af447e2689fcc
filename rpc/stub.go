package rpc

import (
	"context"
	"time"

	"github.com/jfoltran/tsarchive"
)

// StreamClient is a server-streaming query call: one outbound request,
// many inbound QueryDataResponse messages.
type StreamClient interface {
	// ID identifies the stream for telemetry and cancellation bookkeeping.
	ID() string
	// Open issues the outbound request and returns a channel of inbound
	// messages. The channel is closed when the server half completes or
	// ctx is cancelled.
	Open(ctx context.Context, req tsarchive.DataRequest) (<-chan *QueryDataResponse, error)
	// Close releases any resources held by the stream.
	Close() error
}

// BidiStreamClient pairs a forward half (outbound composite frames or
// requests) and a backward half (inbound acknowledgements or responses),
// used by the bidirectional stream type and the ingest pipeline.
type BidiStreamClient interface {
	ID() string
	// OpenQuery issues req on the forward half and returns the backward
	// half's inbound messages, used when StreamType is bidirectional.
	OpenQuery(ctx context.Context, req tsarchive.DataRequest) (<-chan *QueryDataResponse, error)
	// Send pushes one outbound ingest request on the forward half.
	Send(ctx context.Context, req IngestDataRequest) error
	// Responses returns the backward half's inbound acknowledgement channel.
	Responses() <-chan *IngestDataResponse
	// CompleteForward signals the forward half is done sending.
	CompleteForward(ctx context.Context) error
	Close() error
}

// ConnectionFactory opens connections to the archive service.
type ConnectionFactory interface {
	Open(ctx context.Context, target string, cfg ConnectionConfig) (Connection, error)
}

// ConnectionConfig parameterizes a Connection.
type ConnectionConfig struct {
	DialTimeout time.Duration
}

// Connection is a live link to the archive service, able to mint stubs
// for each of the three call shapes.
type Connection interface {
	StreamStub(req tsarchive.DataRequest) (StreamClient, error)
	BidiStub(providerUID string) (BidiStreamClient, error)
	AwaitTermination(ctx context.Context) error
	ShutdownSoft(ctx context.Context) error
	ShutdownNow() error
}
