package rpc

import (
	"context"

	"github.com/jfoltran/tsarchive"
)

// FakeStreamClient is an in-memory StreamClient used by this package's own
// tests and by the recoverer suite, so that package never needs a real
// transport to exercise its logic.
type FakeStreamClient struct {
	id   string
	msgs []*QueryDataResponse
	// FailOpen, when set, makes Open return this error instead of streaming.
	FailOpen error
	closed   bool
}

// NewFakeStreamClient returns a FakeStreamClient that replays msgs in order
// on Open, then closes its channel.
func NewFakeStreamClient(id string, msgs []*QueryDataResponse) *FakeStreamClient {
	return &FakeStreamClient{id: id, msgs: msgs}
}

func (f *FakeStreamClient) ID() string { return f.id }

// Open replays the configured messages over a buffered channel.
func (f *FakeStreamClient) Open(ctx context.Context, req tsarchive.DataRequest) (<-chan *QueryDataResponse, error) {
	if f.FailOpen != nil {
		return nil, f.FailOpen
	}
	out := make(chan *QueryDataResponse, len(f.msgs))
	for _, m := range f.msgs {
		out <- m
	}
	close(out)
	return out, nil
}

func (f *FakeStreamClient) Close() error {
	f.closed = true
	return nil
}

// Closed reports whether Close was called, for test assertions.
func (f *FakeStreamClient) Closed() bool { return f.closed }
