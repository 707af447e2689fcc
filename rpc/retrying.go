package rpc

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/tserr"
)

// RetryConfig parameterizes RetryingStreamClient's reconnect loop. Recovery
// is local only for TransportError; every other error kind surfaces to the
// caller unchanged.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryConfig provides sane reconnect defaults for production use.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxRetries: 5, InitialDelay: 2 * time.Second, MaxDelay: 30 * time.Second}
}

// RetryingStreamClient wraps a factory that can mint a fresh StreamClient
// and reopens it with exponential backoff whenever the current one fails
// with a TransportError, rather than surfacing a transient disconnect to
// the recoverer.
type RetryingStreamClient struct {
	logger zerolog.Logger
	cfg    RetryConfig
	open   func(ctx context.Context) (StreamClient, error)
}

// NewRetryingStreamClient wraps open with a reconnect-with-backoff decorator.
func NewRetryingStreamClient(open func(ctx context.Context) (StreamClient, error), cfg RetryConfig, logger zerolog.Logger) *RetryingStreamClient {
	return &RetryingStreamClient{
		logger: logger.With().Str("component", "rpc-retry").Logger(),
		cfg:    cfg,
		open:   open,
	}
}

// OpenRetrying opens req, transparently reconnecting on TransportError up
// to cfg.MaxRetries times with exponential backoff. Inbound messages are
// forwarded on the first returned channel; a terminal error (a
// non-retryable kind such as RequestRejected, or the TransportError left
// once retries are exhausted) is sent on the second.
func (r *RetryingStreamClient) OpenRetrying(ctx context.Context, req tsarchive.DataRequest) (<-chan *QueryDataResponse, <-chan error) {
	out := make(chan *QueryDataResponse, 16)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		delay := r.cfg.InitialDelay
		retries := 0

		for {
			client, err := r.open(ctx)
			if err != nil {
				wrapped := err
				if tserr.KindOf(err) == "" {
					wrapped = tserr.Wrap("rpc", tserr.TransportError, err)
				}
				if !r.shouldRetry(ctx, wrapped, &retries, &delay) {
					errc <- wrapped
					return
				}
				continue
			}

			inbound, err := client.Open(ctx, req)
			if err != nil {
				client.Close()
				if !r.shouldRetry(ctx, err, &retries, &delay) {
					errc <- err
					return
				}
				continue
			}

			drained := r.drain(ctx, inbound, out)
			client.Close()
			if drained == nil {
				return
			}
			if !r.shouldRetry(ctx, drained, &retries, &delay) {
				errc <- drained
				return
			}
		}
	}()

	return out, errc
}

// drain forwards every message from inbound to out until inbound closes or
// ctx is cancelled, returning the stream's terminal error (nil on a clean close).
func (r *RetryingStreamClient) drain(ctx context.Context, inbound <-chan *QueryDataResponse, out chan<- *QueryDataResponse) error {
	for {
		select {
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *RetryingStreamClient) shouldRetry(ctx context.Context, err error, retries *int, delay *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !tserr.Is(err, tserr.TransportError) {
		return false
	}
	*retries++
	if *retries > r.cfg.MaxRetries {
		return false
	}
	r.logger.Warn().Err(err).Int("retry", *retries).Int("max_retries", r.cfg.MaxRetries).Dur("delay", *delay).Msg("stream failed, reconnecting")

	select {
	case <-ctx.Done():
		return false
	case <-time.After(*delay):
	}
	*delay = min(*delay*2, r.cfg.MaxDelay)
	return true
}
