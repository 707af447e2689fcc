// Package telemetry tracks the observables the multi-stream recoverer
// exposes while a recovery is in flight: processedMessageCount,
// processedByteCount, and per-stream completion status.
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// StreamStatus is the completion state of one inbound stream.
type StreamStatus string

const (
	StreamPending   StreamStatus = "pending"
	StreamRunning   StreamStatus = "running"
	StreamCompleted StreamStatus = "completed"
	StreamFailed    StreamStatus = "failed"
	StreamCancelled StreamStatus = "cancelled"
)

// Snapshot is the recoverer's observable state at a point in time.
type Snapshot struct {
	Timestamp            time.Time
	ProcessedMessageCount int64
	ProcessedByteCount    int64
	MessagesPerSec        float64
	BytesPerSec           float64
	Streams               map[string]StreamStatus
}

// Recorder aggregates the observables of one recovery session. It is safe
// for concurrent use by every stream goroutine in the recoverer's pool.
type Recorder struct {
	logger zerolog.Logger

	processedMessages atomic.Int64
	processedBytes    atomic.Int64

	mu      sync.RWMutex
	streams map[string]StreamStatus

	msgWindow  *slidingWindow
	byteWindow *slidingWindow
}

// NewRecorder creates a Recorder for streamIDs, all initialized to pending.
func NewRecorder(logger zerolog.Logger, streamIDs []string) *Recorder {
	r := &Recorder{
		logger:     logger.With().Str("component", "telemetry").Logger(),
		streams:    make(map[string]StreamStatus, len(streamIDs)),
		msgWindow:  newSlidingWindow(10 * time.Second),
		byteWindow: newSlidingWindow(10 * time.Second),
	}
	for _, id := range streamIDs {
		r.streams[id] = StreamPending
	}
	return r
}

// RecordMessage records one inbound message of payloadBytes on streamID.
func (r *Recorder) RecordMessage(streamID string, payloadBytes int64) {
	r.processedMessages.Add(1)
	r.processedBytes.Add(payloadBytes)
	now := time.Now()
	r.msgWindow.Add(now, 1)
	r.byteWindow.Add(now, float64(payloadBytes))
	r.SetStreamStatus(streamID, StreamRunning)
}

// SetStreamStatus updates the completion status of one stream.
func (r *Recorder) SetStreamStatus(streamID string, status StreamStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streams[streamID] = status
	r.logger.Debug().Str("stream", streamID).Str("status", string(status)).Msg("stream status changed")
}

// ProcessedMessageCount returns the total inbound message count so far.
func (r *Recorder) ProcessedMessageCount() int64 { return r.processedMessages.Load() }

// ProcessedByteCount returns the total inbound payload byte count so far.
func (r *Recorder) ProcessedByteCount() int64 { return r.processedBytes.Load() }

// Snapshot returns a point-in-time copy of the recorder's state.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	streams := make(map[string]StreamStatus, len(r.streams))
	for k, v := range r.streams {
		streams[k] = v
	}
	return Snapshot{
		Timestamp:             time.Now(),
		ProcessedMessageCount: r.processedMessages.Load(),
		ProcessedByteCount:    r.processedBytes.Load(),
		MessagesPerSec:        r.msgWindow.Rate(),
		BytesPerSec:           r.byteWindow.Rate(),
		Streams:               streams,
	}
}

// --- Sliding window for throughput calculation ---

type windowEntry struct {
	time  time.Time
	value float64
}

type slidingWindow struct {
	mu      sync.Mutex
	entries []windowEntry
	window  time.Duration
}

func newSlidingWindow(d time.Duration) *slidingWindow {
	return &slidingWindow{entries: make([]windowEntry, 0, 128), window: d}
}

func (w *slidingWindow) Add(t time.Time, val float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries = append(w.entries, windowEntry{time: t, value: val})
	w.evict(t)
}

func (w *slidingWindow) Rate() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	w.evict(now)
	if len(w.entries) == 0 {
		return 0
	}
	var total float64
	for _, e := range w.entries {
		total += e.value
	}
	elapsed := now.Sub(w.entries[0].time).Seconds()
	if elapsed < 1 {
		elapsed = 1
	}
	return total / elapsed
}

func (w *slidingWindow) evict(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.entries) && w.entries[i].time.Before(cutoff) {
		i++
	}
	if i > 0 {
		copy(w.entries, w.entries[i:])
		w.entries = w.entries[:len(w.entries)-i]
	}
}
