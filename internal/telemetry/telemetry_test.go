package telemetry

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestRecorderRecordMessage(t *testing.T) {
	r := NewRecorder(zerolog.Nop(), []string{"s1", "s2"})
	r.RecordMessage("s1", 100)
	r.RecordMessage("s1", 200)

	if got := r.ProcessedMessageCount(); got != 2 {
		t.Errorf("ProcessedMessageCount() = %d, want 2", got)
	}
	if got := r.ProcessedByteCount(); got != 300 {
		t.Errorf("ProcessedByteCount() = %d, want 300", got)
	}
}

func TestRecorderStreamStatusTransitions(t *testing.T) {
	r := NewRecorder(zerolog.Nop(), []string{"s1", "s2"})
	snap := r.Snapshot()
	if snap.Streams["s1"] != StreamPending || snap.Streams["s2"] != StreamPending {
		t.Fatalf("expected both streams pending, got %v", snap.Streams)
	}

	r.RecordMessage("s1", 10)
	r.SetStreamStatus("s2", StreamFailed)

	snap = r.Snapshot()
	if snap.Streams["s1"] != StreamRunning {
		t.Errorf("Streams[s1] = %v, want running", snap.Streams["s1"])
	}
	if snap.Streams["s2"] != StreamFailed {
		t.Errorf("Streams[s2] = %v, want failed", snap.Streams["s2"])
	}
}

func TestRecorderConcurrentRecordMessage(t *testing.T) {
	r := NewRecorder(zerolog.Nop(), []string{"s1"})
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.RecordMessage("s1", 1)
		}()
	}
	wg.Wait()
	if got := r.ProcessedMessageCount(); got != 100 {
		t.Errorf("ProcessedMessageCount() = %d, want 100", got)
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	r := NewRecorder(zerolog.Nop(), []string{"s1"})
	snap := r.Snapshot()
	snap.Streams["s1"] = StreamFailed

	again := r.Snapshot()
	if again.Streams["s1"] != StreamPending {
		t.Errorf("mutating a returned Snapshot leaked into the Recorder's state")
	}
}
