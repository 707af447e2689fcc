package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/ingest"
	"github.com/jfoltran/tsarchive/internal/config"
	"github.com/jfoltran/tsarchive/rpc"
)

// Ingest wires the write-path subsystem: IngestionFrame binning and the
// bidirectional Streaming Ingest Processor.
type Ingest struct {
	processor *ingest.Processor
	logger    zerolog.Logger
}

// NewIngest constructs an Ingest facade. cfg must already have passed Validate.
func NewIngest(cfg config.IngestConfig, logger zerolog.Logger) *Ingest {
	logger = logger.With().Str("component", "pipeline.ingest").Logger()
	return &Ingest{processor: ingest.New(cfg, logger), logger: logger}
}

// Run streams every frame from supplier to client, binning oversize
// frames per the processor's configured cap. coord may be nil; when set,
// it is notified of every acknowledgement so a caller's pending
// Coordinator.Drain resolves once the supplier catches up.
func (i *Ingest) Run(ctx context.Context, client rpc.BidiStreamClient, providerID string, supplier <-chan *tsarchive.IngestionFrame, coord *ingest.Coordinator) (ingest.Result, error) {
	return i.processor.Run(ctx, client, providerID, supplier, coord)
}

// State returns the underlying processor's lifecycle state.
func (i *Ingest) State() ingest.State { return i.processor.State() }

// NewCoordinator creates a drain Coordinator that injects sentinels into
// supplier, the same channel a subsequent Ingest.Run reads frames from.
func NewCoordinator(supplier chan<- *tsarchive.IngestionFrame, logger zerolog.Logger) *ingest.Coordinator {
	return ingest.NewCoordinator(supplier, logger.With().Str("component", "pipeline.ingest").Logger())
}
