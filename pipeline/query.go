// Package pipeline wires the subsystem packages into two end-to-end
// facades: Query (decompose → recoverer → correlate → assemble →
// tablebuild) and Ingest (binning → the bidirectional streaming ingest
// processor).
package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/assemble"
	"github.com/jfoltran/tsarchive/correlate"
	"github.com/jfoltran/tsarchive/decompose"
	"github.com/jfoltran/tsarchive/internal/config"
	"github.com/jfoltran/tsarchive/recoverer"
	"github.com/jfoltran/tsarchive/tablebuild"
)

// Query wires the read-path subsystems under a shared configuration: the
// Request Decomposer, Multi-Stream Recoverer, Raw Correlator, Aggregate
// Assembler, and Table Builder.
type Query struct {
	decomposer    *decompose.Decomposer
	recoverer     *recoverer.Recoverer
	assembler     *assemble.Assembler
	builder       *tablebuild.Builder
	correlateCfg  config.CorrelateConfig
	logger        zerolog.Logger
}

// NewQuery constructs a Query facade. cfg must already have passed Validate.
func NewQuery(cfg config.Config, logger zerolog.Logger) *Query {
	logger = logger.With().Str("component", "pipeline.query").Logger()
	return &Query{
		decomposer:   decompose.New(cfg.Decomposition, logger),
		recoverer:    recoverer.New(cfg.MultiStream, logger),
		assembler:    assemble.New(cfg.Aggregate, logger),
		builder:      tablebuild.New(cfg.Table, logger),
		correlateCfg: cfg.Correlate,
		logger:       logger,
	}
}

// Run executes one end-to-end query: req is decomposed into subrequests,
// recovered over one stream per subrequest (opened via open, bounded to
// the recoverer's configured parallelism), correlated into
// RawCorrelatedBlocks, assembled into a SampledAggregate, and
// materialized into a ResultTable. A fresh Correlator is used per call,
// since package correlate documents its instances as not reusable across
// concurrent sessions.
func (q *Query) Run(ctx context.Context, req tsarchive.DataRequest, open recoverer.StreamOpener) (tsarchive.ResultTable, error) {
	subreqs, err := q.decomposer.Decompose(req)
	if err != nil {
		return nil, err
	}

	correlator := correlate.New(q.correlateCfg, q.logger)
	recovered, err := q.recoverer.Recover(ctx, subreqs, open, correlator)
	if err != nil {
		return nil, err
	}

	agg, err := q.assembler.Assemble(ctx, recovered.Blocks, req.TimeRange)
	if err != nil {
		return nil, err
	}

	return q.builder.Build(agg)
}
