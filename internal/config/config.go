// Package config defines the per-subsystem option structs the core
// consumes. Loading
// these structs from a file, environment, or flags is an external
// collaborator's concern; this package only validates what it is handed
// and supplies a Default configuration.
package config

import (
	"errors"
	"fmt"

	"github.com/jfoltran/tsarchive/internal/tserr"
)

// DecompositionStrategy selects the explicit decomposition axis.
type DecompositionStrategy string

const (
	StrategyHorizontal DecompositionStrategy = "horizontal"
	StrategyVertical   DecompositionStrategy = "vertical"
	StrategyGrid       DecompositionStrategy = "grid"
)

// DecompositionConfig gates and parameterizes the Request Decomposer.
type DecompositionConfig struct {
	Enabled      bool
	Auto         bool
	Strategy     DecompositionStrategy
	MaxPVs       int
	MaxDuration  int64 // seconds
	StreamCount  int   // target count when Auto is false
}

// Validate checks DecompositionConfig's invariants.
func (d DecompositionConfig) Validate() error {
	if !d.Enabled {
		return nil
	}
	var errs []error
	if d.Auto {
		if d.MaxPVs <= 0 {
			errs = append(errs, errors.New("decomposition.maxPvs must be > 0 when auto decomposition is enabled"))
		}
		if d.MaxDuration <= 0 {
			errs = append(errs, errors.New("decomposition.maxDuration must be > 0 when auto decomposition is enabled"))
		}
	} else {
		switch d.Strategy {
		case StrategyHorizontal, StrategyVertical, StrategyGrid:
		default:
			errs = append(errs, fmt.Errorf("decomposition.strategy %q is not one of horizontal|vertical|grid", d.Strategy))
		}
		if d.StreamCount <= 0 {
			errs = append(errs, errors.New("decomposition.streamCount must be > 0 for explicit decomposition"))
		}
	}
	return errors.Join(errs...)
}

// MultiStreamConfig parameterizes the Multi-Stream Recoverer's engagement
// decision and resource bounds.
type MultiStreamConfig struct {
	DomainSizeThreshold float64
	MaxStreams          int
	CorrelateWhileStreaming bool
	FIFOCapacity        int
}

// Validate checks MultiStreamConfig's invariants.
func (m MultiStreamConfig) Validate() error {
	var errs []error
	if m.MaxStreams < 1 {
		errs = append(errs, errors.New("multistream.maxStreams must be >= 1"))
	}
	if m.FIFOCapacity < 1 {
		errs = append(errs, errors.New("multistream.fifoCapacity must be >= 1"))
	}
	if m.DomainSizeThreshold < 0 {
		errs = append(errs, errors.New("multistream.domainSizeThreshold must be >= 0"))
	}
	return errors.Join(errs...)
}

// CorrelateConfig parameterizes the Raw Correlator's concurrency pivot.
type CorrelateConfig struct {
	ConcurrencyEnabled bool
	PivotSize          int
	MaxThreads         int
}

// Validate checks CorrelateConfig's invariants.
func (c CorrelateConfig) Validate() error {
	if !c.ConcurrencyEnabled {
		return nil
	}
	var errs []error
	if c.PivotSize <= 0 {
		errs = append(errs, errors.New("correlate.pivotSize must be > 0 when concurrency is enabled"))
	}
	if c.MaxThreads <= 0 {
		errs = append(errs, errors.New("correlate.maxThreads must be > 0 when concurrency is enabled"))
	}
	return errors.Join(errs...)
}

// AggregateConfig parameterizes the Aggregate Assembler.
type AggregateConfig struct {
	AdvancedErrorChecking       bool
	TimeDomainCollisionsEnabled bool
	ConcurrencyEnabled          bool
	PivotSize                   int
	MaxThreads                  int
}

// Validate checks AggregateConfig's invariants.
func (a AggregateConfig) Validate() error {
	if !a.ConcurrencyEnabled {
		return nil
	}
	var errs []error
	if a.PivotSize <= 0 {
		errs = append(errs, errors.New("aggregate.pivotSize must be > 0 when concurrency is enabled"))
	}
	if a.MaxThreads <= 0 {
		errs = append(errs, errors.New("aggregate.maxThreads must be > 0 when concurrency is enabled"))
	}
	return errors.Join(errs...)
}

// TableType selects ResultTable materialization.
type TableType string

const (
	TableStatic  TableType = "static"
	TableDynamic TableType = "dynamic"
	TableAuto    TableType = "auto"
)

// TableConfig parameterizes the Table Builder.
type TableConfig struct {
	Type                TableType
	StaticDefaultInAuto bool
	StaticMaxSizeEnabled bool
	StaticMaxSize       int64 // bytes
}

// Validate checks TableConfig's invariants.
func (t TableConfig) Validate() error {
	switch t.Type {
	case TableStatic, TableDynamic, TableAuto:
	default:
		return fmt.Errorf("table.type %q is not one of static|dynamic|auto", t.Type)
	}
	if t.StaticMaxSizeEnabled && t.StaticMaxSize <= 0 {
		return errors.New("table.staticMaxSize must be > 0 when staticMaxSizeEnabled is set")
	}
	return nil
}

// IngestConfig parameterizes binning and the streaming ingest processor.
type IngestConfig struct {
	QueueCapacity   int
	PollTimeoutMs   int64
	MaxFrameBytes   int64
}

// Validate checks IngestConfig's invariants.
func (i IngestConfig) Validate() error {
	var errs []error
	if i.QueueCapacity < 1 {
		errs = append(errs, errors.New("ingest.queueCapacity must be >= 1"))
	}
	if i.PollTimeoutMs <= 0 {
		errs = append(errs, errors.New("ingest.pollTimeoutMs must be > 0"))
	}
	if i.MaxFrameBytes <= 0 {
		errs = append(errs, errors.New("ingest.maxFrameBytes must be > 0"))
	}
	return errors.Join(errs...)
}

// LoggingConfig holds settings for structured logging.
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// Config is the top-level option tree the core consumes.
type Config struct {
	Decomposition DecompositionConfig
	MultiStream   MultiStreamConfig
	Correlate     CorrelateConfig
	Aggregate     AggregateConfig
	Table         TableConfig
	Ingest        IngestConfig
	Logging       LoggingConfig
}

// Validate runs every subsystem's Validate and joins the results, raised
// as ConfigInvalid: fatal before entering the streaming state.
func (c *Config) Validate() error {
	if err := errors.Join(
		c.Decomposition.Validate(),
		c.MultiStream.Validate(),
		c.Correlate.Validate(),
		c.Aggregate.Validate(),
		c.Table.Validate(),
		c.Ingest.Validate(),
	); err != nil {
		return tserr.Wrap("config", tserr.ConfigInvalid, err)
	}
	return nil
}

// Default returns a Config populated with conservative defaults. Nothing
// in the core substitutes it for a zero-value Config.
func Default() Config {
	return Config{
		Decomposition: DecompositionConfig{Enabled: false},
		MultiStream: MultiStreamConfig{
			DomainSizeThreshold: 1000,
			MaxStreams:          4,
			FIFOCapacity:        64,
		},
		Correlate: CorrelateConfig{
			ConcurrencyEnabled: true,
			PivotSize:          256,
			MaxThreads:         4,
		},
		Aggregate: AggregateConfig{
			TimeDomainCollisionsEnabled: true,
			ConcurrencyEnabled:          true,
			PivotSize:                   256,
			MaxThreads:                  4,
		},
		Table: TableConfig{
			Type:                TableAuto,
			StaticDefaultInAuto: true,
			StaticMaxSizeEnabled: true,
			StaticMaxSize:       64 << 20,
		},
		Ingest: IngestConfig{
			QueueCapacity: 32,
			PollTimeoutMs: 5000,
			MaxFrameBytes: 4 << 20,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}
