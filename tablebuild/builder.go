// Package tablebuild implements the Table Builder: it materializes a
// SampledAggregate into a ResultTable, choosing between static (flat,
// pre-coerced vectors) and dynamic (deferred, block-indexed) forms, and
// translates the table's sentinel errors into the shared tserr kinds.
package tablebuild

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/jfoltran/tsarchive"
	"github.com/jfoltran/tsarchive/internal/config"
	"github.com/jfoltran/tsarchive/internal/tserr"
)

// Builder runs the Table Builder under a shared configuration.
type Builder struct {
	cfg    config.TableConfig
	logger zerolog.Logger
}

// New constructs a Builder. cfg must already have passed Validate.
func New(cfg config.TableConfig, logger zerolog.Logger) *Builder {
	return &Builder{cfg: cfg, logger: logger.With().Str("component", "tablebuild").Logger()}
}

// Build materializes agg into a ResultTable per the configured type,
// resolving auto to static or dynamic by an estimated byte-size threshold
// when StaticMaxSizeEnabled is set, and by StaticDefaultInAuto otherwise.
func (b *Builder) Build(agg tsarchive.SampledAggregate) (tsarchive.ResultTable, error) {
	wantStatic, err := b.resolveWantStatic(agg)
	if err != nil {
		return nil, err
	}

	if wantStatic {
		table, err := tsarchive.NewStaticTable(agg)
		if err != nil {
			if errors.Is(err, tsarchive.ErrStaticTableTooBig) {
				return nil, tserr.Wrap("tablebuild", tserr.StaticSizeExceeded, err)
			}
			return nil, tserr.Wrap("tablebuild", tserr.CorruptMessage, err)
		}
		return &resultTable{inner: table}, nil
	}

	table, err := tsarchive.NewDynamicTable(agg)
	if err != nil {
		return nil, tserr.Wrap("tablebuild", tserr.CorruptMessage, err)
	}
	return &resultTable{inner: table}, nil
}

// resolveWantStatic decides static vs dynamic per the configured type,
// consulting the aggregate's estimated byte size only in auto mode.
func (b *Builder) resolveWantStatic(agg tsarchive.SampledAggregate) (bool, error) {
	switch b.cfg.Type {
	case config.TableStatic:
		return true, nil
	case config.TableDynamic:
		return false, nil
	case config.TableAuto:
		if !b.cfg.StaticMaxSizeEnabled {
			return b.cfg.StaticDefaultInAuto, nil
		}
		bytes := estimateBytes(agg)
		within := bytes <= b.cfg.StaticMaxSize
		b.logger.Debug().Int64("estimatedBytes", bytes).Int64("staticMaxSize", b.cfg.StaticMaxSize).Bool("static", within).Msg("auto table type resolved")
		return within, nil
	default:
		return false, tserr.New("tablebuild", tserr.ConfigInvalid, "unrecognized table type %q", b.cfg.Type)
	}
}

// resultTable adapts a tsarchive ResultTable, translating its sentinel errors
// into tserr kinds at the package boundary.
type resultTable struct {
	inner tsarchive.ResultTable
}

func (t *resultTable) ColumnNames() []string { return t.inner.ColumnNames() }
func (t *resultTable) RowCount() int64       { return t.inner.RowCount() }

func (t *resultTable) At(column string, row int64) (any, error) {
	v, err := t.inner.At(column, row)
	if err == nil {
		return v, nil
	}
	switch {
	case errors.Is(err, tsarchive.ErrUnknownColumn):
		return nil, tserr.Wrap("tablebuild", tserr.UnknownColumn, err)
	case errors.Is(err, tsarchive.ErrRowOutOfRange):
		return nil, tserr.Wrap("tablebuild", tserr.RowOutOfRange, err)
	default:
		return nil, tserr.Wrap("tablebuild", tserr.CorruptMessage, err)
	}
}
