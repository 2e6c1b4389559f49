// Package features assembles per-row feature vectors from price bars and indicator series.
package features

import (
	"github.com/rxtech-lab/argo-ml/internal/indicator"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// Base columns present in every feature row.
const (
	ColumnOpen       = "open"
	ColumnHigh       = "high"
	ColumnLow        = "low"
	ColumnClose      = "close"
	ColumnTradeCount = "trade_count"
	ColumnVolume     = "volume"
	ColumnVWAP       = "vwap"
)

// BaseColumns is the fixed base set, in column order.
var BaseColumns = []string{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnTradeCount, ColumnVolume, ColumnVWAP}

// Builder turns a symbol's bars into feature rows for a fixed indicator selection.
type Builder struct {
	engine  *indicator.Engine
	kinds   []indicator.IndicatorKind
	columns []string
}

// NewBuilder validates the selection against the engine's registry.
func NewBuilder(engine *indicator.Engine, kinds []indicator.IndicatorKind) (*Builder, error) {
	if engine == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "indicator engine is required")
	}

	columns := append([]string{}, BaseColumns...)
	seen := make(map[string]bool, len(columns))

	for _, column := range columns {
		seen[column] = true
	}

	for _, kind := range kinds {
		if _, err := indicator.ParseKind(string(kind)); err != nil {
			return nil, err
		}

		kindColumns, err := engine.Registry().Columns(kind)
		if err != nil {
			return nil, err
		}

		for _, column := range kindColumns {
			if seen[column] {
				continue
			}

			seen[column] = true
			columns = append(columns, column)
		}
	}

	return &Builder{
		engine:  engine,
		kinds:   append([]indicator.IndicatorKind{}, kinds...),
		columns: columns,
	}, nil
}

// NewBuilderFromNames parses indicator names and builds over a default engine.
func NewBuilderFromNames(names []string, params indicator.Params) (*Builder, error) {
	kinds, err := indicator.ParseKinds(names)
	if err != nil {
		return nil, err
	}

	engine, err := indicator.NewDefaultEngine(params)
	if err != nil {
		return nil, err
	}

	return NewBuilder(engine, kinds)
}

// Columns returns base columns followed by the selected indicator columns.
func (b *Builder) Columns() []string {
	return append([]string{}, b.columns...)
}

// Kinds returns the selected indicator kinds.
func (b *Builder) Kinds() []indicator.IndicatorKind {
	return append([]indicator.IndicatorKind{}, b.kinds...)
}

// Build computes the selected indicators over one symbol's ascending bars and returns one
// row per bar. Indicator warm-up rows carry NaN values.
func (b *Builder) Build(bars []types.PriceBar) ([]types.FeatureRow, error) {
	if len(bars) == 0 {
		return nil, errors.NewInsufficientDataError(1, 0, "", "cannot build features from an empty series")
	}

	set, err := b.engine.Compute(bars, b.kinds)
	if err != nil {
		return nil, err
	}

	rows := make([]types.FeatureRow, len(bars))

	for i, bar := range bars {
		values := map[string]float64{
			ColumnOpen:       bar.Open,
			ColumnHigh:       bar.High,
			ColumnLow:        bar.Low,
			ColumnClose:      bar.Close,
			ColumnTradeCount: bar.TradeCount,
			ColumnVolume:     bar.Volume,
			ColumnVWAP:       bar.VWAP,
		}

		// a selected vwap indicator replaces the bar's reported vwap
		for column := range set {
			values[column] = set.At(column, i)
		}

		rows[i] = types.FeatureRow{
			Symbol:    bar.Symbol,
			Timestamp: bar.Timestamp,
			Index:     i,
			Values:    values,
			Label:     types.LabelNone,
		}
	}

	return rows, nil
}
