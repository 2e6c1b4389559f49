package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// IndicatorKind is the closed set of indicator families a pipeline can select.
type IndicatorKind string

const (
	KindBollingerBands IndicatorKind = "bb"
	KindMACD           IndicatorKind = "macd"
	KindRSI            IndicatorKind = "rsi"
	KindStochastic     IndicatorKind = "stoch"
	KindEMA            IndicatorKind = "ema"
	KindSMA            IndicatorKind = "sma"
	KindVWAP           IndicatorKind = "vwap"
	// KindATR is only used for stop-loss sizing and never selected as a feature.
	KindATR IndicatorKind = "atr"
)

// Output column names.
const (
	ColumnBBUpper     = "bb_upper"
	ColumnBBLower     = "bb_lower"
	ColumnMACDLine    = "macd_line"
	ColumnMACDSignal  = "macd_signal"
	ColumnRSI         = "rsi"
	ColumnStochasticK = "stochastic_k"
	ColumnStochasticD = "stochastic_d"
	ColumnEMA         = "ema"
	ColumnSMA         = "sma"
	ColumnVWAP        = "vwap"
	ColumnATR         = "atr"
)

// FeatureKinds are the kinds that may appear in a feature configuration.
var FeatureKinds = []IndicatorKind{
	KindBollingerBands,
	KindMACD,
	KindRSI,
	KindStochastic,
	KindEMA,
	KindSMA,
	KindVWAP,
}

// ParseKind validates a configured indicator name.
func ParseKind(name string) (IndicatorKind, error) {
	for _, kind := range FeatureKinds {
		if string(kind) == name {
			return kind, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeUnknownIndicator, "unknown indicator %q", name)
}

// ParseKinds validates every name, failing on the first unknown one. Duplicates are dropped.
func ParseKinds(names []string) ([]IndicatorKind, error) {
	seen := make(map[IndicatorKind]bool, len(names))
	kinds := make([]IndicatorKind, 0, len(names))

	for _, name := range names {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, err
		}

		if seen[kind] {
			continue
		}

		seen[kind] = true
		kinds = append(kinds, kind)
	}

	return kinds, nil
}

// Set holds indicator output series keyed by column name. Every series is aligned
// index-for-index with the bars it was computed from.
type Set map[string][]float64

// Merge copies other's columns into s.
func (s Set) Merge(other Set) {
	for column, series := range other {
		s[column] = series
	}
}

// At returns column's value at index i, NaN when absent.
func (s Set) At(column string, i int) float64 {
	series, ok := s[column]
	if !ok || i < 0 || i >= len(series) {
		return math.NaN()
	}

	return series[i]
}

// Indicator computes one family of series over an ascending bar sequence.
type Indicator interface {
	// Name returns the kind of the indicator
	Name() IndicatorKind
	// Columns lists the series Compute returns
	Columns() []string
	// Compute returns the indicator series for bars
	Compute(bars []types.PriceBar) (Set, error)
	Config(params ...any) error
}

func intParam(params []any, i int, name string) (int, error) {
	v, ok := params[i].(int)
	if !ok {
		return 0, errors.Newf(errors.ErrCodeInvalidType, "invalid type for %s parameter, expected int", name)
	}

	if v <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "%s must be a positive integer, got %d", name, v)
	}

	return v, nil
}

func floatParam(params []any, i int, name string) (float64, error) {
	v, ok := params[i].(float64)
	if !ok {
		return 0, errors.Newf(errors.ErrCodeInvalidType, "invalid type for %s parameter, expected float64", name)
	}

	if v <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "%s must be a positive number, got %f", name, v)
	}

	return v, nil
}

func requireBars(bars []types.PriceBar, kind IndicatorKind) error {
	if len(bars) == 0 {
		return errors.NewInsufficientDataErrorf(1, 0, "", "%s requires at least one bar", kind)
	}

	return nil
}
