package indicator

import (
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// BollingerBands produces bands at SMA +/- multiplier * rolling standard deviation of close.
type BollingerBands struct {
	period     int
	multiplier float64
}

// NewBollingerBands creates a new Bollinger Bands indicator with default parameters.
func NewBollingerBands() Indicator {
	return &BollingerBands{
		period:     20,
		multiplier: 2.0,
	}
}

func (bb *BollingerBands) Name() IndicatorKind {
	return KindBollingerBands
}

func (bb *BollingerBands) Columns() []string {
	return []string{ColumnBBUpper, ColumnBBLower}
}

// Config configures the indicator. Expected parameters: period (int), multiplier (float64).
func (bb *BollingerBands) Config(params ...any) error {
	if len(params) != 2 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 2 parameters: period (int), multiplier (float64)")
	}

	period, err := intParam(params, 0, "period")
	if err != nil {
		return err
	}

	if period < 2 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "period must be at least 2, got %d", period)
	}

	multiplier, err := floatParam(params, 1, "multiplier")
	if err != nil {
		return err
	}

	bb.period = period
	bb.multiplier = multiplier

	return nil
}

func (bb *BollingerBands) Compute(bars []types.PriceBar) (Set, error) {
	if err := requireBars(bars, bb.Name()); err != nil {
		return nil, err
	}

	upper, lower := Bands(types.Closes(bars), bb.period, bb.multiplier)

	return Set{ColumnBBUpper: upper, ColumnBBLower: lower}, nil
}
