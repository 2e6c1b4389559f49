package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// ATR implements the Average True Range as a rolling mean of the true range.
type ATR struct {
	period int
}

// NewATR creates a new ATR indicator with default parameters.
func NewATR() Indicator {
	return &ATR{
		period: 14,
	}
}

// NewATRWithPeriod creates an ATR over period bars.
func NewATRWithPeriod(period int) *ATR {
	return &ATR{period: period}
}

func (a *ATR) Name() IndicatorKind {
	return KindATR
}

func (a *ATR) Columns() []string {
	return []string{ColumnATR}
}

// Config expects period (int).
func (a *ATR) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := intParam(params, 0, "period")
	if err != nil {
		return err
	}

	a.period = period

	return nil
}

func (a *ATR) Compute(bars []types.PriceBar) (Set, error) {
	if err := requireBars(bars, a.Name()); err != nil {
		return nil, err
	}

	high := make([]float64, len(bars))
	low := make([]float64, len(bars))

	for i, bar := range bars {
		high[i] = bar.High
		low[i] = bar.Low
	}

	return Set{ColumnATR: AverageTrueRange(high, low, types.Closes(bars), a.period)}, nil
}

// Latest returns the last defined ATR value of bars.
func (a *ATR) Latest(bars []types.PriceBar) (float64, error) {
	set, err := a.Compute(bars)
	if err != nil {
		return 0, err
	}

	series := set[ColumnATR]
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) {
			return series[i], nil
		}
	}

	return 0, errors.NewInsufficientDataErrorf(a.period, len(bars), bars[0].Symbol,
		"atr needs %d bars, got %d", a.period, len(bars))
}
