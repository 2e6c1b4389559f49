package indicator

import (
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// EMA is the exponential moving average of close.
type EMA struct {
	period int
}

func NewEMA() Indicator {
	return &EMA{period: 20}
}

func (e *EMA) Name() IndicatorKind {
	return KindEMA
}

func (e *EMA) Columns() []string {
	return []string{ColumnEMA}
}

// Config expects period (int), used as the span.
func (e *EMA) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := intParam(params, 0, "period")
	if err != nil {
		return err
	}

	e.period = period

	return nil
}

func (e *EMA) Compute(bars []types.PriceBar) (Set, error) {
	if err := requireBars(bars, e.Name()); err != nil {
		return nil, err
	}

	return Set{ColumnEMA: ExponentialMA(types.Closes(bars), e.period)}, nil
}
