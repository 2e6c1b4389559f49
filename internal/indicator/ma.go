package indicator

import (
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// MA is the simple moving average of close.
type MA struct {
	period int
}

func NewMA() Indicator {
	return &MA{period: 20}
}

func (m *MA) Name() IndicatorKind {
	return KindSMA
}

func (m *MA) Columns() []string {
	return []string{ColumnSMA}
}

// Config expects period (int).
func (m *MA) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := intParam(params, 0, "period")
	if err != nil {
		return err
	}

	m.period = period

	return nil
}

func (m *MA) Compute(bars []types.PriceBar) (Set, error) {
	if err := requireBars(bars, m.Name()); err != nil {
		return nil, err
	}

	return Set{ColumnSMA: SMA(types.Closes(bars), m.period)}, nil
}
