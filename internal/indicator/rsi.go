package indicator

import (
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// RSI implements the Relative Strength Index over simple averages of gains and losses.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator with default parameters.
func NewRSI() Indicator {
	return &RSI{
		period: 14,
	}
}

func (r *RSI) Name() IndicatorKind {
	return KindRSI
}

func (r *RSI) Columns() []string {
	return []string{ColumnRSI}
}

// Config configures the RSI indicator. Expected parameters: period (int).
func (r *RSI) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 1 parameter: period (int)")
	}

	period, err := intParam(params, 0, "period")
	if err != nil {
		return err
	}

	r.period = period

	return nil
}

func (r *RSI) Compute(bars []types.PriceBar) (Set, error) {
	if err := requireBars(bars, r.Name()); err != nil {
		return nil, err
	}

	return Set{ColumnRSI: RelativeStrength(types.Closes(bars), r.period)}, nil
}
