package indicator

import (
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// Stochastic is the stochastic oscillator (%K and its %D smoothing).
type Stochastic struct {
	kPeriod int
	dPeriod int
}

func NewStochastic() Indicator {
	return &Stochastic{
		kPeriod: 14,
		dPeriod: 3,
	}
}

func (s *Stochastic) Name() IndicatorKind {
	return KindStochastic
}

func (s *Stochastic) Columns() []string {
	return []string{ColumnStochasticK, ColumnStochasticD}
}

// Config expects kPeriod (int) and dPeriod (int).
func (s *Stochastic) Config(params ...any) error {
	if len(params) != 2 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 2 parameters: kPeriod (int), dPeriod (int)")
	}

	k, err := intParam(params, 0, "kPeriod")
	if err != nil {
		return err
	}

	d, err := intParam(params, 1, "dPeriod")
	if err != nil {
		return err
	}

	s.kPeriod = k
	s.dPeriod = d

	return nil
}

func (s *Stochastic) Compute(bars []types.PriceBar) (Set, error) {
	if err := requireBars(bars, s.Name()); err != nil {
		return nil, err
	}

	high := make([]float64, len(bars))
	low := make([]float64, len(bars))

	for i, bar := range bars {
		high[i] = bar.High
		low[i] = bar.Low
	}

	k, d := StochasticOscillator(high, low, types.Closes(bars), s.kPeriod, s.dPeriod)

	return Set{ColumnStochasticK: k, ColumnStochasticD: d}, nil
}
