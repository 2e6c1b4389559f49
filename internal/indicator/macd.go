package indicator

import (
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// MACD implements the Moving Average Convergence Divergence indicator.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a new MACD indicator with default parameters.
func NewMACD() Indicator {
	return &MACD{
		fastPeriod:   12, // Default fast period
		slowPeriod:   26, // Default slow period
		signalPeriod: 9,  // Default signal period
	}
}

func (m *MACD) Name() IndicatorKind {
	return KindMACD
}

func (m *MACD) Columns() []string {
	return []string{ColumnMACDLine, ColumnMACDSignal}
}

// Config configures the MACD indicator with the given parameters.
// Expected parameters: fastPeriod (int), slowPeriod (int), signalPeriod (int).
func (m *MACD) Config(params ...any) error {
	if len(params) != 3 {
		return errors.New(errors.ErrCodeMissingParameter, "Config expects 3 parameters: fastPeriod (int), slowPeriod (int), signalPeriod (int)")
	}

	fast, err := intParam(params, 0, "fastPeriod")
	if err != nil {
		return err
	}

	slow, err := intParam(params, 1, "slowPeriod")
	if err != nil {
		return err
	}

	signal, err := intParam(params, 2, "signalPeriod")
	if err != nil {
		return err
	}

	if fast >= slow {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "fastPeriod (%d) must be less than slowPeriod (%d)", fast, slow)
	}

	m.fastPeriod = fast
	m.slowPeriod = slow
	m.signalPeriod = signal

	return nil
}

func (m *MACD) Compute(bars []types.PriceBar) (Set, error) {
	if err := requireBars(bars, m.Name()); err != nil {
		return nil, err
	}

	line, signal := MACDLines(types.Closes(bars), m.fastPeriod, m.slowPeriod, m.signalPeriod)

	return Set{ColumnMACDLine: line, ColumnMACDSignal: signal}, nil
}
