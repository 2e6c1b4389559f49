package indicator

import (
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// CumulativeVWAP is the running volume weighted average price from the start of the series.
type CumulativeVWAP struct{}

func NewVWAP() Indicator {
	return &CumulativeVWAP{}
}

func (v *CumulativeVWAP) Name() IndicatorKind {
	return KindVWAP
}

func (v *CumulativeVWAP) Columns() []string {
	return []string{ColumnVWAP}
}

// Config takes no parameters.
func (v *CumulativeVWAP) Config(params ...any) error {
	if len(params) != 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects no parameters")
	}

	return nil
}

func (v *CumulativeVWAP) Compute(bars []types.PriceBar) (Set, error) {
	if err := requireBars(bars, v.Name()); err != nil {
		return nil, err
	}

	volumes := make([]float64, len(bars))
	for i, bar := range bars {
		volumes[i] = bar.Volume
	}

	return Set{ColumnVWAP: VWAP(types.Closes(bars), volumes)}, nil
}
