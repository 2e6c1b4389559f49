// Package cleaner fills gaps in price series and removes rows that cannot be used.
package cleaner

import (
	"math"

	"github.com/rxtech-lab/argo-ml/internal/logger"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"go.uber.org/zap"
)

// Mode selects how leading gaps are treated.
type Mode string

const (
	// ModeForwardFill carries the last seen value forward; leading gaps stay missing.
	ModeForwardFill Mode = "ffill"
	// ModeBackfill also fills leading gaps with the first value seen.
	ModeBackfill Mode = "backfill"
)

// ParseMode validates a configured mode. An empty string selects forward fill.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeForwardFill:
		return ModeForwardFill, nil
	case ModeBackfill:
		return ModeBackfill, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unknown cleaner mode %q", s)
	}
}

// Cleaner applies one Mode to every series it is given.
type Cleaner struct {
	mode   Mode
	logger *logger.Logger
}

func NewCleaner(mode Mode, log *logger.Logger) (*Cleaner, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Cleaner{mode: mode, logger: log}, nil
}

func (c *Cleaner) Mode() Mode {
	return c.mode
}

// Clean runs the configured mode over one symbol's ascending bars.
func (c *Cleaner) Clean(bars []types.PriceBar) ([]types.PriceBar, []int) {
	var (
		kept    []types.PriceBar
		indices []int
	)

	if c.mode == ModeBackfill {
		kept, indices = CleanBackfill(bars)
	} else {
		kept, indices = Clean(bars)
	}

	if dropped := len(bars) - len(kept); dropped > 0 {
		symbol := ""
		if len(bars) > 0 {
			symbol = bars[0].Symbol
		}

		c.logger.Debug("Dropped incomplete rows",
			zap.String("symbol", symbol),
			zap.Int("dropped", dropped),
			zap.Int("kept", len(kept)),
		)
	}

	return kept, indices
}

// Clean forward-fills every numeric field in row order and then drops rows still missing a
// close, open, volume or timestamp. Timestamps are never filled. The kept rows are returned
// with their positions in bars; positions are strictly increasing. bars is not modified.
func Clean(bars []types.PriceBar) ([]types.PriceBar, []int) {
	filled := copyBars(bars)
	forwardFill(filled)

	return dropIncomplete(filled)
}

// CleanBackfill is Clean with leading gaps back-filled from the first present value.
func CleanBackfill(bars []types.PriceBar) ([]types.PriceBar, []int) {
	filled := copyBars(bars)
	forwardFill(filled)
	backFill(filled)

	return dropIncomplete(filled)
}

func copyBars(bars []types.PriceBar) []types.PriceBar {
	return append([]types.PriceBar{}, bars...)
}

// fields returns pointers to the numeric fields of a bar in a fixed order.
func fields(bar *types.PriceBar) []*float64 {
	return []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume, &bar.VWAP, &bar.TradeCount}
}

const numFields = 7

func forwardFill(bars []types.PriceBar) {
	var last [numFields]float64
	for i := range last {
		last[i] = math.NaN()
	}

	for i := range bars {
		for j, field := range fields(&bars[i]) {
			if math.IsNaN(*field) {
				*field = last[j]
			} else {
				last[j] = *field
			}
		}
	}
}

func backFill(bars []types.PriceBar) {
	var next [numFields]float64
	for i := range next {
		next[i] = math.NaN()
	}

	for i := len(bars) - 1; i >= 0; i-- {
		for j, field := range fields(&bars[i]) {
			if math.IsNaN(*field) {
				*field = next[j]
			} else {
				next[j] = *field
			}
		}
	}
}

func dropIncomplete(bars []types.PriceBar) ([]types.PriceBar, []int) {
	kept := make([]types.PriceBar, 0, len(bars))
	indices := make([]int, 0, len(bars))

	for i, bar := range bars {
		if bar.Timestamp.IsZero() || math.IsNaN(bar.Close) || math.IsNaN(bar.Open) || math.IsNaN(bar.Volume) {
			continue
		}

		kept = append(kept, bar)
		indices = append(indices, i)
	}

	return kept, indices
}
