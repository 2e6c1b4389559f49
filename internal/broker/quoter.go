package broker

import (
	"context"
	"math"
	"time"

	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"github.com/rxtech-lab/argo-ml/pkg/marketdata"
)

// SourceQuoter quotes the last close seen by a price source within Lookback of now.
type SourceQuoter struct {
	Source   marketdata.PriceSource
	Timespan marketdata.Timespan
	Lookback time.Duration
	Now      func() time.Time
}

func NewSourceQuoter(source marketdata.PriceSource, timespan marketdata.Timespan) *SourceQuoter {
	return &SourceQuoter{
		Source:   source,
		Timespan: timespan,
		Lookback: 7 * 24 * time.Hour,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (q *SourceQuoter) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	now := q.Now()

	result, err := q.Source.GetPrices(ctx, marketdata.PriceRequest{
		Symbols:  []string{symbol},
		Timespan: q.Timespan,
		Start:    now.Add(-q.Lookback),
		End:      now,
	})
	if err != nil {
		return 0, err
	}

	if failure, ok := result.Failures[symbol]; ok {
		return 0, failure
	}

	for i := len(result.Bars) - 1; i >= 0; i-- {
		bar := result.Bars[i]
		if bar.Symbol == symbol && !math.IsNaN(bar.Close) {
			return bar.Close, nil
		}
	}

	return 0, errors.Newf(errors.ErrCodePriceFetchFailed, "no recent close for %s", symbol)
}
