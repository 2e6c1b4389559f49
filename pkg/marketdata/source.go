// Package marketdata fetches daily or intraday price bars for a list of symbols.
package marketdata

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// PriceRequest selects bars for symbols over [Start, End].
type PriceRequest struct {
	Symbols  []string
	Timespan Timespan
	Start    time.Time
	End      time.Time
}

// Validate checks that symbols are given and the range is ordered.
func (r PriceRequest) Validate() error {
	if len(r.Symbols) == 0 {
		return errors.New(errors.ErrCodeMissingParameter, "no symbols requested")
	}

	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return errors.Newf(errors.ErrCodeInvalidParameter, "end %s is before start %s",
			r.End.Format(time.DateOnly), r.Start.Format(time.DateOnly))
	}

	return nil
}

// PriceResult holds the bars of every symbol that succeeded and the error of every symbol that did not.
type PriceResult struct {
	Bars     []types.PriceBar
	Failures map[string]error
}

// Failed reports whether symbol could not be fetched.
func (r PriceResult) Failed(symbol string) bool {
	_, ok := r.Failures[symbol]

	return ok
}

// PriceSource supplies historical bars. A failing symbol is recorded in PriceResult.Failures
// and does not fail the request; the returned error is reserved for an invalid request or a
// cancelled context.
type PriceSource interface {
	GetPrices(ctx context.Context, request PriceRequest) (PriceResult, error)
}
