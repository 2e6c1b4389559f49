// Package storage defines the persistence boundary of the pipeline.
package storage

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ml/internal/types"
)

// PriceQuery selects stored bars. Empty Symbols selects every symbol; zero times leave the
// range open on that side.
type PriceQuery struct {
	Symbols []string
	Start   time.Time
	End     time.Time
}

// Repository persists prices, models, predictions, labels, backtest results and run bookkeeping.
// Implementations return errors with ErrCodePersistenceFailed for storage failures.
//
//nolint:interfacebloat // one boundary for every entity the batch jobs touch
type Repository interface {
	// GetModel returns the latest version of the named model, if any.
	GetModel(ctx context.Context, name string) (optional.Option[types.ModelRecord], error)
	SaveModel(ctx context.Context, model types.ModelRecord) error
	// GetPrices returns bars ordered by symbol then time.
	GetPrices(ctx context.Context, query PriceQuery) ([]types.PriceBar, error)
	// SavePrices upserts bars by (symbol, timestamp).
	SavePrices(ctx context.Context, bars []types.PriceBar) error
	SavePredictions(ctx context.Context, predictions []types.Prediction) error
	SaveBacktestResult(ctx context.Context, result types.BacktestResult) error
	// SaveLabels upserts labels by (symbol, timestamp).
	SaveLabels(ctx context.Context, labels []types.LabelRecord) error
	// GetSymbols returns the stored ticker universe in ascending order.
	GetSymbols(ctx context.Context) ([]string, error)
	SaveSymbols(ctx context.Context, symbols []string) error
	// StartRun records a running job and returns it with a fresh id.
	StartRun(ctx context.Context, processName string) (types.Run, error)
	// StopRun records the final status and message of a run.
	StopRun(ctx context.Context, run types.Run) error
	Close() error
}

// Nullable maps NaN to nil so missing values are stored as NULL.
func Nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}

	return &v
}

// FromNullable maps a NULL back to NaN.
func FromNullable(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}

	return *v
}

// NullFloat is the SQL argument form of a possibly missing value.
func NullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

// FromNullFloat maps an invalid SQL value back to NaN.
func FromNullFloat(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}

	return v.Float64
}
