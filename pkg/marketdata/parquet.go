package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-ml/internal/logger"
	"github.com/rxtech-lab/argo-ml/internal/storage"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"github.com/rxtech-lab/argo-ml/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// ParquetSource reads bars from parquet files written by writer.ParquetWriter. Pattern may be a
// single file or a glob such as "data/*.parquet".
type ParquetSource struct {
	Pattern string
	logger  *logger.Logger
}

var _ PriceSource = (*ParquetSource)(nil)

func NewParquetSource(pattern string, log *logger.Logger) *ParquetSource {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &ParquetSource{Pattern: pattern, logger: log}
}

func (s *ParquetSource) query(request PriceRequest) (string, []any, error) {
	from := fmt.Sprintf("read_parquet('%s')", strings.ReplaceAll(s.Pattern, "'", "''"))

	q := squirrel.Select(strings.Split(writer.Columns, ", ")...).
		From(from).
		Where(squirrel.Eq{"symbol": request.Symbols}).
		OrderBy("symbol", "time")

	if !request.Start.IsZero() {
		q = q.Where(squirrel.GtOrEq{"time": request.Start.UTC()})
	}

	if !request.End.IsZero() {
		q = q.Where(squirrel.LtOrEq{"time": request.End.UTC()})
	}

	return q.ToSql()
}

// GetPrices ignores request.Timespan; files hold whatever bar size they were written with.
func (s *ParquetSource) GetPrices(ctx context.Context, request PriceRequest) (PriceResult, error) {
	if err := request.Validate(); err != nil {
		return PriceResult{}, err
	}

	result := PriceResult{Failures: make(map[string]error)}

	bars, err := s.read(ctx, request)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		s.logger.Warn("Failed to read parquet prices", zap.String("pattern", s.Pattern), zap.Error(err))

		for _, symbol := range request.Symbols {
			result.Failures[symbol] = errors.Wrapf(errors.ErrCodePriceFetchFailed, err, "failed to read prices for %s", symbol)
		}

		return result, nil
	}

	found := make(map[string]bool)
	for _, bar := range bars {
		found[bar.Symbol] = true
	}

	for _, symbol := range request.Symbols {
		if !found[symbol] {
			result.Failures[symbol] = errors.Newf(errors.ErrCodePriceFetchFailed, "no prices for %s in %s", symbol, s.Pattern)
		}
	}

	result.Bars = bars

	return result, nil
}

func (s *ParquetSource) read(ctx context.Context, request PriceRequest) ([]types.PriceBar, error) {
	query, args, err := s.query(request)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []types.PriceBar

	for rows.Next() {
		var bar types.PriceBar

		var open, high, low, closePrice, volume, vwap, tradeCount sql.NullFloat64

		if err := rows.Scan(&bar.Symbol, &bar.Timestamp, &open, &high, &low, &closePrice, &volume, &vwap, &tradeCount); err != nil {
			return nil, err
		}

		bar.Timestamp = bar.Timestamp.UTC()
		bar.Open = storage.FromNullFloat(open)
		bar.High = storage.FromNullFloat(high)
		bar.Low = storage.FromNullFloat(low)
		bar.Close = storage.FromNullFloat(closePrice)
		bar.Volume = storage.FromNullFloat(volume)
		bar.VWAP = storage.FromNullFloat(vwap)
		bar.TradeCount = storage.FromNullFloat(tradeCount)

		bars = append(bars, bar)
	}

	return bars, rows.Err()
}
