// Package duckdb is a file-backed Repository for single-machine runs.
package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ml/internal/logger"
	"github.com/rxtech-lab/argo-ml/internal/storage"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"go.uber.org/zap"
)

// batchSize bounds the rows per INSERT statement.
const batchSize = 1000

var schema = []string{
	`CREATE TABLE IF NOT EXISTS stock_prices (
		symbol TEXT NOT NULL,
		time TIMESTAMP NOT NULL,
		open DOUBLE,
		high DOUBLE,
		low DOUBLE,
		close DOUBLE,
		volume DOUBLE,
		vwap DOUBLE,
		trade_count DOUBLE,
		PRIMARY KEY (symbol, time)
	)`,
	`CREATE TABLE IF NOT EXISTS tickers (
		symbol TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS ml_models (
		id TEXT PRIMARY KEY,
		model_name TEXT NOT NULL,
		model_kind TEXT NOT NULL,
		model_version INTEGER NOT NULL,
		training_date TIMESTAMP NOT NULL,
		accuracy_score DOUBLE,
		classification_report TEXT,
		features TEXT,
		model TEXT NOT NULL,
		additional_info TEXT,
		format_version TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS model_predictions (
		symbol TEXT NOT NULL,
		time TIMESTAMP NOT NULL,
		prediction TEXT NOT NULL,
		prediction_date TIMESTAMP NOT NULL,
		model_id TEXT NOT NULL,
		model_version INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ml_labels (
		symbol TEXT NOT NULL,
		time TIMESTAMP NOT NULL,
		label TEXT NOT NULL,
		PRIMARY KEY (symbol, time)
	)`,
	`CREATE TABLE IF NOT EXISTS backtesting_results (
		symbol TEXT NOT NULL,
		total_trades INTEGER NOT NULL,
		total_profit DOUBLE NOT NULL,
		average_profit DOUBLE NOT NULL,
		void_trades INTEGER NOT NULL,
		start_date TIMESTAMP,
		end_date TIMESTAMP,
		test_date TIMESTAMP NOT NULL,
		model_name TEXT,
		model_version INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		process_name TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		stopped_at TIMESTAMP,
		status TEXT NOT NULL,
		message TEXT
	)`,
}

// Repository stores everything in one DuckDB database.
type Repository struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository opens the database at path, creating the tables if needed. An empty path or
// ":memory:" opens an in-memory database.
func NewRepository(path string, log *logger.Logger) (*Repository, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		log.Error("Failed to open database", zap.String("path", path), zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to connect to database", err)
	}

	for _, statement := range schema {
		if _, err := db.Exec(statement); err != nil {
			db.Close()

			return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to create tables", err)
		}
	}

	return &Repository{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

func persistErr(message string, err error) error {
	return errors.Wrap(errors.ErrCodePersistenceFailed, message, err)
}

func (r *Repository) GetModel(ctx context.Context, name string) (optional.Option[types.ModelRecord], error) {
	row := r.sq.
		Select(
			"id", "model_name", "model_kind", "model_version", "training_date", "accuracy_score",
			"classification_report", "features", "model", "additional_info", "format_version",
		).
		From("ml_models").
		Where(squirrel.Eq{"model_name": name}).
		OrderBy("model_version DESC").
		Limit(1).
		RunWith(r.db).
		QueryRowContext(ctx)

	var (
		record   types.ModelRecord
		kind     string
		features sql.NullString
		report   sql.NullString
		info     sql.NullString
	)

	err := row.Scan(
		&record.ID, &record.Name, &kind, &record.Version, &record.TrainingDate, &record.Accuracy,
		&report, &features, &record.Payload, &info, &record.FormatVersion,
	)
	if err == sql.ErrNoRows {
		return optional.None[types.ModelRecord](), nil
	}

	if err != nil {
		return optional.None[types.ModelRecord](), persistErr("failed to query model", err)
	}

	record.Kind = types.ModelKind(kind)
	record.Report = report.String
	record.AdditionalInfo = info.String

	if features.Valid && features.String != "" {
		if err := json.Unmarshal([]byte(features.String), &record.Features); err != nil {
			return optional.None[types.ModelRecord](), persistErr("failed to decode model features", err)
		}
	}

	return optional.Some(record), nil
}

func (r *Repository) SaveModel(ctx context.Context, model types.ModelRecord) error {
	features, err := json.Marshal(model.Features)
	if err != nil {
		return persistErr("failed to encode model features", err)
	}

	_, err = r.sq.
		Insert("ml_models").
		Columns(
			"id", "model_name", "model_kind", "model_version", "training_date", "accuracy_score",
			"classification_report", "features", "model", "additional_info", "format_version",
		).
		Values(
			model.ID, model.Name, string(model.Kind), model.Version, model.TrainingDate, model.Accuracy,
			model.Report, string(features), model.Payload, model.AdditionalInfo, model.FormatVersion,
		).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return persistErr("failed to insert model", err)
	}

	r.logger.Debug("Saved model", zap.String("name", model.Name), zap.Int("version", model.Version))

	return nil
}

func (r *Repository) GetPrices(ctx context.Context, query storage.PriceQuery) ([]types.PriceBar, error) {
	builder := r.sq.
		Select("symbol", "time", "open", "high", "low", "close", "volume", "vwap", "trade_count").
		From("stock_prices").
		OrderBy("symbol ASC", "time ASC")

	if len(query.Symbols) > 0 {
		builder = builder.Where(squirrel.Eq{"symbol": query.Symbols})
	}

	if !query.Start.IsZero() {
		builder = builder.Where(squirrel.GtOrEq{"time": query.Start})
	}

	if !query.End.IsZero() {
		builder = builder.Where(squirrel.LtOrEq{"time": query.End})
	}

	rows, err := builder.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, persistErr("failed to query prices", err)
	}
	defer rows.Close()

	var bars []types.PriceBar

	for rows.Next() {
		var (
			bar    types.PriceBar
			values [7]sql.NullFloat64
		)

		if err := rows.Scan(&bar.Symbol, &bar.Timestamp, &values[0], &values[1], &values[2], &values[3], &values[4], &values[5], &values[6]); err != nil {
			return nil, persistErr("failed to scan price", err)
		}

		bar.Open = storage.FromNullFloat(values[0])
		bar.High = storage.FromNullFloat(values[1])
		bar.Low = storage.FromNullFloat(values[2])
		bar.Close = storage.FromNullFloat(values[3])
		bar.Volume = storage.FromNullFloat(values[4])
		bar.VWAP = storage.FromNullFloat(values[5])
		bar.TradeCount = storage.FromNullFloat(values[6])
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, persistErr("failed to read prices", err)
	}

	return bars, nil
}

// insertBatches runs one INSERT per batch of n rows inside a transaction.
func (r *Repository) insertBatches(ctx context.Context, n int, build func(start, end int) squirrel.InsertBuilder) error {
	if n == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistErr("failed to begin transaction", err)
	}

	for start := 0; start < n; start += batchSize {
		end := min(start+batchSize, n)

		if _, err := build(start, end).RunWith(tx).ExecContext(ctx); err != nil {
			_ = tx.Rollback()

			return persistErr("failed to insert rows", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return persistErr("failed to commit transaction", err)
	}

	return nil
}

func (r *Repository) SavePrices(ctx context.Context, bars []types.PriceBar) error {
	return r.insertBatches(ctx, len(bars), func(start, end int) squirrel.InsertBuilder {
		insert := r.sq.
			Insert("stock_prices").
			Options("OR REPLACE").
			Columns("symbol", "time", "open", "high", "low", "close", "volume", "vwap", "trade_count")

		for _, bar := range bars[start:end] {
			insert = insert.Values(
				bar.Symbol, bar.Timestamp,
				storage.NullFloat(bar.Open), storage.NullFloat(bar.High), storage.NullFloat(bar.Low),
				storage.NullFloat(bar.Close), storage.NullFloat(bar.Volume), storage.NullFloat(bar.VWAP),
				storage.NullFloat(bar.TradeCount),
			)
		}

		return insert
	})
}

func (r *Repository) SavePredictions(ctx context.Context, predictions []types.Prediction) error {
	return r.insertBatches(ctx, len(predictions), func(start, end int) squirrel.InsertBuilder {
		insert := r.sq.
			Insert("model_predictions").
			Columns("symbol", "time", "prediction", "prediction_date", "model_id", "model_version")

		for _, p := range predictions[start:end] {
			insert = insert.Values(p.Symbol, p.Timestamp, string(p.Prediction), p.PredictionDate, p.ModelID, p.ModelVersion)
		}

		return insert
	})
}

func (r *Repository) SaveLabels(ctx context.Context, labels []types.LabelRecord) error {
	return r.insertBatches(ctx, len(labels), func(start, end int) squirrel.InsertBuilder {
		insert := r.sq.
			Insert("ml_labels").
			Options("OR REPLACE").
			Columns("symbol", "time", "label")

		for _, l := range labels[start:end] {
			insert = insert.Values(l.Symbol, l.Timestamp, string(l.Label))
		}

		return insert
	})
}

func (r *Repository) SaveBacktestResult(ctx context.Context, result types.BacktestResult) error {
	_, err := r.sq.
		Insert("backtesting_results").
		Columns(
			"symbol", "total_trades", "total_profit", "average_profit", "void_trades",
			"start_date", "end_date", "test_date", "model_name", "model_version",
		).
		Values(
			result.Symbol, result.TotalTrades, result.TotalProfit, result.AverageProfit, result.VoidTrades,
			result.StartDate, result.EndDate, result.TestDate, result.ModelName, result.ModelVersion,
		).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return persistErr("failed to insert backtest result", err)
	}

	return nil
}

// GetBacktestResults returns stored results for symbol, oldest first.
func (r *Repository) GetBacktestResults(ctx context.Context, symbol string) ([]types.BacktestResult, error) {
	rows, err := r.sq.
		Select(
			"symbol", "total_trades", "total_profit", "average_profit", "void_trades",
			"start_date", "end_date", "test_date", "model_name", "model_version",
		).
		From("backtesting_results").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("test_date ASC").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, persistErr("failed to query backtest results", err)
	}
	defer rows.Close()

	var results []types.BacktestResult

	for rows.Next() {
		var result types.BacktestResult
		if err := rows.Scan(
			&result.Symbol, &result.TotalTrades, &result.TotalProfit, &result.AverageProfit, &result.VoidTrades,
			&result.StartDate, &result.EndDate, &result.TestDate, &result.ModelName, &result.ModelVersion,
		); err != nil {
			return nil, persistErr("failed to scan backtest result", err)
		}

		results = append(results, result)
	}

	return results, rows.Err()
}

// CountRows returns the number of rows in one of the repository's tables.
func (r *Repository) CountRows(ctx context.Context, table string) (int, error) {
	var count int

	err := r.sq.Select("COUNT(*)").From(table).RunWith(r.db).QueryRowContext(ctx).Scan(&count)
	if err != nil {
		return 0, persistErr("failed to count rows", err)
	}

	return count, nil
}

func (r *Repository) GetSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.sq.Select("symbol").From("tickers").OrderBy("symbol ASC").RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, persistErr("failed to query tickers", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, persistErr("failed to scan ticker", err)
		}

		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

func (r *Repository) SaveSymbols(ctx context.Context, symbols []string) error {
	return r.insertBatches(ctx, len(symbols), func(start, end int) squirrel.InsertBuilder {
		insert := r.sq.Insert("tickers").Options("OR REPLACE").Columns("symbol")
		for _, symbol := range symbols[start:end] {
			insert = insert.Values(symbol)
		}

		return insert
	})
}

func (r *Repository) StartRun(ctx context.Context, processName string) (types.Run, error) {
	run := types.Run{
		ID:          uuid.New().String(),
		ProcessName: processName,
		StartedAt:   time.Now().UTC(),
		Status:      types.RunStatusRunning,
	}

	_, err := r.sq.
		Insert("runs").
		Columns("run_id", "process_name", "started_at", "status").
		Values(run.ID, run.ProcessName, run.StartedAt, string(run.Status)).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return types.Run{}, persistErr("failed to start run", err)
	}

	return run, nil
}

func (r *Repository) StopRun(ctx context.Context, run types.Run) error {
	stoppedAt := run.StoppedAt
	if stoppedAt.IsZero() {
		stoppedAt = time.Now().UTC()
	}

	result, err := r.sq.
		Update("runs").
		Set("stopped_at", stoppedAt).
		Set("status", string(run.Status)).
		Set("message", run.Message).
		Where(squirrel.Eq{"run_id": run.ID}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return persistErr("failed to stop run", err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errors.Newf(errors.ErrCodePersistenceFailed, "run %s not found", run.ID)
	}

	return nil
}

// GetRun returns a stored run by id.
func (r *Repository) GetRun(ctx context.Context, id string) (optional.Option[types.Run], error) {
	var (
		run       types.Run
		status    string
		stoppedAt sql.NullTime
		message   sql.NullString
	)

	err := r.sq.
		Select("run_id", "process_name", "started_at", "stopped_at", "status", "message").
		From("runs").
		Where(squirrel.Eq{"run_id": id}).
		RunWith(r.db).
		QueryRowContext(ctx).
		Scan(&run.ID, &run.ProcessName, &run.StartedAt, &stoppedAt, &status, &message)
	if err == sql.ErrNoRows {
		return optional.None[types.Run](), nil
	}

	if err != nil {
		return optional.None[types.Run](), persistErr("failed to query run", err)
	}

	run.Status = types.RunStatus(status)
	run.StoppedAt = stoppedAt.Time
	run.Message = message.String

	return optional.Some(run), nil
}

func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}

	err := r.db.Close()
	r.db = nil

	return err
}
