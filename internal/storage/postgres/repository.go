// Package postgres is a Repository backed by PostgreSQL stored procedures. Every call is
// "SELECT * FROM <schema>.<proc>($1::jsonb)" with one JSON argument object.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ml/internal/logger"
	"github.com/rxtech-lab/argo-ml/internal/storage"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"go.uber.org/zap"
)

const (
	stockSchema           = "stock"
	machineLearningSchema = "machine_learning"
	batchJobSchema        = "batch_job"
)

//go:embed schema.sql
var schemaSQL string

// Repository calls the stock, machine_learning and batch_job stored procedures.
type Repository struct {
	db     *sqlx.DB
	logger *logger.Logger
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository connects to dsn.
func NewRepository(dsn string, log *logger.Logger) (*Repository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to connect to postgres", err)
	}

	return NewRepositoryFromDB(db, log), nil
}

func NewRepositoryFromDB(db *sqlx.DB, log *logger.Logger) *Repository {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Repository{db: db, logger: log}
}

// Migrate creates the schemas, tables and procedures if they do not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to apply schema", err)
	}

	return nil
}

// ProcQuery returns the statement that calls schema.proc with one jsonb argument.
func ProcQuery(schema, proc string) string {
	return fmt.Sprintf("SELECT * FROM %s.%s($1::jsonb)", schema, proc)
}

func encodeArgs(args any) (string, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// insert calls a write procedure.
func (r *Repository) insert(ctx context.Context, schema, proc string, args any) error {
	payload, err := encodeArgs(args)
	if err != nil {
		return errors.Wrapf(errors.ErrCodePersistenceFailed, err, "failed to encode %s.%s arguments", schema, proc)
	}

	if _, err := r.db.ExecContext(ctx, ProcQuery(schema, proc), payload); err != nil {
		r.logger.Error("Stored procedure failed", zap.String("proc", schema+"."+proc), zap.Error(err))

		return errors.Wrapf(errors.ErrCodePersistenceFailed, err, "%s.%s failed", schema, proc)
	}

	return nil
}

// read calls a read procedure and scans every returned row into dest.
func (r *Repository) read(ctx context.Context, dest any, schema, proc string, args any) error {
	payload, err := encodeArgs(args)
	if err != nil {
		return errors.Wrapf(errors.ErrCodePersistenceFailed, err, "failed to encode %s.%s arguments", schema, proc)
	}

	if err := r.db.SelectContext(ctx, dest, ProcQuery(schema, proc), payload); err != nil {
		r.logger.Error("Stored procedure failed", zap.String("proc", schema+"."+proc), zap.Error(err))

		return errors.Wrapf(errors.ErrCodePersistenceFailed, err, "%s.%s failed", schema, proc)
	}

	return nil
}

type modelRow struct {
	ID             string          `db:"id"`
	Name           string          `db:"model_name"`
	Kind           string          `db:"model_kind"`
	Version        int             `db:"model_version"`
	TrainingDate   time.Time       `db:"training_date"`
	Accuracy       sql.NullFloat64 `db:"accuracy_score"`
	Report         sql.NullString  `db:"classification_report"`
	Features       sql.NullString  `db:"features"`
	Payload        string          `db:"model"`
	AdditionalInfo sql.NullString  `db:"additional_info"`
	FormatVersion  string          `db:"format_version"`
}

func (r *Repository) GetModel(ctx context.Context, name string) (optional.Option[types.ModelRecord], error) {
	var rows []modelRow
	if err := r.read(ctx, &rows, machineLearningSchema, "get_model", map[string]any{"model_name": name}); err != nil {
		return optional.None[types.ModelRecord](), err
	}

	if len(rows) == 0 {
		return optional.None[types.ModelRecord](), nil
	}

	row := rows[0]
	record := types.ModelRecord{
		ID:             row.ID,
		Name:           row.Name,
		Kind:           types.ModelKind(row.Kind),
		Version:        row.Version,
		TrainingDate:   row.TrainingDate,
		Accuracy:       row.Accuracy.Float64,
		Report:         row.Report.String,
		Payload:        row.Payload,
		AdditionalInfo: row.AdditionalInfo.String,
		FormatVersion:  row.FormatVersion,
	}

	if row.Features.Valid {
		if err := json.Unmarshal([]byte(row.Features.String), &record.Features); err != nil {
			return optional.None[types.ModelRecord](), errors.Wrap(errors.ErrCodePersistenceFailed, "failed to decode model features", err)
		}
	}

	return optional.Some(record), nil
}

// rawJSON passes s through as JSON, or null when it is empty or not valid JSON.
func rawJSON(s string) json.RawMessage {
	if s == "" || !json.Valid([]byte(s)) {
		return json.RawMessage("null")
	}

	return json.RawMessage(s)
}

type modelArgs struct {
	ID             string          `json:"id"`
	Name           string          `json:"model_name"`
	Kind           string          `json:"model_kind"`
	Version        int             `json:"model_version"`
	TrainingDate   time.Time       `json:"training_date"`
	Accuracy       float64         `json:"accuracy_score"`
	Report         json.RawMessage `json:"classification_report"`
	Features       []string        `json:"features"`
	Payload        string          `json:"model"`
	AdditionalInfo json.RawMessage `json:"additional_info"`
	FormatVersion  string          `json:"format_version"`
}

// ModelArgs is the argument object of machine_learning.insert_model.
func ModelArgs(model types.ModelRecord) map[string]any {
	return map[string]any{"ml_model": modelArgs{
		ID:             model.ID,
		Name:           model.Name,
		Kind:           string(model.Kind),
		Version:        model.Version,
		TrainingDate:   model.TrainingDate,
		Accuracy:       model.Accuracy,
		Report:         rawJSON(model.Report),
		Features:       model.Features,
		Payload:        model.Payload,
		AdditionalInfo: rawJSON(model.AdditionalInfo),
		FormatVersion:  model.FormatVersion,
	}}
}

func (r *Repository) SaveModel(ctx context.Context, model types.ModelRecord) error {
	return r.insert(ctx, machineLearningSchema, "insert_model", ModelArgs(model))
}

type priceRow struct {
	Symbol     string          `db:"symbol"`
	Timestamp  time.Time       `db:"timestamp"`
	Open       sql.NullFloat64 `db:"open"`
	High       sql.NullFloat64 `db:"high"`
	Low        sql.NullFloat64 `db:"low"`
	Close      sql.NullFloat64 `db:"close"`
	Volume     sql.NullFloat64 `db:"volume"`
	VWAP       sql.NullFloat64 `db:"vwap"`
	TradeCount sql.NullFloat64 `db:"trade_count"`
}

type priceArgs struct {
	Symbol     string    `json:"symbol"`
	Timestamp  time.Time `json:"timestamp"`
	Open       *float64  `json:"open"`
	High       *float64  `json:"high"`
	Low        *float64  `json:"low"`
	Close      *float64  `json:"close"`
	Volume     *float64  `json:"volume"`
	VWAP       *float64  `json:"vwap"`
	TradeCount *float64  `json:"trade_count"`
}

// PriceArgs is the argument object of stock.insert_stock_prices. Missing values become null.
func PriceArgs(bars []types.PriceBar) map[string]any {
	prices := make([]priceArgs, len(bars))
	for i, bar := range bars {
		prices[i] = priceArgs{
			Symbol:     bar.Symbol,
			Timestamp:  bar.Timestamp,
			Open:       storage.Nullable(bar.Open),
			High:       storage.Nullable(bar.High),
			Low:        storage.Nullable(bar.Low),
			Close:      storage.Nullable(bar.Close),
			Volume:     storage.Nullable(bar.Volume),
			VWAP:       storage.Nullable(bar.VWAP),
			TradeCount: storage.Nullable(bar.TradeCount),
		}
	}

	return map[string]any{"stock_prices": prices}
}

// PriceQueryArgs is the argument object of stock.get_stock_prices.
func PriceQueryArgs(query storage.PriceQuery) map[string]any {
	args := map[string]any{
		"symbols":        nil,
		"start_date":     nil,
		"end_date":       nil,
		"timeframe_unit": "day",
	}

	if len(query.Symbols) > 0 {
		args["symbols"] = query.Symbols
	}

	if !query.Start.IsZero() {
		args["start_date"] = query.Start
	}

	if !query.End.IsZero() {
		args["end_date"] = query.End
	}

	return args
}

func (r *Repository) GetPrices(ctx context.Context, query storage.PriceQuery) ([]types.PriceBar, error) {
	var rows []priceRow
	if err := r.read(ctx, &rows, stockSchema, "get_stock_prices", PriceQueryArgs(query)); err != nil {
		return nil, err
	}

	bars := make([]types.PriceBar, len(rows))
	for i, row := range rows {
		bars[i] = types.PriceBar{
			Symbol:     row.Symbol,
			Timestamp:  row.Timestamp.UTC(),
			Open:       storage.FromNullFloat(row.Open),
			High:       storage.FromNullFloat(row.High),
			Low:        storage.FromNullFloat(row.Low),
			Close:      storage.FromNullFloat(row.Close),
			Volume:     storage.FromNullFloat(row.Volume),
			VWAP:       storage.FromNullFloat(row.VWAP),
			TradeCount: storage.FromNullFloat(row.TradeCount),
		}
	}

	return bars, nil
}

func (r *Repository) SavePrices(ctx context.Context, bars []types.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	return r.insert(ctx, stockSchema, "insert_stock_prices", PriceArgs(bars))
}

func (r *Repository) SavePredictions(ctx context.Context, predictions []types.Prediction) error {
	if len(predictions) == 0 {
		return nil
	}

	return r.insert(ctx, machineLearningSchema, "insert_predictions", map[string]any{"predictions": predictions})
}

func (r *Repository) SaveLabels(ctx context.Context, labels []types.LabelRecord) error {
	if len(labels) == 0 {
		return nil
	}

	return r.insert(ctx, machineLearningSchema, "insert_labels", map[string]any{"label_data": labels})
}

func (r *Repository) SaveBacktestResult(ctx context.Context, result types.BacktestResult) error {
	return r.insert(ctx, machineLearningSchema, "insert_backtesting_results", map[string]any{"backtest_result": result})
}

func (r *Repository) GetSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	if err := r.read(ctx, &symbols, stockSchema, "get_tickers", map[string]any{"symbols": nil}); err != nil {
		return nil, err
	}

	return symbols, nil
}

func (r *Repository) SaveSymbols(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	return r.insert(ctx, stockSchema, "insert_tickers", map[string]any{"tickers": symbols})
}

func (r *Repository) StartRun(ctx context.Context, processName string) (types.Run, error) {
	run := types.Run{
		ID:          uuid.New().String(),
		ProcessName: processName,
		StartedAt:   time.Now().UTC(),
		Status:      types.RunStatusRunning,
	}

	var ids []string

	err := r.read(ctx, &ids, batchJobSchema, "run_start", map[string]any{
		"run_id":       run.ID,
		"process_name": run.ProcessName,
		"started_at":   run.StartedAt,
	})
	if err != nil {
		return types.Run{}, err
	}

	return run, nil
}

func (r *Repository) StopRun(ctx context.Context, run types.Run) error {
	stoppedAt := run.StoppedAt
	if stoppedAt.IsZero() {
		stoppedAt = time.Now().UTC()
	}

	var updated []int

	err := r.read(ctx, &updated, batchJobSchema, "run_stop", map[string]any{
		"run_id":     run.ID,
		"stopped_at": stoppedAt,
		"status":     run.Status,
		"message":    run.Message,
	})
	if err != nil {
		return err
	}

	if len(updated) == 0 || updated[0] == 0 {
		return errors.Newf(errors.ErrCodePersistenceFailed, "run %s not found", run.ID)
	}

	return nil
}

func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}

	return r.db.Close()
}
