package writer

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-ml/internal/storage"
	"github.com/rxtech-lab/argo-ml/internal/types"
)

// Columns is the parquet layout shared with the parquet price source.
const Columns = "symbol, time, open, high, low, close, volume, vwap, trade_count"

// ParquetWriter stages bars in an in-memory DuckDB table and exports them as one parquet file.
type ParquetWriter struct {
	db         *sql.DB
	tx         *sql.Tx
	stmt       *sql.Stmt
	outputPath string
}

func NewParquetWriter(outputPath string) PriceWriter {
	return &ParquetWriter{
		outputPath: outputPath,
	}
}

func (w *ParquetWriter) Initialize() (err error) {
	w.db, err = sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS stock_prices (
			symbol TEXT,
			time TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			vwap DOUBLE,
			trade_count DOUBLE
		)
	`)
	if err != nil {
		w.db.Close()

		return fmt.Errorf("failed to create table: %w", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()

		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	w.stmt, err = w.tx.Prepare(fmt.Sprintf(`INSERT INTO stock_prices (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, Columns))
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return fmt.Errorf("failed to prepare statement: %w", err)
	}

	return nil
}

// Write stages one bar. Missing values are written as NULL.
func (w *ParquetWriter) Write(bar types.PriceBar) error {
	if w.stmt == nil {
		return fmt.Errorf("writer not initialized or statement is nil")
	}

	_, err := w.stmt.Exec(
		bar.Symbol,
		bar.Timestamp.UTC(),
		storage.NullFloat(bar.Open),
		storage.NullFloat(bar.High),
		storage.NullFloat(bar.Low),
		storage.NullFloat(bar.Close),
		storage.NullFloat(bar.Volume),
		storage.NullFloat(bar.VWAP),
		storage.NullFloat(bar.TradeCount),
	)
	if err != nil {
		return fmt.Errorf("failed to insert bar: %w", err)
	}

	return nil
}

// Finalize commits the staged bars and exports them, ordered by symbol and time.
func (w *ParquetWriter) Finalize() (outputPath string, err error) {
	if w.tx == nil {
		return "", fmt.Errorf("writer not initialized or transaction is nil")
	}

	if err = w.tx.Commit(); err != nil {
		w.tx.Rollback()

		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.tx = nil

	query := fmt.Sprintf(`COPY (SELECT * FROM stock_prices ORDER BY symbol, time) TO '%s' (FORMAT PARQUET)`,
		strings.ReplaceAll(w.outputPath, "'", "''"))
	if _, err = w.db.Exec(query); err != nil {
		return "", fmt.Errorf("failed to export to Parquet: %w", err)
	}

	return w.outputPath, nil
}

func (w *ParquetWriter) Close() error {
	var closeErrors []string

	if w.stmt != nil {
		if err := w.stmt.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Sprintf("failed to close statement: %v", err))
		}

		w.stmt = nil
	}

	// Finalize was not called or failed.
	if w.tx != nil {
		w.tx.Rollback()
		w.tx = nil
	}

	if w.db != nil {
		if err := w.db.Close(); err != nil {
			closeErrors = append(closeErrors, fmt.Sprintf("failed to close db connection: %v", err))
		}

		w.db = nil
	}

	if len(closeErrors) > 0 {
		return fmt.Errorf("errors occurred during close: %s", strings.Join(closeErrors, "; "))
	}

	return nil
}

func (w *ParquetWriter) GetOutputPath() string {
	return w.outputPath
}

// WriteParquet writes bars to path in one pass.
func WriteParquet(path string, bars []types.PriceBar) (err error) {
	w := NewParquetWriter(path)
	if err := w.Initialize(); err != nil {
		return err
	}

	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for _, bar := range bars {
		if err := w.Write(bar); err != nil {
			return err
		}
	}

	_, err = w.Finalize()

	return err
}
