package types

import (
	"math"
	"time"
)

// FeatureRow is one price row's base fields plus the selected indicator outputs.
type FeatureRow struct {
	Symbol    string
	Timestamp time.Time
	// Index is the row's position in its symbol's cleaned series.
	Index  int
	Values map[string]float64
	Label  Label
}

// Value returns the named column, NaN when absent.
func (r FeatureRow) Value(column string) float64 {
	v, ok := r.Values[column]
	if !ok {
		return math.NaN()
	}

	return v
}

// Close is shorthand for Value("close").
func (r FeatureRow) Close() float64 {
	return r.Value("close")
}

// Complete reports whether every listed column holds a finite number.
func (r FeatureRow) Complete(columns []string) bool {
	for _, column := range columns {
		v := r.Value(column)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// Vector returns the listed columns in order.
func (r FeatureRow) Vector(columns []string) []float64 {
	out := make([]float64, len(columns))
	for i, column := range columns {
		out[i] = r.Value(column)
	}

	return out
}

// WithLabel returns a copy of the row carrying label. Values are shared.
func (r FeatureRow) WithLabel(label Label) FeatureRow {
	r.Label = label

	return r
}
