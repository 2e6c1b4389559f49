// Package labeling assigns forward-looking buy/sell/hold labels to feature rows.
package labeling

import (
	"math"

	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// Config controls the label rule.
type Config struct {
	// LookForward is the number of rows between a row and the close it is compared against.
	LookForward int `yaml:"look_forward" json:"look_forward" jsonschema:"title=Look forward,description=Rows ahead used for the future close,default=5" validate:"gte=1"`
	// Threshold is the relative move that separates buy and sell from hold.
	Threshold float64 `yaml:"threshold" json:"threshold" jsonschema:"title=Threshold,description=Relative return threshold,default=0.03" validate:"gte=0"`
}

// DefaultConfig returns look forward 5 and threshold 3%.
func DefaultConfig() Config {
	return Config{
		LookForward: 5,
		Threshold:   0.03,
	}
}

// Validate rejects a look forward below one or a negative threshold.
func (c Config) Validate() error {
	if c.LookForward < 1 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "look forward must be at least 1, got %d", c.LookForward)
	}

	if c.Threshold < 0 || math.IsNaN(c.Threshold) {
		return errors.Newf(errors.ErrCodeInvalidThreshold, "threshold must be non-negative, got %f", c.Threshold)
	}

	return nil
}

// Generator labels rows by comparing each close with the close LookForward rows later.
type Generator struct {
	config Config
}

func NewGenerator(config Config) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Generator{config: config}, nil
}

func (g *Generator) Config() Config {
	return g.config
}

// Classify maps a relative return to a label: buy above t, sell below -t, hold otherwise.
// A NaN return has no label.
func Classify(r, t float64) types.Label {
	switch {
	case math.IsNaN(r):
		return types.LabelNone
	case r > t:
		return types.LabelBuy
	case r < -t:
		return types.LabelSell
	default:
		return types.LabelHold
	}
}

// Return is (future - close) / close. It is NaN when either price is missing or close is zero.
func Return(close, future float64) float64 {
	if math.IsNaN(close) || math.IsNaN(future) || close == 0 {
		return math.NaN()
	}

	return (future - close) / close
}

// Generate labels one symbol's ascending rows. The last LookForward rows have no future close and
// are not returned; rows whose close or future close is missing are dropped as well. The input is
// not modified. A series no longer than LookForward yields an empty result.
func (g *Generator) Generate(rows []types.FeatureRow) []types.FeatureRow {
	n := g.config.LookForward
	if len(rows) <= n {
		return []types.FeatureRow{}
	}

	labeled := make([]types.FeatureRow, 0, len(rows)-n)

	for i := 0; i+n < len(rows); i++ {
		label := Classify(Return(rows[i].Close(), rows[i+n].Close()), g.config.Threshold)
		if label == types.LabelNone {
			continue
		}

		labeled = append(labeled, rows[i].WithLabel(label))
	}

	return labeled
}

// GenerateBySymbol labels each symbol's series independently so no future close crosses a
// symbol boundary. Rows of a symbol must already be in ascending order; output follows the
// order in which symbols first appear.
func (g *Generator) GenerateBySymbol(rows []types.FeatureRow) []types.FeatureRow {
	var order []string

	groups := make(map[string][]types.FeatureRow)

	for _, row := range rows {
		if _, ok := groups[row.Symbol]; !ok {
			order = append(order, row.Symbol)
		}

		groups[row.Symbol] = append(groups[row.Symbol], row)
	}

	labeled := make([]types.FeatureRow, 0, len(rows))
	for _, symbol := range order {
		labeled = append(labeled, g.Generate(groups[symbol])...)
	}

	return labeled
}

// Records converts labeled rows into their persisted form.
func Records(rows []types.FeatureRow) []types.LabelRecord {
	records := make([]types.LabelRecord, 0, len(rows))

	for _, row := range rows {
		if row.Label == types.LabelNone {
			continue
		}

		records = append(records, types.LabelRecord{
			Symbol:    row.Symbol,
			Timestamp: row.Timestamp,
			Label:     row.Label,
		})
	}

	return records
}
