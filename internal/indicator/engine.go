package indicator

import (
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// Params holds the indicator parameters shared by a pipeline run.
type Params struct {
	Window       int     `yaml:"window" json:"window" jsonschema:"title=Window,description=Rolling window for bands and moving averages,default=20" validate:"gte=2"`
	BBMultiplier float64 `yaml:"bb_multiplier" json:"bb_multiplier" jsonschema:"title=Bollinger multiplier,default=2" validate:"gt=0"`
	MACDShort    int     `yaml:"macd_short" json:"macd_short" jsonschema:"title=MACD short span,default=12" validate:"gt=0"`
	MACDLong     int     `yaml:"macd_long" json:"macd_long" jsonschema:"title=MACD long span,default=26" validate:"gt=0"`
	MACDSignal   int     `yaml:"macd_signal" json:"macd_signal" jsonschema:"title=MACD signal span,default=9" validate:"gt=0"`
	RSIPeriod    int     `yaml:"rsi_period" json:"rsi_period" jsonschema:"title=RSI period,default=14" validate:"gt=0"`
	StochK       int     `yaml:"stoch_k" json:"stoch_k" jsonschema:"title=Stochastic %K period,default=14" validate:"gt=0"`
	StochD       int     `yaml:"stoch_d" json:"stoch_d" jsonschema:"title=Stochastic %D period,default=3" validate:"gt=0"`
	ATRPeriod    int     `yaml:"atr_period" json:"atr_period" jsonschema:"title=ATR period,default=14" validate:"gt=0"`
}

// DefaultParams returns window 20, bands at 2 std, MACD 12/26/9, RSI 14, stochastic 14/3, ATR 14.
func DefaultParams() Params {
	return Params{
		Window:       20,
		BBMultiplier: 2,
		MACDShort:    12,
		MACDLong:     26,
		MACDSignal:   9,
		RSIPeriod:    14,
		StochK:       14,
		StochD:       3,
		ATRPeriod:    14,
	}
}

// Validate reports the first invalid parameter as a configuration error.
func (p Params) Validate() error {
	if p.Window < 2 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "window must be at least 2, got %d", p.Window)
	}

	if p.BBMultiplier <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "bb multiplier must be positive, got %f", p.BBMultiplier)
	}

	periods := []struct {
		name  string
		value int
	}{
		{"macd short", p.MACDShort},
		{"macd long", p.MACDLong},
		{"macd signal", p.MACDSignal},
		{"rsi period", p.RSIPeriod},
		{"stoch k", p.StochK},
		{"stoch d", p.StochD},
		{"atr period", p.ATRPeriod},
	}

	for _, period := range periods {
		if period.value <= 0 {
			return errors.Newf(errors.ErrCodeInvalidPeriod, "%s must be positive, got %d", period.name, period.value)
		}
	}

	if p.MACDShort >= p.MACDLong {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "macd short (%d) must be less than macd long (%d)", p.MACDShort, p.MACDLong)
	}

	return nil
}

// Engine computes indicator sets from registered indicators.
type Engine struct {
	registry IndicatorRegistry
}

func NewEngine(registry IndicatorRegistry) *Engine {
	return &Engine{registry: registry}
}

// NewDefaultEngine builds an engine over NewDefaultRegistry(params).
func NewDefaultEngine(params Params) (*Engine, error) {
	registry, err := NewDefaultRegistry(params)
	if err != nil {
		return nil, err
	}

	return NewEngine(registry), nil
}

// Registry exposes the engine's registry.
func (e *Engine) Registry() IndicatorRegistry {
	return e.registry
}

// Compute runs every requested kind over bars and returns the union of their columns.
func (e *Engine) Compute(bars []types.PriceBar, kinds []IndicatorKind) (Set, error) {
	if len(bars) == 0 {
		return nil, errors.NewInsufficientDataError(1, 0, "", "cannot compute indicators on an empty series")
	}

	set := Set{}

	for _, kind := range kinds {
		indicator, err := e.registry.GetIndicator(kind)
		if err != nil {
			return nil, err
		}

		out, err := indicator.Compute(bars)
		if err != nil {
			return nil, err
		}

		set.Merge(out)
	}

	return set, nil
}
