package indicator

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// IndicatorRegistry maps each indicator kind to its configured computation.
type IndicatorRegistry interface {
	RegisterIndicator(indicator Indicator) error
	GetIndicator(name IndicatorKind) (Indicator, error)
	ListIndicators() []IndicatorKind
	RemoveIndicator(name IndicatorKind) error
	// Columns returns the output columns of a registered kind.
	Columns(name IndicatorKind) ([]string, error)
}

// IndicatorRegistryV1 manages all available indicators.
type IndicatorRegistryV1 struct {
	indicators map[IndicatorKind]Indicator
	mu         sync.RWMutex
}

// NewIndicatorRegistry creates an empty indicator registry.
func NewIndicatorRegistry() IndicatorRegistry {
	return &IndicatorRegistryV1{
		indicators: make(map[IndicatorKind]Indicator),
		mu:         sync.RWMutex{},
	}
}

// NewDefaultRegistry registers every indicator configured from params.
func NewDefaultRegistry(params Params) (IndicatorRegistry, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	type entry struct {
		indicator Indicator
		params    []any
	}

	entries := []entry{
		{NewBollingerBands(), []any{params.Window, params.BBMultiplier}},
		{NewMACD(), []any{params.MACDShort, params.MACDLong, params.MACDSignal}},
		{NewRSI(), []any{params.RSIPeriod}},
		{NewStochastic(), []any{params.StochK, params.StochD}},
		{NewEMA(), []any{params.Window}},
		{NewMA(), []any{params.Window}},
		{NewVWAP(), nil},
		{NewATR(), []any{params.ATRPeriod}},
	}

	registry := NewIndicatorRegistry()

	for _, e := range entries {
		if err := e.indicator.Config(e.params...); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to configure %s", e.indicator.Name())
		}

		if err := registry.RegisterIndicator(e.indicator); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// RegisterIndicator adds an indicator to the registry.
func (r *IndicatorRegistryV1) RegisterIndicator(indicator Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := indicator.Name()
	if _, exists := r.indicators[name]; exists {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "RegisterIndicator: indicator with name %s already registered", name)
	}

	r.indicators[name] = indicator

	return nil
}

// GetIndicator retrieves an indicator by name.
func (r *IndicatorRegistryV1) GetIndicator(name IndicatorKind) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indicator, exists := r.indicators[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeUnknownIndicator, "GetIndicator: indicator with name %s not found", name)
	}

	return indicator, nil
}

// ListIndicators returns the registered kinds in sorted order.
func (r *IndicatorRegistryV1) ListIndicators() []IndicatorKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]IndicatorKind, 0, len(r.indicators))
	for name := range r.indicators {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names
}

// RemoveIndicator removes an indicator from the registry.
func (r *IndicatorRegistryV1) RemoveIndicator(name IndicatorKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[name]; !exists {
		return errors.Newf(errors.ErrCodeUnknownIndicator, "RemoveIndicator: indicator with name %s not found", name)
	}

	delete(r.indicators, name)

	return nil
}

func (r *IndicatorRegistryV1) Columns(name IndicatorKind) ([]string, error) {
	indicator, err := r.GetIndicator(name)
	if err != nil {
		return nil, err
	}

	return indicator.Columns(), nil
}
