// Package broker places orders for the trader job. PaperBroker simulates fills against quotes.
package broker

import (
	"context"
	"math"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ml/internal/logger"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Broker is the brokerage account used by the trader job.
type Broker interface {
	// Buy opens a position sized from available cash with a stop below entry derived from atr.
	// It returns None when a position in symbol is already open.
	Buy(ctx context.Context, symbol string, atr float64) (optional.Option[types.Order], error)
	// Sell closes the whole position at market.
	Sell(ctx context.Context, position types.Position) (types.Order, error)
	GetOpenPositions(ctx context.Context) ([]types.Position, error)
	GetOpenOrders(ctx context.Context) ([]types.Order, error)
}

// Quoter returns the latest tradable price for a symbol.
type Quoter interface {
	LatestPrice(ctx context.Context, symbol string) (float64, error)
}

// QuoterFunc adapts a function to Quoter.
type QuoterFunc func(ctx context.Context, symbol string) (float64, error)

func (f QuoterFunc) LatestPrice(ctx context.Context, symbol string) (float64, error) {
	return f(ctx, symbol)
}

// StopLoss is entry - multiplier*atr.
func StopLoss(entry, atr, multiplier float64) float64 {
	return entry - atr*multiplier
}

// Config configures the paper account.
type Config struct {
	// Cash is the starting balance.
	Cash float64 `yaml:"cash" json:"cash" jsonschema:"title=Starting cash,default=100000" validate:"gte=0"`
	// Allocation is the fraction of cash committed to one buy.
	Allocation float64 `yaml:"allocation" json:"allocation" jsonschema:"title=Fraction of cash per buy,default=0.25" validate:"gt=0,lte=1"`
	// StopMultiplier scales ATR below the entry price.
	StopMultiplier float64 `yaml:"stop_multiplier" json:"stop_multiplier" jsonschema:"title=ATR multiplier for the stop,default=2" validate:"gte=0"`
	// StatePath persists the account between runs when set.
	StatePath string `yaml:"state_path" json:"state_path" jsonschema:"title=Paper account state file"`
}

func DefaultConfig() Config {
	return Config{
		Cash:           100000,
		Allocation:     0.25,
		StopMultiplier: 2,
	}
}

type account struct {
	Cash      string           `yaml:"cash"`
	Positions []types.Position `yaml:"positions"`
	Orders    []types.Order    `yaml:"orders"`
}

// PaperBroker fills market orders immediately at the quoter's price.
type PaperBroker struct {
	mu        sync.Mutex
	config    Config
	quoter    Quoter
	logger    *logger.Logger
	cash      decimal.Decimal
	positions []types.Position
	orders    []types.Order
	now       func() time.Time
}

var _ Broker = (*PaperBroker)(nil)

// NewPaperBroker loads the account from config.StatePath when the file exists.
func NewPaperBroker(config Config, quoter Quoter, log *logger.Logger) (*PaperBroker, error) {
	if quoter == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "paper broker needs a quoter")
	}

	if config.Allocation <= 0 || config.Allocation > 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "allocation must be in (0, 1], got %v", config.Allocation)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	b := &PaperBroker{
		config: config,
		quoter: quoter,
		logger: log,
		cash:   decimal.NewFromFloat(config.Cash),
		now:    func() time.Time { return time.Now().UTC() },
	}

	if config.StatePath != "" {
		if err := b.load(); err != nil {
			return nil, err
		}
	}

	return b, nil
}

func (b *PaperBroker) load() error {
	data, err := os.ReadFile(b.config.StatePath)
	if os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return errors.Wrap(errors.ErrCodeBrokerFailed, "failed to read paper account", err)
	}

	var state account
	if err := yaml.Unmarshal(data, &state); err != nil {
		return errors.Wrap(errors.ErrCodeBrokerFailed, "failed to decode paper account", err)
	}

	cash, err := decimal.NewFromString(state.Cash)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBrokerFailed, "invalid paper account cash", err)
	}

	b.cash = cash
	b.positions = state.Positions
	b.orders = state.Orders

	return nil
}

func (b *PaperBroker) save() error {
	if b.config.StatePath == "" {
		return nil
	}

	data, err := yaml.Marshal(account{Cash: b.cash.String(), Positions: b.positions, Orders: b.orders})
	if err != nil {
		return errors.Wrap(errors.ErrCodeBrokerFailed, "failed to encode paper account", err)
	}

	if err := os.WriteFile(b.config.StatePath, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeBrokerFailed, "failed to write paper account", err)
	}

	return nil
}

// Cash returns the current balance.
func (b *PaperBroker) Cash() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cash
}

// Orders returns every order placed, oldest first.
func (b *PaperBroker) Orders() []types.Order {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]types.Order(nil), b.orders...)
}

func (b *PaperBroker) quote(ctx context.Context, symbol string) (float64, error) {
	price, err := b.quoter.LatestPrice(ctx, symbol)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeBrokerFailed, err, "failed to quote %s", symbol)
	}

	if math.IsNaN(price) || price <= 0 {
		return 0, errors.Newf(errors.ErrCodeBrokerFailed, "no valid quote for %s", symbol)
	}

	return price, nil
}

func (b *PaperBroker) Buy(ctx context.Context, symbol string, atr float64) (optional.Option[types.Order], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range b.positions {
		if p.Symbol == symbol {
			b.logger.Info("Position already open", zap.String("symbol", symbol))

			return optional.None[types.Order](), nil
		}
	}

	price, err := b.quote(ctx, symbol)
	if err != nil {
		return optional.None[types.Order](), err
	}

	budget := b.cash.Mul(decimal.NewFromFloat(b.config.Allocation))
	qty := budget.Div(decimal.NewFromFloat(price)).Floor()

	if qty.LessThan(decimal.NewFromInt(1)) {
		return optional.None[types.Order](), errors.Newf(errors.ErrCodeBrokerFailed,
			"insufficient cash %s to buy one share of %s at %v", b.cash.StringFixed(2), symbol, price)
	}

	stop := 0.0
	if !math.IsNaN(atr) && atr > 0 {
		stop = math.Max(0, StopLoss(price, atr, b.config.StopMultiplier))
	}

	now := b.now()
	order := types.Order{
		ID:        uuid.New().String(),
		Symbol:    symbol,
		Side:      types.PurchaseTypeBuy,
		Quantity:  qty.InexactFloat64(),
		Price:     price,
		StopPrice: stop,
		Status:    types.OrderStatusFilled,
		CreatedAt: now,
		FilledAt:  now,
	}

	if err := order.Validate(); err != nil {
		return optional.None[types.Order](), err
	}

	b.cash = b.cash.Sub(qty.Mul(decimal.NewFromFloat(price)))
	b.positions = append(b.positions, types.Position{
		Symbol:     symbol,
		Quantity:   order.Quantity,
		EntryPrice: price,
		StopPrice:  stop,
		OpenedAt:   now,
	})
	b.orders = append(b.orders, order)

	b.logger.Info("Placed buy order",
		zap.String("symbol", symbol),
		zap.Float64("quantity", order.Quantity),
		zap.Float64("price", price),
		zap.Float64("stop", stop),
	)

	return optional.Some(order), b.save()
}

func (b *PaperBroker) Sell(ctx context.Context, position types.Position) (types.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := -1

	for i, p := range b.positions {
		if p.Symbol == position.Symbol {
			idx = i

			break
		}
	}

	if idx < 0 {
		return types.Order{}, errors.Newf(errors.ErrCodeBrokerFailed, "no open position in %s", position.Symbol)
	}

	held := b.positions[idx]

	price, err := b.quote(ctx, held.Symbol)
	if err != nil {
		return types.Order{}, err
	}

	now := b.now()
	order := types.Order{
		ID:        uuid.New().String(),
		Symbol:    held.Symbol,
		Side:      types.PurchaseTypeSell,
		Quantity:  held.Quantity,
		Price:     price,
		Status:    types.OrderStatusFilled,
		CreatedAt: now,
		FilledAt:  now,
	}

	b.cash = b.cash.Add(decimal.NewFromFloat(held.MarketValue(price)))
	b.positions = append(b.positions[:idx], b.positions[idx+1:]...)
	b.orders = append(b.orders, order)

	b.logger.Info("Placed sell order",
		zap.String("symbol", held.Symbol),
		zap.Float64("quantity", held.Quantity),
		zap.Float64("price", price),
	)

	return order, b.save()
}

func (b *PaperBroker) GetOpenPositions(_ context.Context) ([]types.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]types.Position(nil), b.positions...), nil
}

// GetOpenOrders returns orders not yet filled. Paper fills are immediate so this is normally empty.
func (b *PaperBroker) GetOpenOrders(_ context.Context) ([]types.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var open []types.Order

	for _, o := range b.orders {
		if o.Status == types.OrderStatusPending {
			open = append(open, o)
		}
	}

	return open, nil
}
