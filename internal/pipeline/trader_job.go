package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ml/internal/config"
	"github.com/rxtech-lab/argo-ml/internal/indicator"
	"github.com/rxtech-lab/argo-ml/internal/ml"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"go.uber.org/zap"
)

// TradeDecision is what one run_trader_bot run did.
type TradeDecision struct {
	RunID string
	// Symbol is the symbol acted on or held, empty when the scan found nothing to buy.
	Symbol string
	// Prediction is the model output for Symbol's latest complete row.
	Prediction types.Label
	Order      optional.Option[types.Order]
}

// TraderJob makes one trading decision with a stored model: enter the first watchlist symbol
// predicted buy when flat, or exit the held position when it is predicted sell.
type TraderJob struct {
	config     config.Config
	deps       Dependencies
	preparer   *Preparer
	atr        *indicator.ATR
	modelName  string
	onProgress OnProgress
}

func NewTraderJob(c config.Config, deps Dependencies) (*TraderJob, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}

	if deps.Broker == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "broker is required")
	}

	preparer, err := NewPreparer(c, deps.Logger)
	if err != nil {
		return nil, err
	}

	return &TraderJob{
		config:    c,
		deps:      deps,
		preparer:  preparer,
		atr:       indicator.NewATRWithPeriod(c.Indicators.ATRPeriod),
		modelName: ml.ModelName(c.Trainer.Kind, preparer.Kinds()),
	}, nil
}

func (j *TraderJob) SetOnProgress(fn OnProgress) {
	j.onProgress = fn
}

func (j *TraderJob) Run(ctx context.Context) (TradeDecision, error) {
	decision := TradeDecision{Order: optional.None[types.Order]()}

	run, err := j.deps.track(ctx, ProcessTrader, func(_ types.Run) error {
		return j.run(ctx, &decision)
	})
	decision.RunID = run.ID

	return decision, err
}

func (j *TraderJob) run(ctx context.Context, decision *TradeDecision) error {
	model, err := j.loadModel(ctx)
	if err != nil {
		return err
	}

	positions, err := j.deps.Broker.GetOpenPositions(ctx)
	if err != nil {
		return err
	}

	if len(positions) == 0 {
		return j.enter(ctx, model, decision)
	}

	return j.exit(ctx, model, positions[0], decision)
}

func (j *TraderJob) loadModel(ctx context.Context) (*ml.TrainedModel, error) {
	stored, err := j.deps.Repository.GetModel(ctx, j.modelName)
	if err != nil {
		return nil, err
	}

	if stored.IsNone() {
		return nil, errors.Newf(errors.ErrCodeModelNotTrained, "no stored model named %s, run backtest first", j.modelName)
	}

	return ml.Decode(stored.Unwrap())
}

// enter scans the watchlist in order and buys the first symbol predicted buy.
func (j *TraderJob) enter(ctx context.Context, model *ml.TrainedModel, decision *TradeDecision) error {
	symbols, err := j.deps.symbols(ctx, j.config.Pipeline.Symbols)
	if err != nil {
		return err
	}

	req, err := request(j.config.Pipeline, symbols, j.deps.Now())
	if err != nil {
		return err
	}

	fetched, groups, _, err := j.deps.fetch(ctx, ProcessTrader, req)
	if err != nil {
		return err
	}

	for i, symbol := range fetched {
		progress(j.onProgress, i+1, len(fetched), fmt.Sprintf("scanning %s", symbol))

		bars, label, err := j.predict(symbol, groups[symbol], model)
		if err != nil {
			j.skip(symbol, err)

			continue
		}

		if label != types.LabelBuy {
			continue
		}

		atr, err := j.atr.Latest(bars)
		if err != nil {
			j.skip(symbol, err)

			continue
		}

		order, err := j.deps.Broker.Buy(ctx, symbol, atr)
		if err != nil {
			if !errors.IsExternalServiceError(err) {
				return err
			}

			j.skip(symbol, err)

			continue
		}

		decision.Symbol = symbol
		decision.Prediction = label
		decision.Order = order

		if order.IsSome() {
			placed := order.Unwrap()
			j.deps.Metrics.RecordOrder(strings.ToLower(string(placed.Side)))
			j.deps.Logger.Info("Bought",
				zap.String("symbol", symbol),
				zap.Float64("quantity", placed.Quantity),
				zap.Float64("price", placed.Price),
				zap.Float64("stop", placed.StopPrice),
			)
		}

		return nil
	}

	j.deps.Logger.Info("No buy signal on the watchlist", zap.Int("symbols", len(fetched)))

	return nil
}

// exit sells position when its latest prediction is sell and no order for it is pending.
func (j *TraderJob) exit(ctx context.Context, model *ml.TrainedModel, position types.Position,
	decision *TradeDecision,
) error {
	decision.Symbol = position.Symbol

	orders, err := j.deps.Broker.GetOpenOrders(ctx)
	if err != nil {
		return err
	}

	for _, order := range orders {
		if order.Symbol == position.Symbol {
			j.deps.Logger.Info("Order pending, holding position",
				zap.String("symbol", position.Symbol), zap.String("order_id", order.ID))

			return nil
		}
	}

	req, err := request(j.config.Pipeline, []string{position.Symbol}, j.deps.Now())
	if err != nil {
		return err
	}

	_, groups, failed, err := j.deps.fetch(ctx, ProcessTrader, req)
	if err != nil {
		return err
	}

	if err, ok := failed[position.Symbol]; ok {
		return err
	}

	_, label, err := j.predict(position.Symbol, groups[position.Symbol], model)
	if err != nil {
		return err
	}

	decision.Prediction = label
	progress(j.onProgress, 1, 1, fmt.Sprintf("%s predicted %s", position.Symbol, label))

	if label != types.LabelSell {
		return nil
	}

	order, err := j.deps.Broker.Sell(ctx, position)
	if err != nil {
		return err
	}

	decision.Order = optional.Some(order)
	j.deps.Metrics.RecordOrder(strings.ToLower(string(order.Side)))
	j.deps.Logger.Info("Sold",
		zap.String("symbol", position.Symbol),
		zap.Float64("quantity", order.Quantity),
		zap.Float64("price", order.Price),
	)

	return nil
}

// predict returns the cleaned bars of symbol and the prediction for its latest complete row.
func (j *TraderJob) predict(symbol string, bars []types.PriceBar, model *ml.TrainedModel) (
	[]types.PriceBar, types.Label, error,
) {
	cleaned, rows, err := j.preparer.Features(symbol, bars)
	if err != nil {
		return nil, types.LabelNone, err
	}

	for i := len(rows) - 1; i >= 0; i-- {
		if label, ok := model.Predict(rows[i]); ok {
			return cleaned, label, nil
		}
	}

	return nil, types.LabelNone, errors.NewInsufficientDataErrorf(len(model.Features), len(rows), symbol,
		"no row of %s has every feature of %s", symbol, model.Name)
}

func (j *TraderJob) skip(symbol string, err error) {
	j.deps.Logger.Warn("Skipping symbol", zap.String("symbol", symbol), zap.Error(err))
	j.deps.Metrics.RecordSymbolFailure(ProcessTrader, err)
}
