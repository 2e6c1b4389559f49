// Package metrics records pipeline counters in a private Prometheus registry and optionally
// pushes them to a Pushgateway when a batch job ends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// Config selects the Pushgateway. An empty PushURL disables pushing.
type Config struct {
	PushURL string `yaml:"push_url" json:"push_url" jsonschema:"title=Pushgateway URL"`
	Job     string `yaml:"job" json:"job" jsonschema:"title=Pushgateway job name,default=argo_ml"`
}

// Recorder holds the pipeline metrics.
type Recorder struct {
	registry       *prometheus.Registry
	config         Config
	runs           *prometheus.CounterVec
	symbols        *prometheus.CounterVec
	symbolFailures *prometheus.CounterVec
	rows           *prometheus.CounterVec
	modelAccuracy  *prometheus.GaugeVec
	backtestProfit *prometheus.GaugeVec
	backtestTrades *prometheus.GaugeVec
	orders         *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
}

func NewRecorder(config Config) *Recorder {
	if config.Job == "" {
		config.Job = "argo_ml"
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Recorder{
		registry: registry,
		config:   config,
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argo_ml_runs_total",
				Help: "Batch job runs by final status",
			},
			[]string{"process", "status"},
		),
		symbols: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argo_ml_symbols_processed_total",
				Help: "Symbols that completed a pipeline stage",
			},
			[]string{"process"},
		),
		symbolFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argo_ml_symbol_failures_total",
				Help: "Symbols skipped because of an error",
			},
			[]string{"process", "category"},
		),
		rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argo_ml_rows_saved_total",
				Help: "Rows written to the repository",
			},
			[]string{"entity"},
		),
		modelAccuracy: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "argo_ml_model_accuracy",
				Help: "Held-out accuracy of the last trained model",
			},
			[]string{"model"},
		),
		backtestProfit: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "argo_ml_backtest_total_profit",
				Help: "Total per-share profit of the last backtest",
			},
			[]string{"symbol"},
		),
		backtestTrades: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "argo_ml_backtest_trades",
				Help: "Closed trades of the last backtest",
			},
			[]string{"symbol"},
		),
		orders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "argo_ml_orders_total",
				Help: "Orders placed by the trader job",
			},
			[]string{"side"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "argo_ml_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
}

// Registry exposes the gatherer, e.g. for a /metrics handler.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RecordRun(process, status string) {
	r.runs.WithLabelValues(process, status).Inc()
}

func (r *Recorder) RecordSymbol(process string) {
	r.symbols.WithLabelValues(process).Inc()
}

// RecordSymbolFailure counts err under its error category.
func (r *Recorder) RecordSymbolFailure(process string, err error) {
	r.symbolFailures.WithLabelValues(process, string(errors.CategoryOf(err))).Inc()
}

func (r *Recorder) RecordRows(entity string, n int) {
	r.rows.WithLabelValues(entity).Add(float64(n))
}

func (r *Recorder) RecordModelAccuracy(model string, accuracy float64) {
	r.modelAccuracy.WithLabelValues(model).Set(accuracy)
}

func (r *Recorder) RecordBacktest(symbol string, totalProfit float64, trades int) {
	r.backtestProfit.WithLabelValues(symbol).Set(totalProfit)
	r.backtestTrades.WithLabelValues(symbol).Set(float64(trades))
}

func (r *Recorder) RecordOrder(side string) {
	r.orders.WithLabelValues(side).Inc()
}

// Time observes the duration since start under stage.
func (r *Recorder) Time(stage string, start time.Time) {
	r.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Push sends every metric to the Pushgateway. It is a no-op without a PushURL.
func (r *Recorder) Push() error {
	if r.config.PushURL == "" {
		return nil
	}

	if err := push.New(r.config.PushURL, r.config.Job).Gatherer(r.registry).Push(); err != nil {
		return errors.Wrap(errors.ErrCodeMetricsPushFailed, "failed to push metrics", err)
	}

	return nil
}
