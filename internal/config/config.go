// Package config loads the pipeline configuration from YAML with ARGO_ML_ environment overrides.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ml/internal/backtest"
	"github.com/rxtech-lab/argo-ml/internal/broker"
	"github.com/rxtech-lab/argo-ml/internal/cleaner"
	"github.com/rxtech-lab/argo-ml/internal/indicator"
	"github.com/rxtech-lab/argo-ml/internal/labeling"
	"github.com/rxtech-lab/argo-ml/internal/metrics"
	"github.com/rxtech-lab/argo-ml/internal/ml"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"github.com/rxtech-lab/argo-ml/pkg/marketdata"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. ARGO_ML_STORAGE_DRIVER.
const EnvPrefix = "ARGO_ML"

type StorageDriver string

const (
	StorageDuckDB   StorageDriver = "duckdb"
	StoragePostgres StorageDriver = "postgres"
)

type ProviderKind string

const (
	ProviderPolygon ProviderKind = "polygon"
	ProviderParquet ProviderKind = "parquet"
)

type Config struct {
	LogLevel   string           `yaml:"log_level" json:"log_level" jsonschema:"title=Log level,enum=debug,enum=info,enum=warn,enum=error,default=info" validate:"omitempty,oneof=debug info warn error"`
	Pipeline   PipelineConfig   `yaml:"pipeline" json:"pipeline"`
	Indicators indicator.Params `yaml:"indicators" json:"indicators"`
	Labeling   labeling.Config  `yaml:"labeling" json:"labeling"`
	Cleaner    CleanerConfig    `yaml:"cleaner" json:"cleaner"`
	Trainer    ml.TrainerConfig `yaml:"trainer" json:"trainer"`
	Backtest   backtest.Config  `yaml:"backtest" json:"backtest"`
	Universe   UniverseConfig   `yaml:"universe" json:"universe"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Provider   ProviderConfig   `yaml:"provider" json:"provider"`
	Broker     broker.Config    `yaml:"broker" json:"broker"`
	Metrics    metrics.Config   `yaml:"metrics" json:"metrics"`
}

// PipelineConfig selects what the jobs run over.
type PipelineConfig struct {
	// Symbols to process. Empty means every symbol in the repository's ticker store.
	Symbols []string `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols"`
	// Features lists the indicator families used as model inputs.
	Features []string `yaml:"features" json:"features" jsonschema:"title=Indicator features,default=bb" validate:"min=1"`
	// DaysBack sizes the default date range ending now.
	DaysBack    int                        `yaml:"days_back" json:"days_back" jsonschema:"title=Days back,default=30" validate:"gte=1"`
	Timespan    string                     `yaml:"timespan" json:"timespan" jsonschema:"title=Bar size,default=1d"`
	ChunkSize   int                        `yaml:"chunk_size" json:"chunk_size" jsonschema:"title=Rows per repository write,default=100000" validate:"gte=1"`
	ResultsPath string                     `yaml:"results_path" json:"results_path" jsonschema:"title=Backtest stats file"`
	StartDate   optional.Option[time.Time] `yaml:"start_date" json:"start_date" jsonschema:"title=Start date"`
	EndDate     optional.Option[time.Time] `yaml:"end_date" json:"end_date" jsonschema:"title=End date"`
}

type pipelineYAML struct {
	Symbols     []string `yaml:"symbols"`
	Features    []string `yaml:"features"`
	DaysBack    int      `yaml:"days_back"`
	Timespan    string   `yaml:"timespan"`
	ChunkSize   int      `yaml:"chunk_size"`
	ResultsPath string   `yaml:"results_path"`
	StartDate   *string  `yaml:"start_date"`
	EndDate     *string  `yaml:"end_date"`
}

func parseDate(s *string) (optional.Option[time.Time], error) {
	if s == nil || *s == "" {
		return optional.None[time.Time](), nil
	}

	for _, layout := range []string{time.DateOnly, time.RFC3339, time.DateTime} {
		if t, err := time.Parse(layout, *s); err == nil {
			return optional.Some(t.UTC()), nil
		}
	}

	return optional.None[time.Time](), errors.Newf(errors.ErrCodeInvalidConfiguration, "invalid date %q", *s)
}

func formatDate(o optional.Option[time.Time]) *string {
	if o.IsNone() {
		return nil
	}

	s := o.Unwrap().Format(time.RFC3339)

	return &s
}

// UnmarshalYAML accepts dates as YYYY-MM-DD or RFC 3339.
func (p *PipelineConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw pipelineYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}

	start, err := parseDate(raw.StartDate)
	if err != nil {
		return err
	}

	end, err := parseDate(raw.EndDate)
	if err != nil {
		return err
	}

	*p = PipelineConfig{
		Symbols:     raw.Symbols,
		Features:    raw.Features,
		DaysBack:    raw.DaysBack,
		Timespan:    raw.Timespan,
		ChunkSize:   raw.ChunkSize,
		ResultsPath: raw.ResultsPath,
		StartDate:   start,
		EndDate:     end,
	}

	return nil
}

func (p PipelineConfig) MarshalYAML() (any, error) {
	return pipelineYAML{
		Symbols:     p.Symbols,
		Features:    p.Features,
		DaysBack:    p.DaysBack,
		Timespan:    p.Timespan,
		ChunkSize:   p.ChunkSize,
		ResultsPath: p.ResultsPath,
		StartDate:   formatDate(p.StartDate),
		EndDate:     formatDate(p.EndDate),
	}, nil
}

// DateRange returns the configured range, defaulting to [now-DaysBack days, now].
func (p PipelineConfig) DateRange(now time.Time) (time.Time, time.Time) {
	end := now
	if p.EndDate.IsSome() {
		end = p.EndDate.Unwrap()
	}

	start := end.AddDate(0, 0, -p.DaysBack)
	if p.StartDate.IsSome() {
		start = p.StartDate.Unwrap()
	}

	return start, end
}

type CleanerConfig struct {
	Mode string `yaml:"mode" json:"mode" jsonschema:"title=Gap filling,enum=ffill,enum=backfill,default=ffill"`
}

// UniverseConfig filters symbols before training. Disabled unless Enabled is set.
type UniverseConfig struct {
	Enabled   bool    `yaml:"enabled" json:"enabled" jsonschema:"title=Enable universe filter,default=false"`
	MinVolume float64 `yaml:"min_volume" json:"min_volume" jsonschema:"title=Minimum mean volume,default=750000" validate:"gte=0"`
	MinPrice  float64 `yaml:"min_price" json:"min_price" jsonschema:"title=Minimum last close,default=0.1" validate:"gte=0"`
	MaxPrice  float64 `yaml:"max_price" json:"max_price" jsonschema:"title=Maximum last close,default=5" validate:"gtefield=MinPrice"`
}

type StorageConfig struct {
	Driver StorageDriver `yaml:"driver" json:"driver" jsonschema:"title=Repository driver,enum=duckdb,enum=postgres,default=duckdb" validate:"oneof=duckdb postgres"`
	// Path of the DuckDB file. Empty means in memory.
	Path string `yaml:"path" json:"path" jsonschema:"title=DuckDB file"`
	DSN  string `yaml:"dsn" json:"dsn" jsonschema:"title=Postgres DSN" validate:"required_if=Driver postgres"`
}

type ProviderConfig struct {
	Kind    ProviderKind             `yaml:"kind" json:"kind" jsonschema:"title=Price source,enum=polygon,enum=parquet,default=polygon" validate:"oneof=polygon parquet"`
	Polygon marketdata.PolygonConfig `yaml:"polygon" json:"polygon"`
	// Parquet is a file or glob read by the parquet source.
	Parquet string `yaml:"parquet" json:"parquet" jsonschema:"title=Parquet file or glob" validate:"required_if=Kind parquet"`
}

// DefaultConfig returns a runnable configuration for a DuckDB file and the Polygon source.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Pipeline: PipelineConfig{
			Features:  []string{string(indicator.KindBollingerBands)},
			DaysBack:  30,
			Timespan:  string(marketdata.TimespanOneDay),
			ChunkSize: 100000,
			StartDate: optional.None[time.Time](),
			EndDate:   optional.None[time.Time](),
		},
		Indicators: indicator.DefaultParams(),
		Labeling:   labeling.DefaultConfig(),
		Cleaner:    CleanerConfig{Mode: string(cleaner.ModeForwardFill)},
		Trainer:    ml.DefaultTrainerConfig(),
		Backtest:   backtest.DefaultConfig(),
		Universe: UniverseConfig{
			MinVolume: 750000,
			MinPrice:  0.10,
			MaxPrice:  5.00,
		},
		Storage: StorageConfig{
			Driver: StorageDuckDB,
			Path:   "argo-ml.duckdb",
		},
		Provider: ProviderConfig{
			Kind:    ProviderPolygon,
			Polygon: marketdata.DefaultPolygonConfig(),
		},
		Broker:  broker.DefaultConfig(),
		Metrics: metrics.Config{Job: "argo_ml"},
	}
}

// EmptyConfig is the sample written by `argo-ml schema`.
func EmptyConfig() Config {
	config := DefaultConfig()
	config.Pipeline.Symbols = []string{"AAPL", "MSFT"}

	return config
}

// Load reads path over the defaults, applies ARGO_ML_ environment overrides and validates the
// result. An empty path loads the defaults and the environment only.
//
// Environment values are parsed as YAML scalars, so lists are written in flow style:
// ARGO_ML_PIPELINE_SYMBOLS="[AAPL, MSFT]".
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to encode defaults", err)
	}

	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to load defaults", err)
	}

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to open config %s", path)
		}
		defer file.Close()

		if err := v.MergeConfig(file); err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	settings := make(map[string]any)
	for _, key := range v.AllKeys() {
		setPath(settings, strings.Split(key, "."), normalize(v.Get(key)))
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to encode settings", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to decode settings", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func setPath(m map[string]any, keys []string, value any) {
	for _, key := range keys[:len(keys)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[key] = next
		}

		m = next
	}

	m[keys[len(keys)-1]] = value
}

// normalize re-reads string values as YAML scalars so environment overrides keep their types.
func normalize(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(s), &parsed); err != nil {
		return s
	}

	if _, isMap := parsed.(map[string]any); isMap {
		return s
	}

	return parsed
}

// Validate checks struct constraints, then every enum and component parameter.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if _, err := indicator.ParseKinds(c.Pipeline.Features); err != nil {
		return err
	}

	if _, err := types.ParseModelKind(string(c.Trainer.Kind)); err != nil {
		return err
	}

	if _, err := cleaner.ParseMode(c.Cleaner.Mode); err != nil {
		return err
	}

	if _, err := marketdata.ParseTimespan(c.Pipeline.Timespan); err != nil {
		return err
	}

	if err := c.Indicators.Validate(); err != nil {
		return err
	}

	if err := c.Labeling.Validate(); err != nil {
		return err
	}

	if err := c.Backtest.Validate(); err != nil {
		return err
	}

	if c.Pipeline.StartDate.IsSome() && c.Pipeline.EndDate.IsSome() &&
		c.Pipeline.EndDate.Unwrap().Before(c.Pipeline.StartDate.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "end_date is before start_date")
	}

	return nil
}

// FeatureKinds returns the parsed feature selection.
func (c Config) FeatureKinds() ([]indicator.IndicatorKind, error) {
	return indicator.ParseKinds(c.Pipeline.Features)
}

// GenerateSchema reflects Config into a JSON schema.
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		// nested packages reuse the name Config; the root is looked up by name
		Namer: func(t reflect.Type) string {
			if t.Name() == "" || t.PkgPath() == reflect.TypeOf(Config{}).PkgPath() {
				return ""
			}

			return path.Base(t.PkgPath()) + "." + t.Name()
		},
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(optional.Option[time.Time]{}) {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{Type: "string"}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "argo-ml-config"
	schema.Description = "Configuration schema for the argo-ml pipeline"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

func (c *Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
