package pipeline

import (
	"context"
	"fmt"

	"github.com/rxtech-lab/argo-ml/internal/config"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// DownloadReport is the outcome of one download_stock_data run.
type DownloadReport struct {
	RunID   string
	Symbols []string
	Bars    int
	Failed  map[string]error
	// OutputPath is the parquet file written, empty when none was requested.
	OutputPath string
}

// DownloadJob fetches bars and stores them together with the ticker universe.
type DownloadJob struct {
	config     config.Config
	deps       Dependencies
	writer     writer.PriceWriter
	onProgress OnProgress
}

func NewDownloadJob(c config.Config, deps Dependencies) (*DownloadJob, error) {
	deps, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}

	return &DownloadJob{config: c, deps: deps}, nil
}

func (j *DownloadJob) SetOnProgress(fn OnProgress) {
	j.onProgress = fn
}

// SetWriter also writes every downloaded bar through w.
func (j *DownloadJob) SetWriter(w writer.PriceWriter) {
	j.writer = w
}

func (j *DownloadJob) Run(ctx context.Context) (DownloadReport, error) {
	var report DownloadReport

	run, err := j.deps.track(ctx, ProcessDownload, func(_ types.Run) error {
		return j.run(ctx, &report)
	})
	report.RunID = run.ID

	return report, err
}

func (j *DownloadJob) run(ctx context.Context, report *DownloadReport) error {
	symbols, err := j.deps.symbols(ctx, j.config.Pipeline.Symbols)
	if err != nil {
		return err
	}

	req, err := request(j.config.Pipeline, symbols, j.deps.Now())
	if err != nil {
		return err
	}

	j.deps.Logger.Info("Downloading prices",
		zap.Strings("symbols", symbols),
		zap.Time("start", req.Start),
		zap.Time("end", req.End),
		zap.String("timespan", string(req.Timespan)),
	)

	fetched, groups, failed, err := j.deps.fetch(ctx, ProcessDownload, req)
	if err != nil {
		return err
	}

	report.Failed = failed

	if j.writer != nil {
		if err := j.writer.Initialize(); err != nil {
			return err
		}

		defer func() { _ = j.writer.Close() }()
	}

	for i, symbol := range fetched {
		bars := groups[symbol]

		err := Chunk(bars, j.config.Pipeline.ChunkSize, func(chunk []types.PriceBar) error {
			return j.deps.Repository.SavePrices(ctx, chunk)
		})
		if err != nil {
			return err
		}

		if j.writer != nil {
			for _, bar := range bars {
				if err := j.writer.Write(bar); err != nil {
					return err
				}
			}
		}

		report.Bars += len(bars)
		j.deps.Metrics.RecordSymbol(ProcessDownload)
		progress(j.onProgress, i+1, len(fetched), fmt.Sprintf("saved %d bars for %s", len(bars), symbol))
	}

	if err := j.deps.Repository.SaveSymbols(ctx, fetched); err != nil {
		return err
	}

	j.deps.Metrics.RecordRows("prices", report.Bars)
	report.Symbols = fetched

	if j.writer != nil {
		path, err := j.writer.Finalize()
		if err != nil {
			return err
		}

		report.OutputPath = path
		j.deps.Logger.Info("Wrote parquet file", zap.String("path", path))
	}

	return nil
}
