package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-ml/internal/config"
	"github.com/rxtech-lab/argo-ml/internal/storage/duckdb"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/mocks"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"github.com/rxtech-lab/argo-ml/pkg/marketdata/writer"
	"github.com/stretchr/testify/suite"
)

type CommandTestSuite struct {
	suite.Suite
	tempDir string
}

func TestCommandSuite(t *testing.T) {
	suite.Run(t, new(CommandTestSuite))
}

func (suite *CommandTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *CommandTestSuite) run(args ...string) error {
	return newCommand().Run(context.Background(), append([]string{"argo-ml"}, args...))
}

// writeConfig points storage and the parquet source into the temp dir.
func (suite *CommandTestSuite) writeConfig(extra string) string {
	path := filepath.Join(suite.tempDir, "config.yaml")
	content := fmt.Sprintf(`storage:
  driver: duckdb
  path: %s
provider:
  kind: parquet
  parquet: %s
%s`, filepath.Join(suite.tempDir, "argo.duckdb"), filepath.Join(suite.tempDir, "input.parquet"), extra)

	suite.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	return path
}

func (suite *CommandTestSuite) writeInput(symbols ...string) {
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -10)

	var bars []types.PriceBar
	for i, symbol := range symbols {
		bars = append(bars, mocks.FromCloses(symbol, start, 24*time.Hour, []float64{
			float64(10 + i), float64(11 + i), float64(12 + i), float64(11 + i), float64(13 + i),
		})...)
	}

	suite.Require().NoError(writer.WriteParquet(filepath.Join(suite.tempDir, "input.parquet"), bars))
}

func (suite *CommandTestSuite) TestDownloadStoresSymbolsAndWritesParquet() {
	suite.writeInput("AAPL", "MSFT")
	cfg := suite.writeConfig("")
	output := filepath.Join(suite.tempDir, "output.parquet")

	err := suite.run("--config", cfg, "--log-level", "error", "download", "--symbols", "AAPL", "--symbols", "MSFT", "--parquet", output)
	suite.Require().NoError(err)

	_, err = os.Stat(output)
	suite.NoError(err)

	repo, err := duckdb.NewRepository(filepath.Join(suite.tempDir, "argo.duckdb"), nil)
	suite.Require().NoError(err)

	defer repo.Close()

	symbols, err := repo.GetSymbols(context.Background())
	suite.Require().NoError(err)
	suite.Equal([]string{"AAPL", "MSFT"}, symbols)

	count, err := repo.CountRows(context.Background(), "stock_prices")
	suite.Require().NoError(err)
	suite.Equal(10, count)
}

func (suite *CommandTestSuite) TestDownloadWithoutSymbolsFails() {
	suite.writeInput("AAPL")
	cfg := suite.writeConfig("")

	err := suite.run("--config", cfg, "--log-level", "error", "download")
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *CommandTestSuite) TestInvalidOverrideIsRejected() {
	cfg := suite.writeConfig("")

	err := suite.run("--config", cfg, "--log-level", "verbose", "download", "-s", "AAPL")
	suite.True(errors.IsConfigurationError(err))
}

func (suite *CommandTestSuite) TestTradeWithoutModelFails() {
	suite.writeInput("AAPL")
	cfg := suite.writeConfig(fmt.Sprintf("broker:\n  state_path: %s\n", filepath.Join(suite.tempDir, "broker.json")))

	err := suite.run("--config", cfg, "--log-level", "error", "trade", "-s", "AAPL")
	suite.True(errors.HasCode(err, errors.ErrCodeModelNotTrained))
}

func (suite *CommandTestSuite) TestSchemaWritesSchemaAndSample() {
	dir := filepath.Join(suite.tempDir, "config")

	suite.Require().NoError(suite.run("schema", "--dir", dir))

	schema, err := os.ReadFile(filepath.Join(dir, schemaName))
	suite.Require().NoError(err)
	suite.Contains(string(schema), "argo-ml-config")
	suite.Contains(string(schema), `"pipeline"`)

	sample, err := os.ReadFile(filepath.Join(dir, sampleConfigName))
	suite.Require().NoError(err)
	suite.Contains(string(sample), "# yaml-language-server: $schema="+schemaName)

	loaded, err := config.Load(filepath.Join(dir, sampleConfigName))
	suite.Require().NoError(err)
	suite.Equal([]string{"AAPL", "MSFT"}, loaded.Pipeline.Symbols)
}

func (suite *CommandTestSuite) TestSchemaDoesNotOverwriteSample() {
	dir := filepath.Join(suite.tempDir, "config")
	samplePath := filepath.Join(dir, sampleConfigName)

	suite.Require().NoError(os.MkdirAll(dir, 0755))
	suite.Require().NoError(os.WriteFile(samplePath, []byte("existing content"), 0644))

	suite.Require().NoError(suite.run("schema", "--dir", dir))

	content, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Equal("existing content", string(content))
}

func (suite *CommandTestSuite) TestGenerateSchemaFileInvalidPath() {
	blocker := filepath.Join(suite.tempDir, "file")
	suite.Require().NoError(os.WriteFile(blocker, nil, 0644))

	err := generateSchemaFile(config.EmptyConfig(), filepath.Join(blocker, "schema.json"))
	suite.Error(err)
	suite.Contains(err.Error(), "failed to")
}

func (suite *CommandTestSuite) TestValidatePaths() {
	suite.NoError(validatePaths("/some/path/schema.json", "/some/path/config.yaml"))

	err := validatePaths("", "/some/path/config.yaml")
	suite.ErrorContains(err, "schema path cannot be empty")

	err = validatePaths("/some/path/schema.json", "")
	suite.ErrorContains(err, "sample config path cannot be empty")
}

func (suite *CommandTestSuite) TestValidateSchemaName() {
	suite.NoError(validateSchemaName("schema.json"))
	suite.NoError(validateSchemaName("my-schema-file.json"))
	suite.ErrorContains(validateSchemaName(""), "schema name cannot be empty")
	suite.ErrorContains(validateSchemaName("schema.txt"), "must have .json extension")
	suite.Error(validateSchemaName("schema"))
}

func (suite *CommandTestSuite) TestGetSchemaReference() {
	suite.Equal("# yaml-language-server: $schema=test-schema.json\n", getSchemaReference("test-schema.json"))
	suite.Equal("# yaml-language-server: $schema=\n", getSchemaReference(""))
}
