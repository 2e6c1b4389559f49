package ml

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-ml/internal/indicator"
	"github.com/rxtech-lab/argo-ml/internal/logger"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/internal/version"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
	"github.com/stretchr/testify/suite"
)

var testFeatures = []string{"f1", "f2"}

type MLTestSuite struct {
	suite.Suite
	rows []types.FeatureRow
}

func TestMLSuite(t *testing.T) {
	suite.Run(t, new(MLTestSuite))
}

// clusterRows builds three separable clusters, one per label, 50 rows each.
func clusterRows(seed int64) []types.FeatureRow {
	rng := rand.New(rand.NewSource(seed))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	centers := map[types.Label][2]float64{
		types.LabelBuy:  {5, 0},
		types.LabelHold: {0, 5},
		types.LabelSell: {-5, -5},
	}

	var rows []types.FeatureRow

	for i := 0; i < 150; i++ {
		label := types.Labels[i%3]
		center := centers[label]
		rows = append(rows, types.FeatureRow{
			Symbol:    "SYM",
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Index:     i,
			Values: map[string]float64{
				"f1":    center[0] + rng.Float64()*2 - 1,
				"f2":    center[1] + rng.Float64()*2 - 1,
				"close": 10,
			},
			Label: label,
		})
	}

	return rows
}

func (suite *MLTestSuite) SetupTest() {
	suite.rows = clusterRows(1)
}

func (suite *MLTestSuite) newTrainer(kind types.ModelKind) *Trainer {
	config := DefaultTrainerConfig()
	config.Kind = kind
	config.Name = ModelName(kind, []indicator.IndicatorKind{indicator.KindBollingerBands})
	config.Features = testFeatures

	trainer, err := NewTrainer(config, logger.NewNopLogger())
	suite.Require().NoError(err)

	return trainer
}

func (suite *MLTestSuite) TestEveryKindLearnsSeparableClusters() {
	for _, kind := range types.ModelKinds {
		suite.Run(string(kind), func() {
			model, err := suite.newTrainer(kind).Train(suite.rows)
			suite.Require().NoError(err)

			suite.Equal(kind, model.Kind)
			suite.Equal(1, model.Version)
			suite.Equal([]types.Label{types.LabelBuy, types.LabelHold, types.LabelSell}, model.Classes)
			suite.Equal(120, model.TrainRows)
			suite.Equal(30, model.TestRows)
			suite.GreaterOrEqual(model.Accuracy, 0.9)
			suite.Len(model.Predictions, 30)
			suite.Equal(30, model.Report.MacroAvg.Support)
		})
	}
}

func (suite *MLTestSuite) TestPredictionsAttachedToSourceRows() {
	model, err := suite.newTrainer(types.ModelKindDecisionTree).Train(suite.rows)
	suite.Require().NoError(err)

	byTime := make(map[time.Time]types.FeatureRow)
	for _, row := range suite.rows {
		byTime[row.Timestamp] = row
	}

	for _, prediction := range model.Predictions {
		row, ok := byTime[prediction.Timestamp]
		suite.Require().True(ok)
		suite.Equal(row.Symbol, prediction.Symbol)
		suite.Equal(model.ID, prediction.ModelID)
		suite.Equal(model.Version, prediction.ModelVersion)

		label, ok := model.Predict(row)
		suite.True(ok)
		suite.Equal(label, prediction.Prediction)
	}
}

func (suite *MLTestSuite) TestStratifiedSplitIsReproducible() {
	first, err := suite.newTrainer(types.ModelKindNaiveBayes).Train(suite.rows)
	suite.Require().NoError(err)

	second, err := suite.newTrainer(types.ModelKindNaiveBayes).Train(suite.rows)
	suite.Require().NoError(err)

	suite.Require().Len(second.Predictions, len(first.Predictions))

	for i := range first.Predictions {
		suite.Equal(first.Predictions[i].Timestamp, second.Predictions[i].Timestamp)
	}
}

func (suite *MLTestSuite) TestTrainKeepsLiveModel() {
	trainer := suite.newTrainer(types.ModelKindKNN)
	suite.True(trainer.Model().IsNone())

	first, err := trainer.Train(suite.rows)
	suite.Require().NoError(err)

	again, err := trainer.Train(clusterRows(2))
	suite.Require().NoError(err)
	suite.Same(first, again)

	retrained, err := trainer.Retrain(suite.rows)
	suite.Require().NoError(err)
	suite.Equal(2, retrained.Version)
	suite.NotEqual(first.ID, retrained.ID)
	suite.Same(retrained, trainer.Model().Unwrap())

	// the first model is untouched
	suite.Equal(1, first.Version)
}

func (suite *MLTestSuite) TestLoadThenRetrain() {
	model, err := suite.newTrainer(types.ModelKindLogisticRegression).Train(suite.rows)
	suite.Require().NoError(err)

	record, err := Encode(model)
	suite.Require().NoError(err)

	record.Version = 3
	stored, err := Decode(record)
	suite.Require().NoError(err)

	trainer := suite.newTrainer(types.ModelKindLogisticRegression)
	suite.Require().NoError(trainer.Load(stored))

	retrained, err := trainer.Retrain(suite.rows)
	suite.Require().NoError(err)
	suite.Equal(4, retrained.Version)

	suite.Error(trainer.Load(nil))
}

func (suite *MLTestSuite) TestRoundTrip() {
	for _, kind := range types.ModelKinds {
		suite.Run(string(kind), func() {
			model, err := suite.newTrainer(kind).Train(suite.rows)
			suite.Require().NoError(err)

			record, err := Encode(model)
			suite.Require().NoError(err)
			suite.Equal(version.ModelFormatVersion, record.FormatVersion)
			suite.Equal(model.Name, record.Name)
			suite.Equal(testFeatures, record.Features)

			decoded, err := Decode(record)
			suite.Require().NoError(err)
			suite.Equal(model.Kind, decoded.Kind)
			suite.Equal(model.Report, decoded.Report)
			suite.Equal(model.TrainRows, decoded.TrainRows)
			suite.Equal(model.PredictAll(suite.rows), decoded.PredictAll(suite.rows))

			again, err := Encode(decoded)
			suite.Require().NoError(err)
			suite.Equal(record.Payload, again.Payload)
		})
	}
}

func (suite *MLTestSuite) TestDecodeFailures() {
	model, err := suite.newTrainer(types.ModelKindDecisionTree).Train(suite.rows)
	suite.Require().NoError(err)

	record, err := Encode(model)
	suite.Require().NoError(err)

	badBase64 := record
	badBase64.Payload = "not base64!"
	_, err = Decode(badBase64)
	suite.True(errors.HasCode(err, errors.ErrCodeModelDecodeFailed))

	garbage := record
	garbage.Payload = "aGVsbG8gd29ybGQ="
	_, err = Decode(garbage)
	suite.True(errors.HasCode(err, errors.ErrCodeModelDecodeFailed))
	suite.True(errors.IsDataError(err))

	incompatible := record
	incompatible.FormatVersion = "2.0.0"
	_, err = Decode(incompatible)
	suite.True(errors.HasCode(err, errors.ErrCodeIncompatibleModel))

	_, err = Encode(nil)
	suite.Error(err)
}

func (suite *MLTestSuite) TestEmptyTrainingSet() {
	unlabeled := make([]types.FeatureRow, len(suite.rows))
	for i, row := range suite.rows {
		unlabeled[i] = row.WithLabel(types.LabelNone)
	}

	_, err := suite.newTrainer(types.ModelKindRandomForest).Train(unlabeled)
	suite.True(errors.HasCode(err, errors.ErrCodeEmptyTrainingSet))
	suite.True(errors.IsDataError(err))

	_, err = suite.newTrainer(types.ModelKindRandomForest).Train(nil)
	suite.True(errors.IsDataError(err))
}

func (suite *MLTestSuite) TestSingleClass() {
	var buys []types.FeatureRow
	for _, row := range suite.rows {
		if row.Label == types.LabelBuy {
			buys = append(buys, row)
		}
	}

	for _, kind := range []types.ModelKind{types.ModelKindSVM, types.ModelKindLogisticRegression} {
		_, err := suite.newTrainer(kind).Train(buys)
		suite.True(errors.HasCode(err, errors.ErrCodeSingleClass), kind)
		suite.True(errors.IsDataError(err), kind)
	}

	for _, kind := range []types.ModelKind{
		types.ModelKindDecisionTree,
		types.ModelKindRandomForest,
		types.ModelKindKNN,
		types.ModelKindNaiveBayes,
	} {
		model, err := suite.newTrainer(kind).Train(buys)
		suite.Require().NoError(err, kind)
		suite.Equal([]types.Label{types.LabelBuy}, model.Classes, kind)
		suite.InDelta(1.0, model.Accuracy, 1e-9, kind)

		for _, row := range buys {
			label, ok := model.Predict(row)
			suite.True(ok)
			suite.Equal(types.LabelBuy, label, kind)
		}
	}
}

func (suite *MLTestSuite) TestTooFewRows() {
	_, err := suite.newTrainer(types.ModelKindKNN).Train(suite.rows[:2])
	suite.True(errors.IsDataError(err))
}

func (suite *MLTestSuite) TestIncompleteRowsSkipped() {
	rows := append([]types.FeatureRow{}, suite.rows...)
	for i := 0; i < 15; i++ {
		rows[i] = types.FeatureRow{
			Symbol:    rows[i].Symbol,
			Timestamp: rows[i].Timestamp,
			Values:    map[string]float64{"f1": math.NaN(), "f2": 1},
			Label:     rows[i].Label,
		}
	}

	model, err := suite.newTrainer(types.ModelKindNaiveBayes).Train(rows)
	suite.Require().NoError(err)
	suite.Equal(135, model.TrainRows+model.TestRows)

	_, ok := model.Predict(rows[0])
	suite.False(ok)
}

func (suite *MLTestSuite) TestTimeOrderedSplit() {
	config := DefaultTrainerConfig()
	config.Kind = types.ModelKindDecisionTree
	config.Features = testFeatures
	config.TimeOrderedSplit = true

	trainer, err := NewTrainer(config, nil)
	suite.Require().NoError(err)

	model, err := trainer.Train(suite.rows)
	suite.Require().NoError(err)
	suite.Len(model.Predictions, 30)

	cutoff := suite.rows[119].Timestamp
	for _, prediction := range model.Predictions {
		suite.True(prediction.Timestamp.After(cutoff))
	}
}

func (suite *MLTestSuite) TestNewTrainerValidation() {
	config := DefaultTrainerConfig()
	config.Features = testFeatures

	config.Kind = "xgboost"
	_, err := NewTrainer(config, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownModelKind))
	suite.True(errors.IsConfigurationError(err))

	config.Kind = types.ModelKindKNN
	config.TestFraction = 1
	_, err = NewTrainer(config, nil)
	suite.True(errors.IsConfigurationError(err))

	config.TestFraction = 0.2
	config.Features = nil
	_, err = NewTrainer(config, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *MLTestSuite) TestModelName() {
	name := ModelName(types.ModelKindRandomForest, []indicator.IndicatorKind{indicator.KindBollingerBands, indicator.KindMACD})
	suite.Equal("random_forest_[bb, macd]", name)
	suite.Equal("knn_[]", ModelName(types.ModelKindKNN, nil))
}
