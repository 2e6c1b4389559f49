package ml

import (
	"fmt"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-ml/internal/indicator"
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// TrainedModel is a fitted classifier with the scaler and metadata it was trained with.
// It is not modified after construction; retraining produces a new value.
type TrainedModel struct {
	ID           string
	Name         string
	Kind         types.ModelKind
	Version      int
	TrainingDate time.Time
	Features     []string
	// Classes maps class indices to labels.
	Classes  []types.Label
	Accuracy float64
	Report   Report
	// Predictions holds one entry per held-out row. Empty for decoded models.
	Predictions []types.Prediction
	TrainRows   int
	TestRows    int

	scaler     StandardScaler
	classifier Classifier
}

// Classifier returns the fitted classifier.
func (m *TrainedModel) Classifier() Classifier {
	return m.classifier
}

// Predict classifies one row. ok is false when any feature is missing.
func (m *TrainedModel) Predict(row types.FeatureRow) (types.Label, bool) {
	if !row.Complete(m.Features) {
		return types.LabelNone, false
	}

	return m.predictVector(row.Vector(m.Features)), true
}

// PredictAll classifies rows in order, LabelNone where features are missing.
func (m *TrainedModel) PredictAll(rows []types.FeatureRow) []types.Label {
	labels := make([]types.Label, len(rows))
	for i, row := range rows {
		labels[i], _ = m.Predict(row)
	}

	return labels
}

func (m *TrainedModel) predictVector(x []float64) types.Label {
	return m.Classes[m.classifier.Predict(m.scaler.TransformRow(x))]
}

func (m *TrainedModel) validate() error {
	if m.classifier == nil {
		return errors.New(errors.ErrCodeModelNotTrained, "model has no fitted classifier")
	}

	if len(m.Features) == 0 || len(m.scaler.Mean) != len(m.Features) {
		return errors.Newf(errors.ErrCodeFeatureMismatch, "scaler covers %d features, model lists %d", len(m.scaler.Mean), len(m.Features))
	}

	if len(m.Classes) == 0 {
		return errors.New(errors.ErrCodeModelNotTrained, "model has no classes")
	}

	return nil
}

// ModelName names a model after its kind and indicator selection, e.g. "random_forest_[bb, macd]".
func ModelName(kind types.ModelKind, kinds []indicator.IndicatorKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}

	return fmt.Sprintf("%s_[%s]", kind, strings.Join(names, ", "))
}
