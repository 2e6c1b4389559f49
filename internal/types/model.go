package types

import (
	"time"

	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// ModelKind names a supported classifier family.
type ModelKind string

const (
	ModelKindRandomForest       ModelKind = "random_forest"
	ModelKindLogisticRegression ModelKind = "logistic_regression"
	ModelKindSVM                ModelKind = "svm"
	ModelKindKNN                ModelKind = "knn"
	ModelKindNaiveBayes         ModelKind = "naive_bayes"
	ModelKindDecisionTree       ModelKind = "decision_tree"
)

// ModelKinds lists every supported kind.
var ModelKinds = []ModelKind{
	ModelKindRandomForest,
	ModelKindLogisticRegression,
	ModelKindSVM,
	ModelKindKNN,
	ModelKindNaiveBayes,
	ModelKindDecisionTree,
}

// ParseModelKind validates a configured model kind. An empty string selects random forest.
func ParseModelKind(s string) (ModelKind, error) {
	if s == "" {
		return ModelKindRandomForest, nil
	}

	for _, kind := range ModelKinds {
		if string(kind) == s {
			return kind, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeUnknownModelKind, "unknown model kind %q", s)
}

// ModelRecord is the persisted form of a trained model. Payload is the base64 text of the
// binary-encoded classifier and scaler.
type ModelRecord struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"model_name" db:"model_name"`
	Kind           ModelKind `json:"model_kind" db:"model_kind"`
	Version        int       `json:"model_version" db:"model_version"`
	TrainingDate   time.Time `json:"training_date" db:"training_date"`
	Accuracy       float64   `json:"accuracy_score" db:"accuracy_score"`
	Report         string    `json:"classification_report" db:"classification_report"`
	Features       []string  `json:"features" db:"-"`
	Payload        string    `json:"model" db:"model"`
	AdditionalInfo string    `json:"additional_info" db:"additional_info"`
	FormatVersion  string    `json:"format_version" db:"format_version"`
}

// Prediction is a held-out model prediction attached to its source row.
type Prediction struct {
	Symbol         string    `json:"symbol" db:"symbol"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp"`
	Prediction     Label     `json:"prediction" db:"prediction"`
	PredictionDate time.Time `json:"prediction_date" db:"prediction_date"`
	ModelID        string    `json:"model_id" db:"model_id"`
	ModelVersion   int       `json:"model_version" db:"model_version"`
}
