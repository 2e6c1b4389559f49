// Package ml trains, evaluates and serializes the classifiers that predict trade labels.
//
// Classifiers work on dense float64 rows and integer class indices; the TrainedModel maps
// indices back to labels.
package ml

import (
	"github.com/rxtech-lab/argo-ml/internal/types"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

// Classifier is a fitted or unfitted multi-class model over standardized feature rows.
type Classifier interface {
	Kind() types.ModelKind
	// Fit trains on X with class indices y in [0, numClasses).
	Fit(X [][]float64, y []int, numClasses int) error
	// Predict returns the class index for one row.
	Predict(x []float64) int
}

// NewClassifier returns an unfitted classifier of the given kind with default hyperparameters.
func NewClassifier(kind types.ModelKind, seed int64) (Classifier, error) {
	switch kind {
	case types.ModelKindDecisionTree:
		return &DecisionTree{Seed: seed}, nil
	case types.ModelKindRandomForest:
		return &RandomForest{NumTrees: 100, Seed: seed}, nil
	case types.ModelKindLogisticRegression:
		return &LogisticRegression{Iterations: 300, LearningRate: 0.5, Lambda: 1e-4}, nil
	case types.ModelKindSVM:
		return &LinearSVM{Lambda: 1e-3, Epochs: 20, Seed: seed}, nil
	case types.ModelKindKNN:
		return &KNN{K: 5}, nil
	case types.ModelKindNaiveBayes:
		return &GaussianNB{VarSmoothing: 1e-9}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnknownModelKind, "unknown model kind %q", kind)
	}
}

// FitsSingleClass reports whether kind can be trained on rows that all carry the same label.
// Such a model predicts that label everywhere.
func FitsSingleClass(kind types.ModelKind) bool {
	switch kind {
	case types.ModelKindLogisticRegression, types.ModelKindSVM:
		return false
	default:
		return true
	}
}

func checkFitInput(X [][]float64, y []int, numClasses int) error {
	if len(X) == 0 {
		return errors.New(errors.ErrCodeEmptyTrainingSet, "no training rows")
	}

	if len(X) != len(y) {
		return errors.Newf(errors.ErrCodeFeatureMismatch, "got %d rows and %d labels", len(X), len(y))
	}

	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return errors.Newf(errors.ErrCodeFeatureMismatch, "row %d has %d features, expected %d", i, len(row), width)
		}
	}

	for i, class := range y {
		if class < 0 || class >= numClasses {
			return errors.Newf(errors.ErrCodeInvalidParameter, "label %d at row %d is outside [0, %d)", class, i, numClasses)
		}
	}

	return nil
}

// argmax returns the first index holding the largest value.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}

	return best
}

func argmaxInt(values []int) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}

	return best
}
