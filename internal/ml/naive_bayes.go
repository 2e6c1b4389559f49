package ml

import (
	"math"

	"github.com/rxtech-lab/argo-ml/internal/types"
	"gonum.org/v1/gonum/stat"
)

// GaussianNB models each feature per class as an independent normal distribution.
// VarSmoothing times the largest feature variance is added to every variance.
type GaussianNB struct {
	Means        [][]float64
	Variances    [][]float64
	LogPriors    []float64
	VarSmoothing float64
	NumClasses   int
}

func (m *GaussianNB) Kind() types.ModelKind {
	return types.ModelKindNaiveBayes
}

func (m *GaussianNB) Fit(X [][]float64, y []int, numClasses int) error {
	if err := checkFitInput(X, y, numClasses); err != nil {
		return err
	}

	n, d := len(X), len(X[0])
	m.NumClasses = numClasses

	column := make([]float64, n)
	epsilon := 0.0

	for j := 0; j < d; j++ {
		for i := range X {
			column[i] = X[i][j]
		}

		_, variance := stat.PopMeanVariance(column, nil)
		epsilon = math.Max(epsilon, variance)
	}

	epsilon *= m.VarSmoothing
	if epsilon == 0 {
		epsilon = math.Max(m.VarSmoothing, 1e-12)
	}

	byClass := make([][]int, numClasses)
	for i, class := range y {
		byClass[class] = append(byClass[class], i)
	}

	m.Means = make([][]float64, numClasses)
	m.Variances = make([][]float64, numClasses)
	m.LogPriors = make([]float64, numClasses)

	for class, rows := range byClass {
		m.Means[class] = make([]float64, d)
		m.Variances[class] = make([]float64, d)

		if len(rows) == 0 {
			m.LogPriors[class] = math.Inf(-1)

			for j := range m.Variances[class] {
				m.Variances[class][j] = 1
			}

			continue
		}

		m.LogPriors[class] = math.Log(float64(len(rows)) / float64(n))
		values := make([]float64, len(rows))

		for j := 0; j < d; j++ {
			for k, i := range rows {
				values[k] = X[i][j]
			}

			mean, variance := stat.PopMeanVariance(values, nil)
			m.Means[class][j] = mean
			m.Variances[class][j] = variance + epsilon
		}
	}

	return nil
}

func (m *GaussianNB) Predict(x []float64) int {
	scores := make([]float64, m.NumClasses)

	for class := range scores {
		score := m.LogPriors[class]

		for j, v := range x {
			variance := m.Variances[class][j]
			diff := v - m.Means[class][j]
			score -= 0.5*math.Log(2*math.Pi*variance) + diff*diff/(2*variance)
		}

		scores[class] = score
	}

	return argmax(scores)
}
