package ml

import (
	"math"

	"github.com/rxtech-lab/argo-ml/internal/types"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LogisticRegression is a multinomial softmax model fitted by batch gradient descent with an
// L2 penalty on the feature weights.
type LogisticRegression struct {
	// Weights is (features+1) x classes in row-major order; the last row is the intercept.
	Weights      []float64
	NumFeatures  int
	NumClasses   int
	Iterations   int
	LearningRate float64
	Lambda       float64
}

func (m *LogisticRegression) Kind() types.ModelKind {
	return types.ModelKindLogisticRegression
}

func (m *LogisticRegression) Fit(X [][]float64, y []int, numClasses int) error {
	if err := checkFitInput(X, y, numClasses); err != nil {
		return err
	}

	n, d := len(X), len(X[0])
	m.NumFeatures, m.NumClasses = d, numClasses

	xa := mat.NewDense(n, d+1, nil)
	onehot := mat.NewDense(n, numClasses, nil)

	for i, row := range X {
		for j, v := range row {
			xa.Set(i, j, v)
		}

		xa.Set(i, d, 1)
		onehot.Set(i, y[i], 1)
	}

	w := mat.NewDense(d+1, numClasses, nil)

	var (
		probs mat.Dense
		grad  mat.Dense
	)

	for iter := 0; iter < m.Iterations; iter++ {
		probs.Mul(xa, w)
		for i := 0; i < n; i++ {
			softmax(probs.RawRowView(i))
		}

		probs.Sub(&probs, onehot)
		grad.Mul(xa.T(), &probs)
		grad.Scale(1/float64(n), &grad)

		for j := 0; j < d; j++ {
			for k := 0; k < numClasses; k++ {
				grad.Set(j, k, grad.At(j, k)+m.Lambda*w.At(j, k))
			}
		}

		grad.Scale(m.LearningRate, &grad)
		w.Sub(w, &grad)
	}

	m.Weights = make([]float64, (d+1)*numClasses)
	for j := 0; j <= d; j++ {
		copy(m.Weights[j*numClasses:(j+1)*numClasses], w.RawRowView(j))
	}

	return nil
}

func (m *LogisticRegression) Predict(x []float64) int {
	return argmax(m.scores(x))
}

func (m *LogisticRegression) scores(x []float64) []float64 {
	k := m.NumClasses
	scores := make([]float64, k)
	copy(scores, m.Weights[m.NumFeatures*k:(m.NumFeatures+1)*k])

	for j := 0; j < m.NumFeatures; j++ {
		floats.AddScaled(scores, x[j], m.Weights[j*k:(j+1)*k])
	}

	return scores
}

// softmax replaces z with its probabilities in place.
func softmax(z []float64) {
	lse := floats.LogSumExp(z)
	for i := range z {
		z[i] = math.Exp(z[i] - lse)
	}
}
