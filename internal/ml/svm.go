package ml

import (
	"math/rand"

	"github.com/rxtech-lab/argo-ml/internal/types"
	"gonum.org/v1/gonum/floats"
)

// LinearSVM is a one-vs-rest linear SVM trained with the Pegasos sub-gradient method.
type LinearSVM struct {
	// Weights holds one (features+1) vector per class; the last entry is the bias.
	Weights     [][]float64
	NumFeatures int
	NumClasses  int
	Lambda      float64
	Epochs      int
	Seed        int64
}

func (m *LinearSVM) Kind() types.ModelKind {
	return types.ModelKindSVM
}

func (m *LinearSVM) Fit(X [][]float64, y []int, numClasses int) error {
	if err := checkFitInput(X, y, numClasses); err != nil {
		return err
	}

	n, d := len(X), len(X[0])
	m.NumFeatures, m.NumClasses = d, numClasses
	m.Weights = make([][]float64, numClasses)

	augmented := make([][]float64, n)
	for i, row := range X {
		augmented[i] = append(append(make([]float64, 0, d+1), row...), 1)
	}

	for class := 0; class < numClasses; class++ {
		rng := rand.New(rand.NewSource(m.Seed + int64(class)))
		w := make([]float64, d+1)
		step := 0

		for epoch := 0; epoch < m.Epochs; epoch++ {
			for _, i := range rng.Perm(n) {
				step++
				eta := 1 / (m.Lambda * float64(step))

				target := -1.0
				if y[i] == class {
					target = 1
				}

				margin := target * floats.Dot(w, augmented[i])

				floats.Scale(1-eta*m.Lambda, w)

				if margin < 1 {
					floats.AddScaled(w, eta*target, augmented[i])
				}
			}
		}

		m.Weights[class] = w
	}

	return nil
}

func (m *LinearSVM) Predict(x []float64) int {
	scores := make([]float64, m.NumClasses)
	for class, w := range m.Weights {
		scores[class] = floats.Dot(w[:m.NumFeatures], x) + w[m.NumFeatures]
	}

	return argmax(scores)
}
