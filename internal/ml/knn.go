package ml

import (
	"sort"

	"github.com/rxtech-lab/argo-ml/internal/types"
	"gonum.org/v1/gonum/floats"
)

// KNN predicts the majority class of the K nearest training rows by euclidean distance.
// Ties go to the tied class whose member is nearest.
type KNN struct {
	K          int
	X          [][]float64
	Y          []int
	NumClasses int
}

func (m *KNN) Kind() types.ModelKind {
	return types.ModelKindKNN
}

func (m *KNN) Fit(X [][]float64, y []int, numClasses int) error {
	if err := checkFitInput(X, y, numClasses); err != nil {
		return err
	}

	m.NumClasses = numClasses
	m.X = make([][]float64, len(X))

	for i, row := range X {
		m.X[i] = append([]float64{}, row...)
	}

	m.Y = append([]int{}, y...)

	return nil
}

func (m *KNN) Predict(x []float64) int {
	order := make([]int, len(m.X))
	distances := make([]float64, len(m.X))

	for i, row := range m.X {
		order[i] = i
		distances[i] = floats.Distance(row, x, 2)
	}

	sort.SliceStable(order, func(a, b int) bool {
		return distances[order[a]] < distances[order[b]]
	})

	k := min(m.K, len(order))
	votes := make([]int, m.NumClasses)

	for _, i := range order[:k] {
		votes[m.Y[i]]++
	}

	best := 0
	for _, v := range votes {
		best = max(best, v)
	}

	// first neighbour whose class carries the top vote count
	for _, i := range order[:k] {
		if votes[m.Y[i]] == best {
			return m.Y[i]
		}
	}

	return 0
}
